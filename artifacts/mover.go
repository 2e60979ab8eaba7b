package artifacts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"
)

const (
	// RootAppMarker stands in for the app name of the root app.
	RootAppMarker = "[root]"

	// DefaultConcurrency bounds concurrent copy/delete pairs.
	DefaultConcurrency = 10

	// maxBatchDelete is the S3 DeleteObjects limit.
	maxBatchDelete = 1000
)

// S3API is the subset of the S3 client used by the Mover.
type S3API interface {
	ListObjectsV2(
		ctx context.Context,
		params *s3.ListObjectsV2Input,
		optFns ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)

	CopyObject(
		ctx context.Context,
		params *s3.CopyObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.CopyObjectOutput, error)

	DeleteObject(
		ctx context.Context,
		params *s3.DeleteObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.DeleteObjectOutput, error)

	DeleteObjects(
		ctx context.Context,
		params *s3.DeleteObjectsInput,
		optFns ...func(*s3.Options),
	) (*s3.DeleteObjectsOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// VersionPrefix returns the key prefix, with trailing slash, of one app version.
func VersionPrefix(rootPathPrefix, appName, semVer string) string {
	if appName == "" {
		appName = RootAppMarker
	}
	parts := []string{appName, semVer}
	if root := strings.Trim(rootPathPrefix, "/"); root != "" {
		parts = append([]string{root}, parts...)
	}
	return strings.ToLower(strings.Join(parts, "/")) + "/"
}

// Mover promotes and removes version artifacts.
type Mover struct {
	api              S3API
	stagingBucket    string
	productionBucket string
	concurrency      int
	logger           *slog.Logger
}

// Option configures a Mover.
type Option func(*Mover)

// WithConcurrency sets the number of objects moved in parallel.
// Values outside 1..20 are ignored.
func WithConcurrency(n int) Option {
	return func(m *Mover) {
		if n > 0 && n <= 20 {
			m.concurrency = n
		}
	}
}

// WithLogger configures the mover logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mover) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMover creates a Mover between the two buckets.
func NewMover(api S3API, stagingBucket, productionBucket string, opts ...Option) *Mover {
	m := &Mover{
		api:              api,
		stagingBucket:    stagingBucket,
		productionBucket: productionBucket,
		concurrency:      DefaultConcurrency,
		logger:           slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StagingURI returns the s3:// URI of prefix in the staging bucket.
func (m *Mover) StagingURI(prefix string) string {
	return fmt.Sprintf("s3://%s/%s", m.stagingBucket, prefix)
}

// Promote copies every object under prefix from the staging bucket to the same
// key in the production bucket, deleting each staged copy once its copy has
// succeeded. It returns the number of objects moved.
func (m *Mover) Promote(ctx context.Context, prefix string) (int, error) {
	moved := 0
	err := m.forEachPage(ctx, m.stagingBucket, prefix, func(keys []string) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.concurrency)

		for _, k := range keys {
			g.Go(func() error {
				return m.move(gctx, k)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		moved += len(keys)
		return nil
	})
	if err != nil {
		return moved, err
	}

	m.logger.InfoContext(ctx, "artifacts promoted",
		"prefix", prefix,
		"objects", moved)
	return moved, nil
}

func (m *Mover) move(ctx context.Context, key string) error {
	if _, err := m.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(m.productionBucket),
		Key:        aws.String(key),
		CopySource: aws.String(m.stagingBucket + "/" + key),
	}); err != nil {
		return fmt.Errorf("copy %s to %s: %w", key, m.productionBucket, err)
	}

	if _, err := m.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.stagingBucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete staged %s: %w", key, err)
	}
	return nil
}

// Remove deletes every production object under prefix and returns how many
// were deleted. An empty prefix listing is not an error.
func (m *Mover) Remove(ctx context.Context, prefix string) (int, error) {
	removed := 0
	err := m.forEachPage(ctx, m.productionBucket, prefix, func(keys []string) error {
		for start := 0; start < len(keys); start += maxBatchDelete {
			end := min(start+maxBatchDelete, len(keys))
			if err := m.deleteBatch(ctx, keys[start:end]); err != nil {
				return err
			}
			removed += end - start
		}
		return nil
	})
	if err != nil {
		return removed, err
	}

	m.logger.InfoContext(ctx, "artifacts removed",
		"prefix", prefix,
		"objects", removed)
	return removed, nil
}

func (m *Mover) deleteBatch(ctx context.Context, keys []string) error {
	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
	}

	out, err := m.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(m.productionBucket),
		Delete: &types.Delete{
			Objects: ids,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("delete objects in %s: %w", m.productionBucket, err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("delete objects in %s: %d failed, first %s: %s",
			m.productionBucket, len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
	}
	return nil
}

// forEachPage lists bucket under prefix and calls fn with the keys of each
// page. A nil continuation token requests the first page.
func (m *Mover) forEachPage(ctx context.Context, bucket, prefix string, fn func(keys []string) error) error {
	var token *string
	for {
		out, err := m.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
		}

		keys := make([]string, 0, len(out.Contents))
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}

		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return nil
		}
		token = out.NextContinuationToken
	}
}
