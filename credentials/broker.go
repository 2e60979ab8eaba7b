// Package credentials issues short-lived upload credentials scoped to the
// staging prefix of a single app version.
package credentials

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
)

// MaxDuration is the longest lifetime of an issued credential.
const MaxDuration = time.Hour

const sessionPrefix = "microapps-upload-"

// STSAPI is the subset of the STS client used by Broker.
type STSAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

var _ STSAPI = (*sts.Client)(nil)

// Credentials are temporary AWS credentials. They must never be logged.
type Credentials struct {
	AccessKeyID     string    `json:"accessKeyId"`
	SecretAccessKey string    `json:"secretAccessKey"`
	SessionToken    string    `json:"sessionToken"`
	Expiration      time.Time `json:"expiration"`
}

// Broker exchanges the upload role for prefix-scoped credentials.
type Broker struct {
	api      STSAPI
	roleARN  string
	duration time.Duration
	logger   *slog.Logger
}

// Option configures a Broker.
type Option func(*Broker)

// WithDuration sets the credential lifetime, capped at MaxDuration.
func WithDuration(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 && d <= MaxDuration {
			b.duration = d
		}
	}
}

// WithLogger configures the broker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBroker creates a Broker assuming roleARN.
func NewBroker(api STSAPI, roleARN string, opts ...Option) *Broker {
	b := &Broker{
		api:      api,
		roleARN:  roleARN,
		duration: MaxDuration,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SessionName derives the role session name from the target prefix so that
// audit records of one upload can be correlated.
func SessionName(bucket, prefix string) string {
	sum := sha256.Sum256([]byte(bucket + "/" + prefix))
	return sessionPrefix + hex.EncodeToString(sum[:])[:32]
}

// Issue returns credentials limited to reading, writing and listing objects
// under prefix in bucket.
func (b *Broker) Issue(ctx context.Context, bucket, prefix string) (*Credentials, error) {
	if b.roleARN == "" {
		return nil, ferrors.New(ferrors.CodeInvalidConfig, "credentials.Issue", "upload role is not configured")
	}

	policy, err := uploadPolicy(bucket, prefix)
	if err != nil {
		return nil, err
	}

	session := SessionName(bucket, prefix)
	out, err := b.api.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(b.roleARN),
		RoleSessionName: aws.String(session),
		Policy:          aws.String(policy),
		DurationSeconds: aws.Int32(int32(b.duration / time.Second)),
	})
	if err != nil {
		return nil, handleError(err)
	}
	if out.Credentials == nil {
		return nil, fmt.Errorf("AssumeRole returned no credentials for %s", b.roleARN)
	}

	b.logger.InfoContext(ctx, "upload credentials issued",
		"bucket", bucket,
		"prefix", prefix,
		"session_name", session,
		"expiration", aws.ToTime(out.Credentials.Expiration))

	return &Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Expiration:      aws.ToTime(out.Credentials.Expiration),
	}, nil
}

type policyStatement struct {
	Effect    string         `json:"Effect"`
	Action    []string       `json:"Action"`
	Resource  []string       `json:"Resource"`
	Condition map[string]any `json:"Condition,omitempty"`
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// uploadPolicy renders the session policy intersected with the upload role.
func uploadPolicy(bucket, prefix string) (string, error) {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{
			{
				Effect:   "Allow",
				Action:   []string{"s3:GetObject", "s3:PutObject", "s3:AbortMultipartUpload"},
				Resource: []string{fmt.Sprintf("arn:aws:s3:::%s/%s*", bucket, prefix)},
			},
			{
				Effect:   "Allow",
				Action:   []string{"s3:ListBucket"},
				Resource: []string{"arn:aws:s3:::" + bucket},
				Condition: map[string]any{
					"StringLike": map[string]any{"s3:prefix": []string{prefix + "*"}},
				},
			},
		},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render upload policy: %w", err)
	}
	return string(data), nil
}

func handleError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDenied" {
		return ferrors.Wrap(err, ferrors.CodeUnauthorized, "credentials.Issue", "cannot assume upload role")
	}
	return fmt.Errorf("AssumeRole operation failed: %w", err)
}
