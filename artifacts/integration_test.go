//go:build integration
// +build integration

package artifacts_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-deployer/artifacts"
	"github.com/input-output-hk/catalyst-forge-deployer/internal/testutil"
)

func listKeys(ctx context.Context, t *testing.T, client *s3.Client, bucket, prefix string) []string {
	t.Helper()

	var keys []string
	p := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		require.NoError(t, err)
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys
}

// TestIntegrationPromoteAndRemove moves a multi-page version through both buckets.
func TestIntegrationPromoteAndRemove(t *testing.T) {
	ctx := context.Background()
	ls := testutil.StartLocalStack(t)
	client := ls.S3Client(ctx, t)

	staging := testutil.UniqueName("staging")
	production := testutil.UniqueName("production")
	testutil.CreateBucket(ctx, t, client, staging)
	testutil.CreateBucket(ctx, t, client, production)

	prefix := artifacts.VersionPrefix("", "NewApp", "1.0.0")
	const objects = 1205
	for i := range objects {
		_, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(staging),
			Key:    aws.String(fmt.Sprintf("%sfile-%04d.txt", prefix, i)),
			Body:   strings.NewReader("content"),
		})
		require.NoError(t, err)
	}

	mover := artifacts.NewMover(client, staging, production, artifacts.WithConcurrency(8))

	moved, err := mover.Promote(ctx, prefix)
	require.NoError(t, err)
	assert.Equal(t, objects, moved)
	assert.Empty(t, listKeys(ctx, t, client, staging, prefix))
	assert.Len(t, listKeys(ctx, t, client, production, prefix), objects)

	removed, err := mover.Remove(ctx, prefix)
	require.NoError(t, err)
	assert.Equal(t, objects, removed)
	assert.Empty(t, listKeys(ctx, t, client, production, prefix))
}
