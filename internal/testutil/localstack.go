// Package testutil provides LocalStack integration test utilities.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"
)

// LocalStack wraps a running LocalStack container.
type LocalStack struct {
	container *localstack.LocalStackContainer
	endpoint  string
	region    string
}

// StartLocalStack starts LocalStack and stops it when the test ends.
func StartLocalStack(t *testing.T) *LocalStack {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := localstack.Run(ctx,
		"localstack/localstack:latest",
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort("4566").
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start LocalStack container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate LocalStack container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return &LocalStack{
		container: container,
		endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
		region:    "us-east-1",
	}
}

func (l *LocalStack) awsConfig(ctx context.Context, t *testing.T) aws.Config {
	t.Helper()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(l.region),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
			})),
	)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// S3Client returns a path-style S3 client pointed at LocalStack.
func (l *LocalStack) S3Client(ctx context.Context, t *testing.T) *s3.Client {
	t.Helper()
	return s3.NewFromConfig(l.awsConfig(ctx, t), func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(l.endpoint)
	})
}

// DynamoDBClient returns a DynamoDB client pointed at LocalStack.
func (l *LocalStack) DynamoDBClient(ctx context.Context, t *testing.T) *dynamodb.Client {
	t.Helper()
	return dynamodb.NewFromConfig(l.awsConfig(ctx, t), func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(l.endpoint)
	})
}

// UniqueName returns prefix followed by a random suffix, usable as a bucket
// or table name.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// CreateBucket creates a bucket.
func CreateBucket(ctx context.Context, t *testing.T, client *s3.Client, bucket string) {
	t.Helper()
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("Failed to create bucket %s: %v", bucket, err)
	}
}

// CreateTable creates a table with the PK/SK string key layout of the record store.
func CreateTable(ctx context.Context, t *testing.T, client *dynamodb.Client, table string) {
	t.Helper()

	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(table),
		BillingMode: dynamotypes.BillingModePayPerRequest,
		AttributeDefinitions: []dynamotypes.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: dynamotypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: dynamotypes.ScalarAttributeTypeS},
		},
		KeySchema: []dynamotypes.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: dynamotypes.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: dynamotypes.KeyTypeRange},
		},
	})
	if err != nil {
		t.Fatalf("Failed to create table %s: %v", table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, time.Minute); err != nil {
		t.Fatalf("Table %s did not become active: %v", table, err)
	}
}
