// Package config holds the deployer configuration.
//
// Configuration is read from an optional CUE (or plain JSON) file that is
// validated against an embedded schema, then overlaid with environment
// variables. The resulting *Config is passed explicitly to every component;
// nothing in the deployer reads configuration from globals.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
)

// Default values applied before the file and environment layers.
const (
	DefaultCopyConcurrency         = 10
	DefaultS3MaxAttempts           = 8
	DefaultControlPlaneMaxAttempts = 3
	DefaultListenAddr              = ":8080"
	DefaultLogLevel                = "info"
)

// Config is the deployer configuration.
type Config struct {
	// AccountID is the AWS account that owns the routing and compute resources.
	AccountID string `json:"accountId"`

	// Region is the AWS region of every backend.
	Region string `json:"region"`

	// StagingBucket receives uploads before a version is deployed.
	StagingBucket string `json:"stagingBucket"`

	// ProductionBucket holds the artifacts of deployed versions.
	ProductionBucket string `json:"productionBucket"`

	// UploadRoleName is the IAM role assumed to mint upload credentials.
	// Preflight returns no credentials when it is empty.
	UploadRoleName string `json:"uploadRoleName"`

	// RootPathPrefix is prepended to every object key and route path.
	RootPathPrefix string `json:"rootPathPrefix"`

	// RequireIAMAuthorization sets AWS_IAM authorization on created routes.
	RequireIAMAuthorization bool `json:"requireIamAuthorization"`

	// APIGatewayID identifies the HTTP API that carries the routes.
	APIGatewayID string `json:"apiGatewayId"`

	// APIGatewayName is resolved to APIGatewayID at startup when the id is unset.
	APIGatewayName string `json:"apiGatewayName"`

	// TableName is the DynamoDB table that stores the records.
	TableName string `json:"tableName"`

	// ParentDeployerARN is the deployer function queried for cross-account
	// caller identities. Propagation is skipped when empty.
	ParentDeployerARN string `json:"parentDeployerArn"`

	// AllowedCallerARNs are identities granted invoke on function URLs,
	// merged with whatever the parent deployer reports.
	AllowedCallerARNs []string `json:"allowedCallerArns"`

	CopyConcurrency         int    `json:"copyConcurrency"`
	S3MaxAttempts           int    `json:"s3MaxAttempts"`
	ControlPlaneMaxAttempts int    `json:"controlPlaneMaxAttempts"`
	LogLevel                string `json:"logLevel"`
	ListenAddr              string `json:"listenAddr"`
}

// Default returns a Config populated with default values only.
func Default() *Config {
	return &Config{
		RequireIAMAuthorization: true,
		CopyConcurrency:         DefaultCopyConcurrency,
		S3MaxAttempts:           DefaultS3MaxAttempts,
		ControlPlaneMaxAttempts: DefaultControlPlaneMaxAttempts,
		LogLevel:                DefaultLogLevel,
		ListenAddr:              DefaultListenAddr,
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	required := []struct {
		name  string
		value string
	}{
		{"accountId", c.AccountID},
		{"region", c.Region},
		{"stagingBucket", c.StagingBucket},
		{"productionBucket", c.ProductionBucket},
		{"tableName", c.TableName},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}

	if c.APIGatewayID == "" && c.APIGatewayName == "" {
		errs = append(errs, errors.New("one of apiGatewayId or apiGatewayName is required"))
	}
	if c.CopyConcurrency < 4 || c.CopyConcurrency > 20 {
		errs = append(errs, fmt.Errorf("copyConcurrency must be between 4 and 20, got %d", c.CopyConcurrency))
	}
	if c.S3MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("s3MaxAttempts must be positive, got %d", c.S3MaxAttempts))
	}
	if c.ControlPlaneMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("controlPlaneMaxAttempts must be positive, got %d", c.ControlPlaneMaxAttempts))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return ferrors.Wrap(errors.Join(errs...), ferrors.CodeInvalidConfig, "config.validate", "invalid configuration")
	}
	return nil
}

// UploadRoleARN returns the ARN of the upload role, or "" when none is configured.
func (c *Config) UploadRoleARN() string {
	if c.UploadRoleName == "" {
		return ""
	}
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", c.AccountID, c.UploadRoleName)
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid logLevel %q", s)
	}
	return level, nil
}
