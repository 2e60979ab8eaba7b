package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
)

//go:embed schema.cue
var schemaSource string

// LookupFunc resolves an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration from defaults, the optional file at path,
// and the process environment, then validates it.
func Load(ctx context.Context, path string) (*Config, error) {
	return LoadWithEnv(ctx, path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment.
func LoadWithEnv(_ context.Context, path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ferrors.Wrap(err, ferrors.CodeInvalidConfig, "config.load", "failed to read configuration file")
		}
		if err := cfg.merge(data, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse validates data against the schema and merges it over the defaults.
// The result is not validated for completeness; call Validate for that.
func Parse(data []byte, filename string) (*Config, error) {
	cfg := Default()
	if err := cfg.merge(data, filename); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge compiles data, unifies it with the #Config definition and copies every
// field present in the file onto c. Fields absent from the file keep their values.
func (c *Config) merge(data []byte, filename string) error {
	cctx := cuecontext.New()

	schema := cctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return ferrors.Wrap(err, ferrors.CodeInternal, "config.parse", "failed to compile configuration schema")
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := cctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return ferrors.Wrap(err, ferrors.CodeInvalidConfig, "config.parse", "failed to compile configuration")
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return ferrors.Wrap(err, ferrors.CodeInvalidConfig, "config.parse", "configuration does not match schema")
	}

	if err := unified.Decode(c); err != nil {
		return ferrors.Wrap(err, ferrors.CodeInvalidConfig, "config.parse", "failed to decode configuration")
	}

	return nil
}

// ApplyEnv overlays environment variables onto c.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	strs := map[string]*string{
		"AWS_ACCOUNT_ID":             &c.AccountID,
		"AWS_REGION":                 &c.Region,
		"FILESTORE_STAGING_BUCKET":   &c.StagingBucket,
		"FILESTORE_DEST_BUCKET":      &c.ProductionBucket,
		"UPLOAD_ROLE_NAME":           &c.UploadRoleName,
		"ROOT_PATH_PREFIX":           &c.RootPathPrefix,
		"APIGWY_ID":                  &c.APIGatewayID,
		"APIGWY_NAME":                &c.APIGatewayName,
		"DATABASE_TABLE_NAME":        &c.TableName,
		"PARENT_DEPLOYER_LAMBDA_ARN": &c.ParentDeployerARN,
		"LOG_LEVEL":                  &c.LogLevel,
		"LISTEN_ADDR":                &c.ListenAddr,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"COPY_CONCURRENCY":           &c.CopyConcurrency,
		"S3_MAX_ATTEMPTS":            &c.S3MaxAttempts,
		"CONTROL_PLANE_MAX_ATTEMPTS": &c.ControlPlaneMaxAttempts,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return ferrors.Wrap(err, ferrors.CodeInvalidConfig, "config.env", fmt.Sprintf("%s must be an integer", key))
		}
		*dst = n
	}

	if v, ok := lookup("REQUIRE_IAM_AUTHORIZATION"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ferrors.Wrap(err, ferrors.CodeInvalidConfig, "config.env", "REQUIRE_IAM_AUTHORIZATION must be a boolean")
		}
		c.RequireIAMAuthorization = b
	}

	if v, ok := lookup("ALLOWED_PRINCIPALS"); ok && v != "" {
		var arns []string
		for _, arn := range strings.Split(v, ",") {
			if arn = strings.TrimSpace(arn); arn != "" {
				arns = append(arns, arn)
			}
		}
		c.AllowedCallerARNs = arns
	}

	return nil
}
