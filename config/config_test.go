package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
)

func envFrom(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func completeEnv() map[string]string {
	return map[string]string{
		"AWS_ACCOUNT_ID":           "123456789012",
		"AWS_REGION":               "us-east-1",
		"FILESTORE_STAGING_BUCKET": "staging",
		"FILESTORE_DEST_BUCKET":    "production",
		"DATABASE_TABLE_NAME":      "microapps",
		"APIGWY_ID":                "abc123",
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "cue file overrides defaults",
			input: `
accountId:        "123456789012"
region:           "eu-west-1"
stagingBucket:    "staging"
productionBucket: "prod"
copyConcurrency:  16
requireIamAuthorization: false
allowedCallerArns: ["arn:aws:iam::210987654321:root"]
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "eu-west-1", cfg.Region)
				assert.Equal(t, 16, cfg.CopyConcurrency)
				assert.False(t, cfg.RequireIAMAuthorization)
				assert.Equal(t, []string{"arn:aws:iam::210987654321:root"}, cfg.AllowedCallerARNs)
				assert.Equal(t, DefaultS3MaxAttempts, cfg.S3MaxAttempts)
				assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
			},
		},
		{
			name:  "plain json is accepted",
			input: `{"region": "us-west-2", "logLevel": "debug"}`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "us-west-2", cfg.Region)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.True(t, cfg.RequireIAMAuthorization)
			},
		},
		{
			name:  "empty file keeps every default",
			input: `{}`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name:    "unknown field rejected",
			input:   `{"bucket": "x"}`,
			wantErr: true,
		},
		{
			name:    "concurrency out of range",
			input:   `copyConcurrency: 64`,
			wantErr: true,
		},
		{
			name:    "malformed account id",
			input:   `accountId: "12"`,
			wantErr: true,
		},
		{
			name:    "unknown log level",
			input:   `logLevel: "trace"`,
			wantErr: true,
		},
		{
			name:    "syntax error",
			input:   `region: `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.input), "deployer.cue")
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ferrors.CodeInvalidConfig, ferrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := completeEnv()
	env["ALLOWED_PRINCIPALS"] = "arn:aws:iam::1:root, ,arn:aws:iam::2:root"
	env["COPY_CONCURRENCY"] = "12"
	env["REQUIRE_IAM_AUTHORIZATION"] = "false"
	env["ROOT_PATH_PREFIX"] = "qa"

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envFrom(env)))

	assert.Equal(t, "123456789012", cfg.AccountID)
	assert.Equal(t, "abc123", cfg.APIGatewayID)
	assert.Equal(t, "qa", cfg.RootPathPrefix)
	assert.Equal(t, 12, cfg.CopyConcurrency)
	assert.False(t, cfg.RequireIAMAuthorization)
	assert.Equal(t, []string{"arn:aws:iam::1:root", "arn:aws:iam::2:root"}, cfg.AllowedCallerARNs)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvRejectsMalformedValues(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.ApplyEnv(envFrom(map[string]string{"COPY_CONCURRENCY": "many"})))
	assert.Error(t, cfg.ApplyEnv(envFrom(map[string]string{"REQUIRE_IAM_AUTHORIZATION": "sometimes"})))
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.CopyConcurrency = 2

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, ferrors.CodeInvalidConfig, ferrors.CodeOf(err))
	for _, field := range []string{"accountId", "region", "stagingBucket", "productionBucket", "tableName", "apiGatewayId", "copyConcurrency"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deployer.cue")
	require.NoError(t, os.WriteFile(path, []byte(`region: "eu-central-1"
uploadRoleName: "microapps-upload"`), 0o600))

	cfg, err := LoadWithEnv(context.Background(), path, envFrom(completeEnv()))
	require.NoError(t, err)

	// Environment wins over the file.
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "arn:aws:iam::123456789012:role/microapps-upload", cfg.UploadRoleARN())
}

func TestLoadWithEnvMissingFile(t *testing.T) {
	_, err := LoadWithEnv(context.Background(), filepath.Join(t.TempDir(), "absent.cue"), envFrom(completeEnv()))
	require.Error(t, err)
	assert.Equal(t, ferrors.CodeInvalidConfig, ferrors.CodeOf(err))
}

func TestUploadRoleARNEmpty(t *testing.T) {
	assert.Empty(t, Default().UploadRoleARN())
}
