package deployer

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
	"github.com/input-output-hk/catalyst-forge-deployer/records"
)

func TestPreflight(t *testing.T) {
	tests := []struct {
		name      string
		seed      *records.Version
		overwrite bool
		wantCode  int
		wantCreds bool
	}{
		{name: "new version", wantCode: http.StatusNotFound, wantCreds: true},
		{name: "pending version", seed: &records.Version{Status: records.StatusPending}, wantCode: http.StatusNotFound, wantCreds: true},
		{name: "deployed version", seed: &records.Version{Status: records.StatusRouted}, wantCode: http.StatusOK},
		{name: "partially deployed version", seed: &records.Version{Status: records.StatusAssetsCopied}, wantCode: http.StatusOK},
		{name: "overwrite deployed version", seed: &records.Version{Status: records.StatusRouted}, overwrite: true, wantCode: http.StatusNotFound, wantCreds: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			if tt.seed != nil {
				tt.seed.AppName, tt.seed.SemVer, tt.seed.Type = "NewApp", "0.0.0", records.AppTypeStatic
				require.NoError(t, h.store.SaveVersion(context.Background(), tt.seed))
			}

			res, err := h.deployer.Preflight(context.Background(), PreflightRequest{AppName: "NewApp", SemVer: "0.0.0", Overwrite: tt.overwrite})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, res.StatusCode)

			if !tt.wantCreds {
				assert.Nil(t, res.Credentials)
				assert.Empty(t, h.rec.calls)
				return
			}
			require.NotNil(t, res.Credentials)
			assert.Equal(t, "s3://staging/newapp/0.0.0/", res.S3UploadURI)
			assert.Equal(t, []string{"Issue staging newapp/0.0.0/"}, h.rec.calls)
		})
	}
}

func TestPreflightWithoutIssuer(t *testing.T) {
	h := newHarness()
	d := New(testConfig(), h.store, h.mover)

	res, err := d.Preflight(context.Background(), PreflightRequest{AppName: "newapp", SemVer: "0.0.0"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Nil(t, res.Credentials)
	assert.Equal(t, "s3://staging/newapp/0.0.0/", res.S3UploadURI)
}

func TestPreflightIssueFailure(t *testing.T) {
	h := newHarness()
	h.issuer.err = ferrors.New(ferrors.CodeUnauthorized, "credentials.Issue", "cannot assume upload role")

	_, err := h.deployer.Preflight(context.Background(), PreflightRequest{AppName: "newapp", SemVer: "0.0.0"})
	assert.True(t, ferrors.IsUnauthorized(err))
}

func TestPreflightValidation(t *testing.T) {
	h := newHarness()
	_, err := h.deployer.Preflight(context.Background(), PreflightRequest{AppName: "newapp"})
	assert.True(t, ferrors.IsInvalidInput(err))
}
