package deployer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/input-output-hk/catalyst-forge-deployer/artifacts"
	"github.com/input-output-hk/catalyst-forge-deployer/credentials"
	"github.com/input-output-hk/catalyst-forge-deployer/records"
)

// PreflightResult tells a caller whether and where to upload artifacts.
type PreflightResult struct {
	// StatusCode is 200 when the version exists and needs no upload, 404 otherwise.
	StatusCode  int
	S3UploadURI string
	Credentials *credentials.Credentials
}

// Preflight checks whether a version still needs an upload. When it does, the
// result carries the staging URI and, if an upload role is configured,
// credentials scoped to that prefix.
func (d *Deployer) Preflight(ctx context.Context, req PreflightRequest) (*PreflightResult, error) {
	const op = "deployer.Preflight"
	if err := validateVersion(op, req.AppName, req.SemVer); err != nil {
		return nil, err
	}

	v, err := d.store.LoadVersion(ctx, req.AppName, req.SemVer)
	if err != nil {
		return nil, fmt.Errorf("failed to load version: %w", err)
	}
	if v != nil && v.Status != records.StatusPending && !req.Overwrite {
		return &PreflightResult{StatusCode: http.StatusOK}, nil
	}

	prefix := artifacts.VersionPrefix(d.cfg.RootPathPrefix, req.AppName, req.SemVer)
	result := &PreflightResult{
		StatusCode:  http.StatusNotFound,
		S3UploadURI: d.mover.StagingURI(prefix),
	}
	if d.issuer == nil {
		return result, nil
	}

	creds, err := d.issuer.Issue(ctx, d.cfg.StagingBucket, prefix)
	if err != nil {
		return nil, err
	}
	result.Credentials = creds
	return result, nil
}
