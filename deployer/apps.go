package deployer

import (
	"context"
	"fmt"
	"net/http"

	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
	"github.com/input-output-hk/catalyst-forge-deployer/functions"
	"github.com/input-output-hk/catalyst-forge-deployer/records"
)

// CreateApp registers an application if it does not exist yet. It returns
// 201 when the application was created and 200 when it already existed.
func (d *Deployer) CreateApp(ctx context.Context, req CreateAppRequest) (int, error) {
	if req.AppName == "" {
		return 0, invalid("deployer.CreateApp", "appName is required")
	}

	existing, err := d.store.LoadApplication(ctx, req.AppName)
	if err != nil {
		return 0, fmt.Errorf("failed to load application: %w", err)
	}
	if existing != nil {
		return http.StatusOK, nil
	}

	app := &records.Application{AppName: req.AppName, DisplayName: req.DisplayName}
	if app.DisplayName == "" {
		app.DisplayName = req.AppName
	}
	if err := d.store.SaveApplication(ctx, app); err != nil {
		return 0, fmt.Errorf("failed to save application: %w", err)
	}

	d.logger.InfoContext(ctx, "application created", "app_name", req.AppName)
	return http.StatusCreated, nil
}

// GetVersion returns the version record.
func (d *Deployer) GetVersion(ctx context.Context, req VersionRequest) (*records.Version, error) {
	const op = "deployer.GetVersion"
	if err := validateVersion(op, req.AppName, req.SemVer); err != nil {
		return nil, err
	}

	v, err := d.store.LoadVersion(ctx, req.AppName, req.SemVer)
	if err != nil {
		return nil, fmt.Errorf("failed to load version: %w", err)
	}
	if v == nil {
		return nil, ferrors.Newf(ferrors.CodeNotFound, op, "version %s/%s does not exist", req.AppName, req.SemVer)
	}
	return v, nil
}

// ResolveAlias resolves the alias of a version on its own, outside a rollout.
func (d *Deployer) ResolveAlias(ctx context.Context, req AliasRequest) (*functions.AliasResult, error) {
	const op = "deployer.ResolveAlias"
	if req.LambdaARN == "" {
		return nil, invalid(op, "lambdaARN is required")
	}
	if err := validateSemVer(op, req.SemVer); err != nil {
		return nil, err
	}
	if d.functions == nil {
		return nil, ferrors.New(ferrors.CodeInvalidConfig, op, "no Lambda client configured")
	}

	return d.functions.Resolve(ctx, functions.AliasRequest{
		FunctionARN: req.LambdaARN,
		SemVer:      req.SemVer,
		Overwrite:   req.Overwrite,
	})
}
