package deployer

import (
	"context"
	"fmt"

	"github.com/input-output-hk/catalyst-forge-deployer/artifacts"
	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
)

// Delete tears a version down: production artifacts, routes, integration,
// alias and revision, then the version record. Remote objects that are
// already gone count as deleted.
func (d *Deployer) Delete(ctx context.Context, req VersionRequest) error {
	const op = "deployer.Delete"
	if err := validateVersion(op, req.AppName, req.SemVer); err != nil {
		return err
	}

	logger := d.logger.With("app_name", req.AppName, "sem_ver", req.SemVer)

	v, err := d.store.LoadVersion(ctx, req.AppName, req.SemVer)
	if err != nil {
		return fmt.Errorf("failed to load version: %w", err)
	}
	if v == nil {
		return ferrors.Newf(ferrors.CodeNotFound, op, "version %s/%s does not exist", req.AppName, req.SemVer)
	}
	logger = logger.With("app_type", v.Type, "status", v.Status)

	if v.Type.UsesFunction() && v.LambdaARN != "" && d.functions == nil {
		return ferrors.New(ferrors.CodeInvalidConfig, op, "no Lambda client configured")
	}
	if (v.IntegrationID != "" || v.RouteIDAppVersion != "" || v.RouteIDAppVersionSplat != "") && d.router == nil {
		return ferrors.New(ferrors.CodeInvalidConfig, op, "no API Gateway client configured")
	}

	prefix := artifacts.VersionPrefix(d.cfg.RootPathPrefix, v.AppName, v.SemVer)
	n, err := d.mover.Remove(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to delete artifacts: %w", err)
	}
	logger.InfoContext(ctx, "artifacts deleted", "prefix", prefix, "objects", n)

	// Routes reference the integration and go first.
	for _, id := range []string{v.RouteIDAppVersion, v.RouteIDAppVersionSplat} {
		if id == "" {
			continue
		}
		if err := d.router.DeleteRoute(ctx, id); err != nil {
			return err
		}
		logger.InfoContext(ctx, "route deleted", "route_id", id)
	}
	if v.IntegrationID != "" {
		if err := d.router.DeleteIntegration(ctx, v.IntegrationID); err != nil {
			return err
		}
		logger.InfoContext(ctx, "integration deleted", "integration_id", v.IntegrationID)
	}

	if v.Type.UsesFunction() && v.LambdaARN != "" {
		if err := d.functions.Retire(ctx, v.LambdaARN, v.SemVer); err != nil {
			return err
		}
	}

	if err := d.store.DeleteVersion(ctx, v.AppName, v.SemVer); err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}
	logger.InfoContext(ctx, "version deleted")
	return nil
}
