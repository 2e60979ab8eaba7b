package deployer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/input-output-hk/catalyst-forge-deployer/artifacts"
	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
	"github.com/input-output-hk/catalyst-forge-deployer/functions"
	"github.com/input-output-hk/catalyst-forge-deployer/gateway"
	"github.com/input-output-hk/catalyst-forge-deployer/records"
)

// Statement ids of the API Gateway invoke grants on a lambda version.
const (
	GatewayStatementRoot  = "microapps-version-root"
	GatewayStatementSplat = "microapps-version"
)

// DeployResult is the outcome of a rollout.
type DeployResult struct {
	StatusCode int
	Version    *records.Version
	// AliasAction is set when the rollout resolved a lambda-url alias.
	AliasAction functions.Action
}

// Deploy rolls out a version, resuming from its last checkpoint.
func (d *Deployer) Deploy(ctx context.Context, req DeployRequest) (*DeployResult, error) {
	return d.rollout(ctx, "deployer.Deploy", req, false)
}

// DeployLite rolls out a version without provisioning compute: artifacts are
// promoted and the record is written, but no permission, integration, route
// or alias is created.
func (d *Deployer) DeployLite(ctx context.Context, req DeployRequest) (*DeployResult, error) {
	return d.rollout(ctx, "deployer.DeployLite", req, true)
}

// run carries the state of one rollout.
type run struct {
	*Deployer
	req     DeployRequest
	version *records.Version
	result  *DeployResult
	logger  *slog.Logger
}

func (d *Deployer) rollout(ctx context.Context, op string, req DeployRequest, lite bool) (*DeployResult, error) {
	if err := req.normalize(op, lite); err != nil {
		return nil, err
	}

	logger := d.logger.With(
		"app_name", req.AppName,
		"sem_ver", req.SemVer,
		"app_type", req.Type,
		"overwrite", req.Overwrite,
		"lite", lite)

	plan := Plan(req.Type, lite)
	if err := d.checkDependencies(op, plan); err != nil {
		return nil, err
	}

	existing, err := d.store.LoadVersion(ctx, req.AppName, req.SemVer)
	if err != nil {
		return nil, fmt.Errorf("failed to load version: %w", err)
	}
	if existing != nil && !req.Overwrite {
		if existing.Status.IsRouted() {
			return nil, ferrors.Newf(ferrors.CodeConflict, op,
				"version %s/%s is already deployed", req.AppName, req.SemVer)
		}
		if existing.Type != req.Type {
			return nil, ferrors.Newf(ferrors.CodeConflict, op,
				"version %s/%s exists with app type %q", req.AppName, req.SemVer, existing.Type)
		}
		if !Reachable(existing.Type, existing.Status) {
			return nil, ferrors.Newf(ferrors.CodeConflict, op,
				"version %s/%s has status %q, unknown for app type %q",
				req.AppName, req.SemVer, existing.Status, existing.Type)
		}
	}

	r := &run{
		Deployer: d,
		req:      req,
		result:   &DeployResult{StatusCode: http.StatusCreated},
		logger:   logger,
	}
	if err := r.ensureRecord(ctx, existing); err != nil {
		return nil, err
	}

	for _, tr := range plan {
		if !req.Overwrite && r.version.Status != tr.From {
			continue
		}

		logger.InfoContext(ctx, "running rollout step", "step", tr.Step, "status", r.version.Status)
		if err := r.do(ctx, tr.Step); err != nil {
			logger.ErrorContext(ctx, "rollout step failed",
				"step", tr.Step,
				"status", r.version.Status,
				"error", err)
			return nil, err
		}
		if err := r.advance(ctx, tr.To); err != nil {
			return nil, err
		}
	}

	if err := d.ensureDefaultRule(ctx, req.AppName, req.SemVer); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "rollout complete", "status", r.version.Status)
	r.result.Version = r.version
	return r.result, nil
}

// checkDependencies fails before any mutation when the plan needs a client
// the deployer was built without.
func (d *Deployer) checkDependencies(op string, plan []Transition) error {
	for _, tr := range plan {
		switch tr.Step {
		case StepIntegrate, StepRoute:
			if d.router == nil {
				return ferrors.New(ferrors.CodeInvalidConfig, op, "no API Gateway client configured")
			}
		case StepGrantGateway, StepTagFunction, StepResolveAlias:
			if d.functions == nil {
				return ferrors.New(ferrors.CodeInvalidConfig, op, "no Lambda client configured")
			}
			if tr.Step == StepGrantGateway && d.router == nil {
				return ferrors.New(ferrors.CodeInvalidConfig, op, "no API Gateway client configured")
			}
		}
	}
	return nil
}

// ensureRecord creates the version at pending, or refreshes the fields of an
// existing one from the request.
func (r *run) ensureRecord(ctx context.Context, existing *records.Version) error {
	req := r.req
	if existing == nil {
		r.version = &records.Version{
			AppName:     req.AppName,
			SemVer:      req.SemVer,
			Type:        req.Type,
			StartupType: req.StartupType,
			Status:      records.StatusPending,
			DefaultFile: req.DefaultFile,
			LambdaARN:   req.LambdaARN,
		}
		r.logger.InfoContext(ctx, "creating version record")
		return r.save(ctx)
	}

	r.version = existing
	if req.Overwrite {
		r.version.Type = req.Type
		r.version.StartupType = req.StartupType
		r.version.DefaultFile = req.DefaultFile
		if req.LambdaARN != "" {
			r.version.LambdaARN = req.LambdaARN
		}
		return r.save(ctx)
	}

	if r.version.LambdaARN == "" {
		r.version.LambdaARN = req.LambdaARN
	}
	if r.version.DefaultFile == "" {
		r.version.DefaultFile = req.DefaultFile
	}
	return nil
}

func (r *run) save(ctx context.Context) error {
	if err := r.store.SaveVersion(ctx, r.version); err != nil {
		return fmt.Errorf("failed to save version: %w", err)
	}
	return nil
}

// advance persists the version at status to. A re-run step never moves the
// status backwards.
func (r *run) advance(ctx context.Context, to records.Status) error {
	if to.Rank() > r.version.Status.Rank() {
		r.version.Status = to
	}
	return r.save(ctx)
}

func (r *run) do(ctx context.Context, step Step) error {
	switch step {
	case StepCopyAssets:
		return r.copyAssets(ctx)
	case StepGrantGateway:
		return r.grantGateway(ctx)
	case StepIntegrate:
		return r.integrate(ctx)
	case StepRoute:
		return r.route(ctx)
	case StepTagFunction:
		return r.tagFunction(ctx)
	case StepResolveAlias:
		return r.resolveAlias(ctx)
	case StepActivate:
		return nil
	case StepRecordURL:
		r.version.URL = r.req.URL
		return nil
	default:
		return fmt.Errorf("unknown rollout step %q", step)
	}
}

func (r *run) copyAssets(ctx context.Context) error {
	prefix := artifacts.VersionPrefix(r.cfg.RootPathPrefix, r.req.AppName, r.req.SemVer)
	n, err := r.mover.Promote(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to copy assets: %w", err)
	}
	r.version.DefaultFile = r.req.DefaultFile
	r.logger.InfoContext(ctx, "assets copied", "prefix", prefix, "objects", n)
	return nil
}

func (r *run) functionRef() (functions.Ref, error) {
	ref, err := functions.ParseRef(r.version.LambdaARN)
	if err != nil {
		return functions.Ref{}, ferrors.Wrap(err, ferrors.CodeInvalidInput, "deployer.Deploy", "invalid lambdaARN")
	}
	return ref, nil
}

// GatewayGrants returns the invoke grants API Gateway needs to route to a version.
func (d *Deployer) GatewayGrants(appName, semVer string) []functions.Grant {
	base, splat := gateway.RoutePaths(d.cfg.RootPathPrefix, appName, semVer)
	source := fmt.Sprintf("arn:aws:execute-api:%s:%s:%s/*/*", d.cfg.Region, d.cfg.AccountID, d.router.APIID())
	return []functions.Grant{
		{StatementID: GatewayStatementRoot, SourceARN: source + base},
		{StatementID: GatewayStatementSplat, SourceARN: source + splat},
	}
}

func (r *run) grantGateway(ctx context.Context) error {
	ref, err := r.functionRef()
	if err != nil {
		return err
	}
	_, err = r.functions.EnsureGatewayPermissions(ctx, ref, r.GatewayGrants(r.req.AppName, r.req.SemVer))
	return err
}

func (r *run) integrate(ctx context.Context) error {
	if r.version.IntegrationID != "" {
		r.logger.DebugContext(ctx, "integration exists", "integration_id", r.version.IntegrationID)
		return nil
	}

	id, err := r.router.CreateIntegration(ctx, r.version.LambdaARN)
	if err != nil {
		return err
	}
	r.version.IntegrationID = id
	return nil
}

func (r *run) route(ctx context.Context) error {
	base, splat := gateway.RoutePaths(r.cfg.RootPathPrefix, r.req.AppName, r.req.SemVer)
	routes := []struct {
		key string
		id  *string
	}{
		{gateway.RouteKey(base), &r.version.RouteIDAppVersion},
		{gateway.RouteKey(splat), &r.version.RouteIDAppVersionSplat},
	}

	for _, rt := range routes {
		if *rt.id != "" {
			continue
		}

		id, err := r.router.CreateRoute(ctx, rt.key, r.version.IntegrationID)
		if ferrors.IsUnauthorized(err) {
			return err
		}
		if err != nil {
			// Route creation is best effort: other failures are logged, the
			// route id stays empty and the version is still marked routed.
			r.logger.WarnContext(ctx, "route creation failed",
				"route_key", rt.key,
				"error", err)
			continue
		}

		*rt.id = id
		if err := r.save(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) tagFunction(ctx context.Context) error {
	ref, err := r.functionRef()
	if err != nil {
		return err
	}
	_, err = r.functions.EnsureManagedTag(ctx, ref)
	return err
}

func (r *run) resolveAlias(ctx context.Context) error {
	res, err := r.functions.Resolve(ctx, functions.AliasRequest{
		FunctionARN: r.version.LambdaARN,
		SemVer:      r.req.SemVer,
		Overwrite:   r.req.Overwrite,
	})
	if err != nil {
		return err
	}
	r.version.URL = res.URL
	r.result.AliasAction = res.Action
	return nil
}

// ensureDefaultRule creates the app's rule set with a default rule pointing at
// semVer when the app has no rule set yet. An existing rule set is never changed.
func (d *Deployer) ensureDefaultRule(ctx context.Context, appName, semVer string) error {
	rules, err := d.store.LoadRules(ctx, appName)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	if rules != nil {
		return nil
	}

	if err := d.store.SaveRules(ctx, records.NewDefaultRules(appName, semVer)); err != nil {
		return fmt.Errorf("failed to save rules: %w", err)
	}
	d.logger.InfoContext(ctx, "default rule created", "app_name", appName, "sem_ver", semVer)
	return nil
}
