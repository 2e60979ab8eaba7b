package deployer

import (
	"context"
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-deployer/config"
	"github.com/input-output-hk/catalyst-forge-deployer/credentials"
	"github.com/input-output-hk/catalyst-forge-deployer/functions"
	"github.com/input-output-hk/catalyst-forge-deployer/records"
)

// ArtifactMover moves version artifacts between the staging and production buckets.
type ArtifactMover interface {
	Promote(ctx context.Context, prefix string) (int, error)
	Remove(ctx context.Context, prefix string) (int, error)
	StagingURI(prefix string) string
}

// Router manages the API Gateway objects that route to a version.
type Router interface {
	APIID() string
	CreateIntegration(ctx context.Context, functionARN string) (string, error)
	CreateRoute(ctx context.Context, routeKey, integrationID string) (string, error)
	DeleteRoute(ctx context.Context, routeID string) error
	DeleteIntegration(ctx context.Context, integrationID string) error
}

// FunctionManager manages the function side of a version.
type FunctionManager interface {
	EnsureManagedTag(ctx context.Context, ref functions.Ref) (bool, error)
	EnsureGatewayPermissions(ctx context.Context, ref functions.Ref, grants []functions.Grant) (bool, error)
	Resolve(ctx context.Context, req functions.AliasRequest) (*functions.AliasResult, error)
	Retire(ctx context.Context, functionARN, semVer string) error
}

// CredentialIssuer mints upload credentials for a staging prefix.
type CredentialIssuer interface {
	Issue(ctx context.Context, bucket, prefix string) (*credentials.Credentials, error)
}

// Deployer runs rollouts and teardowns of micro-app versions.
type Deployer struct {
	cfg       config.Config
	store     records.Store
	mover     ArtifactMover
	router    Router
	functions FunctionManager
	issuer    CredentialIssuer
	logger    *slog.Logger
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithRouter sets the API Gateway client used by lambda versions.
func WithRouter(r Router) Option {
	return func(d *Deployer) {
		d.router = r
	}
}

// WithFunctionManager sets the Lambda client used by lambda and lambda-url versions.
func WithFunctionManager(f FunctionManager) Option {
	return func(d *Deployer) {
		d.functions = f
	}
}

// WithCredentialIssuer sets the broker used by preflight. Without one,
// preflight never returns credentials.
func WithCredentialIssuer(i CredentialIssuer) Option {
	return func(d *Deployer) {
		d.issuer = i
	}
}

// WithLogger configures the deployer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deployer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a Deployer. cfg is copied; later changes to it have no effect.
func New(cfg *config.Config, store records.Store, mover ArtifactMover, opts ...Option) *Deployer {
	d := &Deployer{
		cfg:    *cfg,
		store:  store,
		mover:  mover,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AllowedCallerARNs returns the caller identities this deployer grants on
// function URLs. Child deployers query it through getConfig.
func (d *Deployer) AllowedCallerARNs() []string {
	out := make([]string, len(d.cfg.AllowedCallerARNs))
	copy(out, d.cfg.AllowedCallerARNs)
	return out
}
