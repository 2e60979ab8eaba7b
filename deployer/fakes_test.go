package deployer

import (
	"context"
	"fmt"

	"github.com/input-output-hk/catalyst-forge-deployer/config"
	"github.com/input-output-hk/catalyst-forge-deployer/credentials"
	"github.com/input-output-hk/catalyst-forge-deployer/functions"
	"github.com/input-output-hk/catalyst-forge-deployer/records"
)

// recorder collects the external calls made by every fake in order.
type recorder struct {
	calls []string
}

func (r *recorder) record(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

type fakeMover struct {
	rec        *recorder
	promoteErr error
	removeErr  error
}

func (m *fakeMover) Promote(_ context.Context, prefix string) (int, error) {
	m.rec.record("Promote %s", prefix)
	return 1, m.promoteErr
}

func (m *fakeMover) Remove(_ context.Context, prefix string) (int, error) {
	m.rec.record("Remove %s", prefix)
	return 1, m.removeErr
}

func (m *fakeMover) StagingURI(prefix string) string {
	return "s3://staging/" + prefix
}

type fakeRouter struct {
	rec            *recorder
	next           int
	integrationErr error
	routeErr       map[string]error
	deleteErr      error
}

func (r *fakeRouter) APIID() string { return "api-1" }

func (r *fakeRouter) CreateIntegration(_ context.Context, functionARN string) (string, error) {
	r.rec.record("CreateIntegration %s", functionARN)
	if r.integrationErr != nil {
		return "", r.integrationErr
	}
	r.next++
	return fmt.Sprintf("int-%d", r.next), nil
}

func (r *fakeRouter) CreateRoute(_ context.Context, routeKey, integrationID string) (string, error) {
	r.rec.record("CreateRoute %s -> %s", routeKey, integrationID)
	if err := r.routeErr[routeKey]; err != nil {
		return "", err
	}
	r.next++
	return fmt.Sprintf("route-%d", r.next), nil
}

func (r *fakeRouter) DeleteRoute(_ context.Context, routeID string) error {
	r.rec.record("DeleteRoute %s", routeID)
	return r.deleteErr
}

func (r *fakeRouter) DeleteIntegration(_ context.Context, integrationID string) error {
	r.rec.record("DeleteIntegration %s", integrationID)
	return r.deleteErr
}

type fakeFunctions struct {
	rec        *recorder
	grantErr   error
	resolveErr error
	retireErr  error
	// aliases maps alias name to the revision it points at.
	aliases map[string]string
	grants  []functions.Grant
	// retired lists the alias names Retire removed.
	retired []string
}

func (f *fakeFunctions) EnsureManagedTag(_ context.Context, ref functions.Ref) (bool, error) {
	f.rec.record("EnsureManagedTag %s", ref.FunctionARN())
	return true, nil
}

func (f *fakeFunctions) EnsureGatewayPermissions(_ context.Context, ref functions.Ref, grants []functions.Grant) (bool, error) {
	f.rec.record("EnsureGatewayPermissions %s", ref.String())
	f.grants = grants
	return true, f.grantErr
}

func (f *fakeFunctions) Resolve(_ context.Context, req functions.AliasRequest) (*functions.AliasResult, error) {
	f.rec.record("Resolve %s %s", req.FunctionARN, req.SemVer)
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}

	ref, err := functions.ParseRef(req.FunctionARN)
	if err != nil {
		return nil, err
	}
	if f.aliases == nil {
		f.aliases = map[string]string{}
	}

	name := functions.AliasName(req.SemVer)
	res := &functions.AliasResult{
		AliasName: name,
		AliasARN:  ref.WithQualifier(name),
		Revision:  ref.Qualifier,
		URL:       "https://" + name + ".lambda-url.us-east-1.on.aws/",
	}
	current, ok := f.aliases[name]
	switch {
	case !ok:
		res.Action = functions.ActionCreated
	case current == ref.Qualifier:
		res.Action = functions.ActionVerified
	case req.Overwrite:
		res.Action = functions.ActionUpdated
	default:
		return nil, functions.ErrAliasMismatch
	}
	f.aliases[name] = ref.Qualifier
	return res, nil
}

func (f *fakeFunctions) Retire(_ context.Context, functionARN, semVer string) error {
	f.rec.record("Retire %s %s", functionARN, semVer)
	if f.retireErr != nil {
		return f.retireErr
	}

	name := functions.AliasName(semVer)
	if _, ok := f.aliases[name]; ok {
		delete(f.aliases, name)
		f.retired = append(f.retired, name)
	}
	return nil
}

type fakeIssuer struct {
	rec *recorder
	err error
}

func (i *fakeIssuer) Issue(_ context.Context, bucket, prefix string) (*credentials.Credentials, error) {
	i.rec.record("Issue %s %s", bucket, prefix)
	if i.err != nil {
		return nil, i.err
	}
	return &credentials.Credentials{AccessKeyID: "AKIA", SecretAccessKey: "secret", SessionToken: "token"}, nil
}

type harness struct {
	rec       *recorder
	store     *records.MemoryStore
	mover     *fakeMover
	router    *fakeRouter
	functions *fakeFunctions
	issuer    *fakeIssuer
	deployer  *Deployer
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.AccountID = "123456789012"
	cfg.Region = "us-east-1"
	cfg.StagingBucket = "staging"
	cfg.ProductionBucket = "production"
	cfg.TableName = "microapps"
	cfg.APIGatewayID = "api-1"
	cfg.AllowedCallerARNs = []string{"arn:aws:iam::111111111111:role/router"}
	return cfg
}

func newHarness() *harness {
	rec := &recorder{}
	h := &harness{
		rec:       rec,
		store:     records.NewMemoryStore(),
		mover:     &fakeMover{rec: rec},
		router:    &fakeRouter{rec: rec},
		functions: &fakeFunctions{rec: rec},
		issuer:    &fakeIssuer{rec: rec},
	}
	h.deployer = New(testConfig(), h.store, h.mover,
		WithRouter(h.router),
		WithFunctionManager(h.functions),
		WithCredentialIssuer(h.issuer))
	return h
}

// reset forgets the calls recorded so far.
func (h *harness) reset() {
	h.rec.calls = nil
}
