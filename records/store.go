package records

import "context"

// Store is the record store used by the deployer. Implementations must be safe
// for concurrent use. Backend failures are returned to the caller unmodified.
type Store interface {
	// LoadApplication returns nil, nil when the application does not exist.
	LoadApplication(ctx context.Context, appName string) (*Application, error)
	SaveApplication(ctx context.Context, app *Application) error

	// LoadVersion returns nil, nil when the version does not exist.
	LoadVersion(ctx context.Context, appName, semVer string) (*Version, error)
	SaveVersion(ctx context.Context, v *Version) error
	DeleteVersion(ctx context.Context, appName, semVer string) error

	// LoadRules returns nil, nil when the application has no rules.
	LoadRules(ctx context.Context, appName string) (*Rules, error)
	SaveRules(ctx context.Context, rules *Rules) error
}
