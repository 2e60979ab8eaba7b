package records

import "strings"

// Status is the forward-only rollout checkpoint of a Version. Each value means
// every step up to and including that one has durably completed.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAssetsCopied Status = "assets-copied"
	StatusPermissioned Status = "permissioned"
	StatusIntegrated   Status = "integrated"
	StatusRouted       Status = "routed"
	// StatusDeployed is the terminal alias of routed used by downstream readers.
	StatusDeployed Status = "deployed"
)

var statusRank = map[Status]int{
	StatusPending:      0,
	StatusAssetsCopied: 1,
	StatusPermissioned: 2,
	StatusIntegrated:   3,
	StatusRouted:       4,
	StatusDeployed:     4,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank orders statuses along the rollout. Unknown statuses rank below pending.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// IsRouted reports whether the version is serving traffic.
func (s Status) IsRouted() bool {
	return s == StatusRouted || s == StatusDeployed
}

// AppType selects how a version is served.
type AppType string

const (
	// AppTypeLambda serves through an API Gateway integration.
	AppTypeLambda AppType = "lambda"
	// AppTypeLambdaURL serves through a function URL bound to an alias.
	AppTypeLambdaURL AppType = "lambda-url"
	// AppTypeStatic serves artifacts only.
	AppTypeStatic AppType = "static"
	// AppTypeURL is hosted elsewhere; only the URL is recorded.
	AppTypeURL AppType = "url"
)

// Valid reports whether t is a known app type.
func (t AppType) Valid() bool {
	switch t {
	case AppTypeLambda, AppTypeLambdaURL, AppTypeStatic, AppTypeURL:
		return true
	}
	return false
}

// UsesFunction reports whether versions of this type are backed by a function.
func (t AppType) UsesFunction() bool {
	return t == AppTypeLambda || t == AppTypeLambdaURL
}

// StartupType selects how the router presents a version.
type StartupType string

const (
	StartupIframe StartupType = "iframe"
	StartupDirect StartupType = "direct"
)

// Valid reports whether s is a known startup type.
func (s StartupType) Valid() bool {
	return s == StartupIframe || s == StartupDirect
}

// Application is a deployable micro-app.
type Application struct {
	AppName     string `json:"appName" dynamodbav:"AppName"`
	DisplayName string `json:"displayName" dynamodbav:"DisplayName"`
}

// Version is one deployable version of an Application. The identifier
// fields double as idempotency state: a non-empty IntegrationID means the
// integration already exists.
type Version struct {
	AppName                string      `json:"appName" dynamodbav:"AppName"`
	SemVer                 string      `json:"semVer" dynamodbav:"SemVer"`
	Type                   AppType     `json:"type" dynamodbav:"Type"`
	StartupType            StartupType `json:"startupType" dynamodbav:"StartupType"`
	Status                 Status      `json:"status" dynamodbav:"Status"`
	DefaultFile            string      `json:"defaultFile,omitempty" dynamodbav:"DefaultFile,omitempty"`
	LambdaARN              string      `json:"lambdaArn,omitempty" dynamodbav:"LambdaARN,omitempty"`
	URL                    string      `json:"url,omitempty" dynamodbav:"URL,omitempty"`
	IntegrationID          string      `json:"integrationId,omitempty" dynamodbav:"IntegrationID,omitempty"`
	RouteIDAppVersion      string      `json:"routeIdAppVersion,omitempty" dynamodbav:"RouteIDAppVersion,omitempty"`
	RouteIDAppVersionSplat string      `json:"routeIdAppVersionSplat,omitempty" dynamodbav:"RouteIDAppVersionSplat,omitempty"`
}

// Rule points the router at a version, optionally only for requests whose
// attribute matches.
type Rule struct {
	SemVer         string `json:"semVer" dynamodbav:"SemVer"`
	AttributeName  string `json:"attributeName" dynamodbav:"AttributeName"`
	AttributeValue string `json:"attributeValue" dynamodbav:"AttributeValue"`
}

// DefaultRuleName is the fallback rule consulted when no other rule matches.
const DefaultRuleName = "default"

// Rules is the routing rule set of an Application. Version is a document
// revision counter, not an app version.
type Rules struct {
	AppName string          `json:"appName" dynamodbav:"AppName"`
	RuleSet map[string]Rule `json:"ruleSet" dynamodbav:"RuleSet"`
	Version int             `json:"version" dynamodbav:"Version"`
}

// NewDefaultRules returns a rule set whose default rule points at semVer.
func NewDefaultRules(appName, semVer string) *Rules {
	return &Rules{
		AppName: normalize(appName),
		RuleSet: map[string]Rule{
			DefaultRuleName: {SemVer: semVer},
		},
	}
}

// normalize lower-cases identity fields; lookups are case-insensitive.
func normalize(s string) string {
	return strings.ToLower(s)
}
