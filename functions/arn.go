package functions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// RefKind classifies the qualifier of a function identifier.
type RefKind int

const (
	// KindFunction is an unqualified function.
	KindFunction RefKind = iota
	// KindRevision is a function qualified by a published version number.
	KindRevision
	// KindAlias is a function qualified by an alias name.
	KindAlias
	// KindLatest is a function qualified by $LATEST.
	KindLatest
)

// String returns a human-readable name of the kind.
func (k RefKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindRevision:
		return "revision"
	case KindAlias:
		return "alias"
	case KindLatest:
		return "$LATEST"
	default:
		return "unknown"
	}
}

const latestQualifier = "$LATEST"

var (
	revisionPattern = regexp.MustCompile(`^[0-9]+$`)
	aliasCharset    = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// Ref is a parsed Lambda function ARN.
type Ref struct {
	arn       arn.ARN
	Name      string
	Qualifier string
	Kind      RefKind
}

// ParseRef parses a function ARN of the form
// arn:aws:lambda:region:account:function:name[:qualifier].
func ParseRef(s string) (Ref, error) {
	parsed, err := arn.Parse(s)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid function arn %q: %w", s, err)
	}
	if parsed.Service != "lambda" {
		return Ref{}, fmt.Errorf("invalid function arn %q: service is %q", s, parsed.Service)
	}

	parts := strings.Split(parsed.Resource, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "function" || parts[1] == "" {
		return Ref{}, fmt.Errorf("invalid function arn %q: unexpected resource %q", s, parsed.Resource)
	}

	ref := Ref{arn: parsed, Name: parts[1], Kind: KindFunction}
	if len(parts) == 3 {
		ref.Qualifier = parts[2]
		switch {
		case ref.Qualifier == latestQualifier:
			ref.Kind = KindLatest
		case revisionPattern.MatchString(ref.Qualifier):
			ref.Kind = KindRevision
		case ref.Qualifier == "":
			return Ref{}, fmt.Errorf("invalid function arn %q: empty qualifier", s)
		default:
			ref.Kind = KindAlias
		}
	}
	return ref, nil
}

// Region returns the region of the function.
func (r Ref) Region() string { return r.arn.Region }

// AccountID returns the account that owns the function.
func (r Ref) AccountID() string { return r.arn.AccountID }

// FunctionARN returns the unqualified function ARN.
func (r Ref) FunctionARN() string {
	a := r.arn
	a.Resource = "function:" + r.Name
	return a.String()
}

// WithQualifier returns the function ARN qualified by q.
func (r Ref) WithQualifier(q string) string {
	if q == "" {
		return r.FunctionARN()
	}
	return r.FunctionARN() + ":" + q
}

// String returns the ARN as parsed.
func (r Ref) String() string {
	return r.WithQualifier(r.Qualifier)
}

// AliasName derives the alias name for a semantic version: "v" followed by
// the lower-cased version with every non-alphanumeric character replaced by
// "_". Versions differing only in case share an alias, matching how records
// are keyed.
func AliasName(semVer string) string {
	return "v" + aliasCharset.ReplaceAllString(strings.ToLower(semVer), "_")
}
