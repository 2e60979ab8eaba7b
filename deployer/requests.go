package deployer

import (
	"github.com/Masterminds/semver/v3"

	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
	"github.com/input-output-hk/catalyst-forge-deployer/functions"
	"github.com/input-output-hk/catalyst-forge-deployer/records"
)

// CreateAppRequest registers an application.
type CreateAppRequest struct {
	AppName     string `json:"appName"`
	DisplayName string `json:"displayName,omitempty"`
}

// VersionRequest identifies one app version.
type VersionRequest struct {
	AppName string `json:"appName"`
	SemVer  string `json:"semVer"`
}

// PreflightRequest asks whether a version needs an upload.
type PreflightRequest struct {
	AppName   string `json:"appName"`
	SemVer    string `json:"semVer"`
	Overwrite bool   `json:"overwrite,omitempty"`
}

// DeployRequest asks for a version to be rolled out.
type DeployRequest struct {
	AppName     string              `json:"appName"`
	SemVer      string              `json:"semVer"`
	Type        records.AppType     `json:"appType,omitempty"`
	StartupType records.StartupType `json:"startupType,omitempty"`
	DefaultFile string              `json:"defaultFile,omitempty"`
	LambdaARN   string              `json:"lambdaARN,omitempty"`
	URL         string              `json:"url,omitempty"`
	Overwrite   bool                `json:"overwrite,omitempty"`
}

// AliasRequest asks for the alias of a version to be resolved on its own.
type AliasRequest struct {
	LambdaARN string `json:"lambdaARN"`
	SemVer    string `json:"version"`
	Overwrite bool   `json:"overwrite,omitempty"`
}

func invalid(op, format string, args ...any) error {
	return ferrors.Newf(ferrors.CodeInvalidInput, op, format, args...)
}

func validateVersion(op, appName, semVer string) error {
	if appName == "" {
		return invalid(op, "appName is required")
	}
	return validateSemVer(op, semVer)
}

func validateSemVer(op, semVer string) error {
	if semVer == "" {
		return invalid(op, "semVer is required")
	}
	if _, err := semver.StrictNewVersion(semVer); err != nil {
		return invalid(op, "semVer %q is not a semantic version: %v", semVer, err)
	}
	return nil
}

// normalize fills defaults and validates r. lite requests may omit LambdaARN.
func (r *DeployRequest) normalize(op string, lite bool) error {
	if err := validateVersion(op, r.AppName, r.SemVer); err != nil {
		return err
	}

	if r.Type == "" {
		r.Type = records.AppTypeLambda
	}
	if !r.Type.Valid() {
		return invalid(op, "unknown app type %q", r.Type)
	}

	if r.StartupType == "" {
		r.StartupType = records.StartupIframe
	}
	if !r.StartupType.Valid() {
		return invalid(op, "unknown startup type %q", r.StartupType)
	}
	if r.StartupType == records.StartupDirect && r.Type == records.AppTypeLambda {
		return invalid(op, "startup type %q is not supported for app type %q", r.StartupType, r.Type)
	}

	switch {
	case r.Type == records.AppTypeURL && r.URL == "":
		return invalid(op, "url is required for app type %q", r.Type)
	case r.Type.UsesFunction() && r.LambdaARN == "" && !lite:
		return invalid(op, "lambdaARN is required for app type %q", r.Type)
	}
	if r.LambdaARN != "" {
		if _, err := functions.ParseRef(r.LambdaARN); err != nil {
			return ferrors.Wrap(err, ferrors.CodeInvalidInput, op, "invalid lambdaARN")
		}
	}
	return nil
}
