package functions

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/cenkalti/backoff/v4"

	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
)

// Action is what Resolve did to the alias.
type Action string

const (
	ActionVerified Action = "verified"
	ActionUpdated  Action = "updated"
	ActionCreated  Action = "created"
)

// StatusCode returns 201 for a created alias and 200 otherwise.
func (a Action) StatusCode() int {
	if a == ActionCreated {
		return http.StatusCreated
	}
	return http.StatusOK
}

// ErrAliasMismatch is returned when the alias exists, points at a different
// revision and overwrite was not requested.
var ErrAliasMismatch = errors.New("functions: alias points to a different revision")

// AliasRequest asks for the alias of SemVer to point at FunctionARN.
type AliasRequest struct {
	// FunctionARN is a bare function or a published revision.
	FunctionARN string
	SemVer      string
	Overwrite   bool
}

// AliasResult describes the resolved alias.
type AliasResult struct {
	Action    Action
	AliasName string
	AliasARN  string
	Revision  string
	URL       string
}

// Resolve makes the alias for req.SemVer point at the requested revision,
// publishing one first when given a bare function. It then tags the function,
// ensures the alias's function URL and grants cross-account callers.
func (c *Client) Resolve(ctx context.Context, req AliasRequest) (*AliasResult, error) {
	ref, err := ParseRef(req.FunctionARN)
	if err != nil {
		return nil, ferrors.Wrap(err, ferrors.CodeInvalidInput, "functions.Resolve", "invalid function arn")
	}
	if ref.Kind == KindLatest || ref.Kind == KindAlias {
		return nil, ferrors.Newf(ferrors.CodeInvalidInput, "functions.Resolve",
			"%s is a %s; pass a function or a published revision", req.FunctionARN, ref.Kind)
	}

	revision := ref.Qualifier
	if ref.Kind == KindFunction {
		revision, err = c.publish(ctx, ref)
		if err != nil {
			return nil, err
		}
	}

	if _, err := c.api.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(ref.FunctionARN()),
		Qualifier:    aws.String(revision),
	}); err != nil {
		return nil, handleError(err, "GetFunctionConfiguration")
	}

	result := &AliasResult{
		AliasName: AliasName(req.SemVer),
		Revision:  revision,
	}
	if err := c.bindAlias(ctx, ref, result, req.Overwrite); err != nil {
		return nil, err
	}

	if _, err := c.EnsureManagedTag(ctx, ref); err != nil {
		return nil, err
	}

	if result.URL, err = c.EnsureURL(ctx, ref, result.AliasName); err != nil {
		return nil, err
	}

	callers, err := c.callers(ctx)
	if err != nil {
		return nil, err
	}
	if len(callers) > 0 {
		if _, err := c.GrantCallers(ctx, ref, result.AliasName, callers); err != nil {
			return nil, err
		}
	}

	c.logger.InfoContext(ctx, "alias resolved",
		"function", ref.FunctionARN(),
		"alias", result.AliasName,
		"revision", revision,
		"action", result.Action)
	return result, nil
}

// bindAlias creates or repoints the alias and records the action in result.
func (c *Client) bindAlias(ctx context.Context, ref Ref, result *AliasResult, overwrite bool) error {
	existing, err := c.api.GetAlias(ctx, &lambda.GetAliasInput{
		FunctionName: aws.String(ref.FunctionARN()),
		Name:         aws.String(result.AliasName),
	})
	switch {
	case isNotFound(err):
		created, err := c.api.CreateAlias(ctx, &lambda.CreateAliasInput{
			FunctionName:    aws.String(ref.FunctionARN()),
			Name:            aws.String(result.AliasName),
			FunctionVersion: aws.String(result.Revision),
		})
		if err != nil {
			return handleError(err, "CreateAlias")
		}
		result.Action = ActionCreated
		result.AliasARN = aws.ToString(created.AliasArn)
		return nil
	case err != nil:
		return handleError(err, "GetAlias")
	}

	current := aws.ToString(existing.FunctionVersion)
	if current == result.Revision {
		result.Action = ActionVerified
		result.AliasARN = aws.ToString(existing.AliasArn)
		return nil
	}

	if !overwrite {
		return ferrors.Wrap(
			fmt.Errorf("%w: %s -> %s, requested %s", ErrAliasMismatch, result.AliasName, current, result.Revision),
			ferrors.CodeConflict, "functions.Resolve", "alias exists; pass overwrite to repoint it")
	}

	updated, err := c.api.UpdateAlias(ctx, &lambda.UpdateAliasInput{
		FunctionName:    aws.String(ref.FunctionARN()),
		Name:            aws.String(result.AliasName),
		FunctionVersion: aws.String(result.Revision),
	})
	if err != nil {
		return handleError(err, "UpdateAlias")
	}
	result.Action = ActionUpdated
	result.AliasARN = aws.ToString(updated.AliasArn)
	return nil
}

// publish publishes a revision of the function, retrying while Lambda reports
// an update in progress.
func (c *Client) publish(ctx context.Context, ref Ref) (string, error) {
	op := func() (string, error) {
		out, err := c.api.PublishVersion(ctx, &lambda.PublishVersionInput{
			FunctionName: aws.String(ref.FunctionARN()),
		})
		if err != nil {
			if isConflict(err) {
				c.logger.DebugContext(ctx, "publish in progress, retrying", "function", ref.FunctionARN())
				return "", err
			}
			return "", backoff.Permanent(handleError(err, "PublishVersion"))
		}
		return aws.ToString(out.Version), nil
	}

	revision, err := backoff.RetryWithData(op, backoff.WithContext(c.publishBackOff(), ctx))
	if err != nil {
		if isConflict(err) {
			return "", ferrors.Wrap(err, ferrors.CodeUnavailable, "functions.PublishVersion",
				"function update still in progress")
		}
		return "", err
	}

	c.logger.InfoContext(ctx, "revision published",
		"function", ref.FunctionARN(),
		"revision", revision)
	return revision, nil
}
