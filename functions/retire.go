package functions

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// Retire deletes the alias of semVer on the function behind functionARN and
// then the revision it pointed at. A missing alias or revision counts as
// deleted. A revision still referenced by another alias is kept.
func (c *Client) Retire(ctx context.Context, functionARN, semVer string) error {
	ref, err := ParseRef(functionARN)
	if err != nil {
		return err
	}
	name := AliasName(semVer)

	alias, err := c.api.GetAlias(ctx, &lambda.GetAliasInput{
		FunctionName: aws.String(ref.FunctionARN()),
		Name:         aws.String(name),
	})
	if isNotFound(err) {
		c.logger.DebugContext(ctx, "alias already absent", "function", ref.FunctionARN(), "alias", name)
		return nil
	}
	if err != nil {
		return handleError(err, "GetAlias")
	}
	revision := aws.ToString(alias.FunctionVersion)

	if _, err := c.api.DeleteAlias(ctx, &lambda.DeleteAliasInput{
		FunctionName: aws.String(ref.FunctionARN()),
		Name:         aws.String(name),
	}); err != nil && !isNotFound(err) {
		return handleError(err, "DeleteAlias")
	}
	c.logger.InfoContext(ctx, "alias deleted", "function", ref.FunctionARN(), "alias", name)

	if revision == "" || revision == latestQualifier {
		return nil
	}

	_, err = c.api.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
		FunctionName: aws.String(ref.FunctionARN()),
		Qualifier:    aws.String(revision),
	})
	switch {
	case err == nil:
		c.logger.InfoContext(ctx, "revision deleted", "function", ref.FunctionARN(), "revision", revision)
	case isConflict(err):
		c.logger.InfoContext(ctx, "revision still referenced, kept",
			"function", ref.FunctionARN(),
			"revision", revision)
	case isNotFound(err):
		c.logger.DebugContext(ctx, "revision already absent", "revision", revision)
	default:
		return handleError(err, "DeleteFunction")
	}
	return nil
}
