package functions

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// EnsureURL returns the function URL of the alias, creating one with IAM
// authorization when none exists.
func (c *Client) EnsureURL(ctx context.Context, ref Ref, alias string) (string, error) {
	out, err := c.api.GetFunctionUrlConfig(ctx, &lambda.GetFunctionUrlConfigInput{
		FunctionName: aws.String(ref.FunctionARN()),
		Qualifier:    aws.String(alias),
	})
	if err == nil {
		return aws.ToString(out.FunctionUrl), nil
	}
	if !isNotFound(err) {
		return "", handleError(err, "GetFunctionUrlConfig")
	}

	created, err := c.api.CreateFunctionUrlConfig(ctx, &lambda.CreateFunctionUrlConfigInput{
		FunctionName: aws.String(ref.FunctionARN()),
		Qualifier:    aws.String(alias),
		AuthType:     types.FunctionUrlAuthTypeAwsIam,
	})
	if err != nil {
		return "", handleError(err, "CreateFunctionUrlConfig")
	}

	url := aws.ToString(created.FunctionUrl)
	c.logger.InfoContext(ctx, "function url created",
		"function", ref.FunctionARN(),
		"alias", alias,
		"url", url)
	return url, nil
}
