package functions

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// Tag marking functions deployed through this service.
const (
	ManagedTagKey   = "microapp-managed"
	ManagedTagValue = "true"
)

// EnsureManagedTag tags the function behind ref as managed unless it already
// carries the tag. It reports whether a tag was written.
func (c *Client) EnsureManagedTag(ctx context.Context, ref Ref) (bool, error) {
	resource := ref.FunctionARN()

	out, err := c.api.ListTags(ctx, &lambda.ListTagsInput{Resource: aws.String(resource)})
	if err != nil {
		return false, handleError(err, "ListTags")
	}
	if out.Tags[ManagedTagKey] == ManagedTagValue {
		return false, nil
	}

	if _, err := c.api.TagResource(ctx, &lambda.TagResourceInput{
		Resource: aws.String(resource),
		Tags:     map[string]string{ManagedTagKey: ManagedTagValue},
	}); err != nil {
		return false, handleError(err, "TagResource")
	}

	c.logger.InfoContext(ctx, "function tagged as managed", "function", resource)
	return true, nil
}
