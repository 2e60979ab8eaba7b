package functions

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/smithy-go"

	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
)

// AWS error code constants
const (
	ResourceNotFoundException = "ResourceNotFoundException"
	ResourceConflictException = "ResourceConflictException"
	AccessDeniedException     = "AccessDeniedException"
)

// LambdaAPI is the subset of the Lambda client used by Client.
type LambdaAPI interface {
	GetFunctionConfiguration(ctx context.Context, params *lambda.GetFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error)
	PublishVersion(ctx context.Context, params *lambda.PublishVersionInput, optFns ...func(*lambda.Options)) (*lambda.PublishVersionOutput, error)
	DeleteFunction(ctx context.Context, params *lambda.DeleteFunctionInput, optFns ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error)

	GetAlias(ctx context.Context, params *lambda.GetAliasInput, optFns ...func(*lambda.Options)) (*lambda.GetAliasOutput, error)
	CreateAlias(ctx context.Context, params *lambda.CreateAliasInput, optFns ...func(*lambda.Options)) (*lambda.CreateAliasOutput, error)
	UpdateAlias(ctx context.Context, params *lambda.UpdateAliasInput, optFns ...func(*lambda.Options)) (*lambda.UpdateAliasOutput, error)
	DeleteAlias(ctx context.Context, params *lambda.DeleteAliasInput, optFns ...func(*lambda.Options)) (*lambda.DeleteAliasOutput, error)

	ListTags(ctx context.Context, params *lambda.ListTagsInput, optFns ...func(*lambda.Options)) (*lambda.ListTagsOutput, error)
	TagResource(ctx context.Context, params *lambda.TagResourceInput, optFns ...func(*lambda.Options)) (*lambda.TagResourceOutput, error)

	GetFunctionUrlConfig(ctx context.Context, params *lambda.GetFunctionUrlConfigInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionUrlConfigOutput, error)
	CreateFunctionUrlConfig(ctx context.Context, params *lambda.CreateFunctionUrlConfigInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionUrlConfigOutput, error)

	GetPolicy(ctx context.Context, params *lambda.GetPolicyInput, optFns ...func(*lambda.Options)) (*lambda.GetPolicyOutput, error)
	AddPermission(ctx context.Context, params *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
	RemovePermission(ctx context.Context, params *lambda.RemovePermissionInput, optFns ...func(*lambda.Options)) (*lambda.RemovePermissionOutput, error)
}

// Invoker invokes a function synchronously.
type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

var (
	_ LambdaAPI = (*lambda.Client)(nil)
	_ Invoker   = (*lambda.Client)(nil)
)

// ErrAccessDenied is returned when Lambda denies a call.
var ErrAccessDenied = errors.New("functions: access denied")

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func isNotFound(err error) bool { return errorCode(err) == ResourceNotFoundException }

func isConflict(err error) bool { return errorCode(err) == ResourceConflictException }

// handleError classifies errors from Lambda operations.
func handleError(err error, operation string) error {
	if err == nil {
		return nil
	}

	switch errorCode(err) {
	case AccessDeniedException:
		return ferrors.Wrap(fmt.Errorf("%w: %v", ErrAccessDenied, err),
			ferrors.CodeUnauthorized, "functions."+operation, "permission denied")
	case ResourceNotFoundException:
		return ferrors.Wrap(err, ferrors.CodeNotFound, "functions."+operation, "function not found")
	}

	return fmt.Errorf("%s operation failed: %w", operation, err)
}
