package functions

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/smithy-go"
)

// mockLambdaAPI implements LambdaAPI and Invoker for testing. Every call is
// recorded by operation name.
type mockLambdaAPI struct {
	calls []string

	getFunctionConfigurationFunc func(ctx context.Context, params *lambda.GetFunctionConfigurationInput) (*lambda.GetFunctionConfigurationOutput, error)
	publishVersionFunc           func(ctx context.Context, params *lambda.PublishVersionInput) (*lambda.PublishVersionOutput, error)
	deleteFunctionFunc           func(ctx context.Context, params *lambda.DeleteFunctionInput) (*lambda.DeleteFunctionOutput, error)
	getAliasFunc                 func(ctx context.Context, params *lambda.GetAliasInput) (*lambda.GetAliasOutput, error)
	createAliasFunc              func(ctx context.Context, params *lambda.CreateAliasInput) (*lambda.CreateAliasOutput, error)
	updateAliasFunc              func(ctx context.Context, params *lambda.UpdateAliasInput) (*lambda.UpdateAliasOutput, error)
	deleteAliasFunc              func(ctx context.Context, params *lambda.DeleteAliasInput) (*lambda.DeleteAliasOutput, error)
	listTagsFunc                 func(ctx context.Context, params *lambda.ListTagsInput) (*lambda.ListTagsOutput, error)
	tagResourceFunc              func(ctx context.Context, params *lambda.TagResourceInput) (*lambda.TagResourceOutput, error)
	getFunctionUrlConfigFunc     func(ctx context.Context, params *lambda.GetFunctionUrlConfigInput) (*lambda.GetFunctionUrlConfigOutput, error)
	createFunctionUrlConfigFunc  func(ctx context.Context, params *lambda.CreateFunctionUrlConfigInput) (*lambda.CreateFunctionUrlConfigOutput, error)
	getPolicyFunc                func(ctx context.Context, params *lambda.GetPolicyInput) (*lambda.GetPolicyOutput, error)
	addPermissionFunc            func(ctx context.Context, params *lambda.AddPermissionInput) (*lambda.AddPermissionOutput, error)
	removePermissionFunc         func(ctx context.Context, params *lambda.RemovePermissionInput) (*lambda.RemovePermissionOutput, error)
	invokeFunc                   func(ctx context.Context, params *lambda.InvokeInput) (*lambda.InvokeOutput, error)
}

func (m *mockLambdaAPI) GetFunctionConfiguration(ctx context.Context, params *lambda.GetFunctionConfigurationInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error) {
	m.calls = append(m.calls, "GetFunctionConfiguration")
	if m.getFunctionConfigurationFunc != nil {
		return m.getFunctionConfigurationFunc(ctx, params)
	}
	return nil, errors.New("GetFunctionConfiguration not implemented")
}

func (m *mockLambdaAPI) PublishVersion(ctx context.Context, params *lambda.PublishVersionInput, _ ...func(*lambda.Options)) (*lambda.PublishVersionOutput, error) {
	m.calls = append(m.calls, "PublishVersion")
	if m.publishVersionFunc != nil {
		return m.publishVersionFunc(ctx, params)
	}
	return nil, errors.New("PublishVersion not implemented")
}

func (m *mockLambdaAPI) DeleteFunction(ctx context.Context, params *lambda.DeleteFunctionInput, _ ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error) {
	m.calls = append(m.calls, "DeleteFunction")
	if m.deleteFunctionFunc != nil {
		return m.deleteFunctionFunc(ctx, params)
	}
	return nil, errors.New("DeleteFunction not implemented")
}

func (m *mockLambdaAPI) GetAlias(ctx context.Context, params *lambda.GetAliasInput, _ ...func(*lambda.Options)) (*lambda.GetAliasOutput, error) {
	m.calls = append(m.calls, "GetAlias")
	if m.getAliasFunc != nil {
		return m.getAliasFunc(ctx, params)
	}
	return nil, errors.New("GetAlias not implemented")
}

func (m *mockLambdaAPI) CreateAlias(ctx context.Context, params *lambda.CreateAliasInput, _ ...func(*lambda.Options)) (*lambda.CreateAliasOutput, error) {
	m.calls = append(m.calls, "CreateAlias")
	if m.createAliasFunc != nil {
		return m.createAliasFunc(ctx, params)
	}
	return nil, errors.New("CreateAlias not implemented")
}

func (m *mockLambdaAPI) UpdateAlias(ctx context.Context, params *lambda.UpdateAliasInput, _ ...func(*lambda.Options)) (*lambda.UpdateAliasOutput, error) {
	m.calls = append(m.calls, "UpdateAlias")
	if m.updateAliasFunc != nil {
		return m.updateAliasFunc(ctx, params)
	}
	return nil, errors.New("UpdateAlias not implemented")
}

func (m *mockLambdaAPI) DeleteAlias(ctx context.Context, params *lambda.DeleteAliasInput, _ ...func(*lambda.Options)) (*lambda.DeleteAliasOutput, error) {
	m.calls = append(m.calls, "DeleteAlias")
	if m.deleteAliasFunc != nil {
		return m.deleteAliasFunc(ctx, params)
	}
	return nil, errors.New("DeleteAlias not implemented")
}

func (m *mockLambdaAPI) ListTags(ctx context.Context, params *lambda.ListTagsInput, _ ...func(*lambda.Options)) (*lambda.ListTagsOutput, error) {
	m.calls = append(m.calls, "ListTags")
	if m.listTagsFunc != nil {
		return m.listTagsFunc(ctx, params)
	}
	return nil, errors.New("ListTags not implemented")
}

func (m *mockLambdaAPI) TagResource(ctx context.Context, params *lambda.TagResourceInput, _ ...func(*lambda.Options)) (*lambda.TagResourceOutput, error) {
	m.calls = append(m.calls, "TagResource")
	if m.tagResourceFunc != nil {
		return m.tagResourceFunc(ctx, params)
	}
	return nil, errors.New("TagResource not implemented")
}

func (m *mockLambdaAPI) GetFunctionUrlConfig(ctx context.Context, params *lambda.GetFunctionUrlConfigInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionUrlConfigOutput, error) {
	m.calls = append(m.calls, "GetFunctionUrlConfig")
	if m.getFunctionUrlConfigFunc != nil {
		return m.getFunctionUrlConfigFunc(ctx, params)
	}
	return nil, errors.New("GetFunctionUrlConfig not implemented")
}

func (m *mockLambdaAPI) CreateFunctionUrlConfig(ctx context.Context, params *lambda.CreateFunctionUrlConfigInput, _ ...func(*lambda.Options)) (*lambda.CreateFunctionUrlConfigOutput, error) {
	m.calls = append(m.calls, "CreateFunctionUrlConfig")
	if m.createFunctionUrlConfigFunc != nil {
		return m.createFunctionUrlConfigFunc(ctx, params)
	}
	return nil, errors.New("CreateFunctionUrlConfig not implemented")
}

func (m *mockLambdaAPI) GetPolicy(ctx context.Context, params *lambda.GetPolicyInput, _ ...func(*lambda.Options)) (*lambda.GetPolicyOutput, error) {
	m.calls = append(m.calls, "GetPolicy")
	if m.getPolicyFunc != nil {
		return m.getPolicyFunc(ctx, params)
	}
	return nil, errors.New("GetPolicy not implemented")
}

func (m *mockLambdaAPI) AddPermission(ctx context.Context, params *lambda.AddPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	m.calls = append(m.calls, "AddPermission")
	if m.addPermissionFunc != nil {
		return m.addPermissionFunc(ctx, params)
	}
	return nil, errors.New("AddPermission not implemented")
}

func (m *mockLambdaAPI) RemovePermission(ctx context.Context, params *lambda.RemovePermissionInput, _ ...func(*lambda.Options)) (*lambda.RemovePermissionOutput, error) {
	m.calls = append(m.calls, "RemovePermission")
	if m.removePermissionFunc != nil {
		return m.removePermissionFunc(ctx, params)
	}
	return nil, errors.New("RemovePermission not implemented")
}

func (m *mockLambdaAPI) Invoke(ctx context.Context, params *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	m.calls = append(m.calls, "Invoke")
	if m.invokeFunc != nil {
		return m.invokeFunc(ctx, params)
	}
	return nil, errors.New("Invoke not implemented")
}

func (m *mockLambdaAPI) count(op string) int {
	n := 0
	for _, c := range m.calls {
		if c == op {
			n++
		}
	}
	return n
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}
