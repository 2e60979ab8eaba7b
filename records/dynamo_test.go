package records

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDynamoDBAPI implements DynamoDBAPI for testing. When a function field
// is nil the call is served from an in-memory table keyed by PK and SK.
type mockDynamoDBAPI struct {
	getItemFunc    func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	putItemFunc    func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	deleteItemFunc func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)

	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	puts  []string
}

func newMockDynamoDBAPI() *mockDynamoDBAPI {
	return &mockDynamoDBAPI{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(k map[string]types.AttributeValue) string {
	pk := k["PK"].(*types.AttributeValueMemberS).Value
	sk := k["SK"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (m *mockDynamoDBAPI) GetItem(
	ctx context.Context,
	params *dynamodb.GetItemInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.GetItemOutput, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, params, optFns...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: m.items[itemKey(params.Key)]}, nil
}

func (m *mockDynamoDBAPI) PutItem(
	ctx context.Context,
	params *dynamodb.PutItemInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.PutItemOutput, error) {
	if m.putItemFunc != nil {
		return m.putItemFunc(ctx, params, optFns...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := itemKey(params.Item)
	m.items[k] = params.Item
	m.puts = append(m.puts, k)
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoDBAPI) DeleteItem(
	ctx context.Context,
	params *dynamodb.DeleteItemInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.DeleteItemOutput, error) {
	if m.deleteItemFunc != nil {
		return m.deleteItemFunc(ctx, params, optFns...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, itemKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoStoreVersionRoundTrip(t *testing.T) {
	ctx := context.Background()
	api := newMockDynamoDBAPI()
	store := NewDynamoStore(api, "microapps")

	v := &Version{
		AppName:       "NewApp",
		SemVer:        "1.2.3-Beta",
		Type:          AppTypeLambda,
		StartupType:   StartupIframe,
		Status:        StatusIntegrated,
		DefaultFile:   "index.html",
		LambdaARN:     "arn:aws:lambda:us-east-1:123456789012:function:f:3",
		IntegrationID: "int-1",
	}
	require.NoError(t, store.SaveVersion(ctx, v))
	assert.Equal(t, []string{"appname#newapp|version#1.2.3-beta"}, api.puts)

	got, err := store.LoadVersion(ctx, "newapp", "1.2.3-beta")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusIntegrated, got.Status)
	assert.Equal(t, "int-1", got.IntegrationID)
	assert.Equal(t, "newapp", got.AppName)
	assert.Empty(t, got.RouteIDAppVersion)

	require.NoError(t, store.DeleteVersion(ctx, "NewApp", "1.2.3-beta"))
	got, err = store.LoadVersion(ctx, "newapp", "1.2.3-beta")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDynamoStoreSaveApplicationWritesBothKeys(t *testing.T) {
	ctx := context.Background()
	api := newMockDynamoDBAPI()
	store := NewDynamoStore(api, "microapps")

	require.NoError(t, store.SaveApplication(ctx, &Application{AppName: "App", DisplayName: "App"}))
	assert.Equal(t, []string{"appname#app|application", "applications|appname#app"}, api.puts)

	got, err := store.LoadApplication(ctx, "app")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "app", got.AppName)
}

func TestDynamoStoreSaveApplicationStopsOnFirstFailure(t *testing.T) {
	ctx := context.Background()
	api := newMockDynamoDBAPI()
	calls := 0
	api.putItemFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
		calls++
		return nil, errors.New("table unavailable")
	}
	store := NewDynamoStore(api, "microapps")

	err := store.SaveApplication(ctx, &Application{AppName: "app"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table unavailable")
	assert.Equal(t, 1, calls)
}

func TestDynamoStoreRules(t *testing.T) {
	ctx := context.Background()
	store := NewDynamoStore(newMockDynamoDBAPI(), "microapps")

	got, err := store.LoadRules(ctx, "app")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.SaveRules(ctx, NewDefaultRules("App", "0.0.1")))
	got, err = store.LoadRules(ctx, "app")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, Rule{SemVer: "0.0.1"}, got.RuleSet[DefaultRuleName])
}

func TestDynamoStorePropagatesBackendErrors(t *testing.T) {
	ctx := context.Background()
	backendErr := errors.New("service unavailable")
	api := newMockDynamoDBAPI()
	api.getItemFunc = func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
		assert.Equal(t, "microapps", aws.ToString(params.TableName))
		assert.True(t, aws.ToBool(params.ConsistentRead))
		return nil, fmt.Errorf("wrapped: %w", backendErr)
	}
	store := NewDynamoStore(api, "microapps")

	_, err := store.LoadVersion(ctx, "app", "1.0.0")
	assert.ErrorIs(t, err, backendErr)
}
