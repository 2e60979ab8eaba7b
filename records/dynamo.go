package records

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Sort key values and key prefixes of the single-table layout.
const (
	applicationsPK  = "applications"
	applicationSK   = "application"
	rulesSK         = "rules"
	appNamePrefix   = "appname#"
	versionSKPrefix = "version#"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoDBAPI interface {
	GetItem(
		ctx context.Context,
		params *dynamodb.GetItemInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.GetItemOutput, error)

	PutItem(
		ctx context.Context,
		params *dynamodb.PutItemInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.PutItemOutput, error)

	DeleteItem(
		ctx context.Context,
		params *dynamodb.DeleteItemInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.DeleteItemOutput, error)
}

var _ DynamoDBAPI = (*dynamodb.Client)(nil)

// DynamoStore is a Store backed by a single DynamoDB table keyed by PK and SK.
//
// Layout:
//
//	PK=appname#<app>   SK=application        Application by name
//	PK=applications    SK=appname#<app>      Application index
//	PK=appname#<app>   SK=version#<semver>   Version
//	PK=appname#<app>   SK=rules              Rules
type DynamoStore struct {
	api    DynamoDBAPI
	table  string
	logger *slog.Logger
}

// Option configures a DynamoStore.
type Option func(*DynamoStore)

// WithLogger configures the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *DynamoStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewDynamoStore creates a store over the given table.
func NewDynamoStore(api DynamoDBAPI, table string, opts ...Option) *DynamoStore {
	s := &DynamoStore{
		api:    api,
		table:  table,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Store = (*DynamoStore)(nil)

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func appPK(appName string) string {
	return appNamePrefix + normalize(appName)
}

func versionSK(semVer string) string {
	return versionSKPrefix + normalize(semVer)
}

// get loads the item at pk/sk into out. It reports false when the item is absent.
func (s *DynamoStore) get(ctx context.Context, pk, sk string, out any) (bool, error) {
	resp, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("get item %s/%s: %w", pk, sk, err)
	}
	if len(resp.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(resp.Item, out); err != nil {
		return false, fmt.Errorf("decode item %s/%s: %w", pk, sk, err)
	}
	return true, nil
}

// put writes record at pk/sk, replacing any existing item.
func (s *DynamoStore) put(ctx context.Context, pk, sk string, record any) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("encode item %s/%s: %w", pk, sk, err)
	}
	for k, v := range key(pk, sk) {
		item[k] = v
	}

	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put item %s/%s: %w", pk, sk, err)
	}
	return nil
}

// LoadApplication implements Store.
func (s *DynamoStore) LoadApplication(ctx context.Context, appName string) (*Application, error) {
	var app Application
	found, err := s.get(ctx, appPK(appName), applicationSK, &app)
	if err != nil || !found {
		return nil, err
	}
	return &app, nil
}

// SaveApplication writes the by-name record and then the index record. A crash
// between the two leaves the by-name record, which is all readers require.
func (s *DynamoStore) SaveApplication(ctx context.Context, app *Application) error {
	record := *app
	record.AppName = normalize(app.AppName)

	if err := s.put(ctx, appPK(record.AppName), applicationSK, &record); err != nil {
		return err
	}
	if err := s.put(ctx, applicationsPK, appPK(record.AppName), &record); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "application saved", "app_name", record.AppName)
	return nil
}

// LoadVersion implements Store.
func (s *DynamoStore) LoadVersion(ctx context.Context, appName, semVer string) (*Version, error) {
	var v Version
	found, err := s.get(ctx, appPK(appName), versionSK(semVer), &v)
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}

// SaveVersion implements Store.
func (s *DynamoStore) SaveVersion(ctx context.Context, v *Version) error {
	record := *v
	record.AppName = normalize(v.AppName)
	record.SemVer = normalize(v.SemVer)

	if err := s.put(ctx, appPK(record.AppName), versionSK(record.SemVer), &record); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "version saved",
		"app_name", record.AppName,
		"sem_ver", record.SemVer,
		"status", record.Status)
	return nil
}

// DeleteVersion implements Store. Deleting an absent item succeeds.
func (s *DynamoStore) DeleteVersion(ctx context.Context, appName, semVer string) error {
	if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key(appPK(appName), versionSK(semVer)),
	}); err != nil {
		return fmt.Errorf("delete version %s/%s: %w", appName, semVer, err)
	}
	return nil
}

// LoadRules implements Store.
func (s *DynamoStore) LoadRules(ctx context.Context, appName string) (*Rules, error) {
	var r Rules
	found, err := s.get(ctx, appPK(appName), rulesSK, &r)
	if err != nil || !found {
		return nil, err
	}
	return &r, nil
}

// SaveRules implements Store.
func (s *DynamoStore) SaveRules(ctx context.Context, rules *Rules) error {
	record := *rules
	record.AppName = normalize(rules.AppName)
	return s.put(ctx, appPK(record.AppName), rulesSK, &record)
}
