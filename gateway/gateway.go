// Package gateway manages the routing objects that expose a lambda-type
// version through the shared HTTP API: one AWS_PROXY integration per version
// and two routes pointing at it,
//
//	ANY /{appName}/{semVer}
//	ANY /{appName}/{semVer}/{proxy+}
//
// Access-denied responses surface as ErrAccessDenied; deletes treat a missing
// object as already deleted.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2/types"
	"github.com/aws/smithy-go"

	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
)

// AWS error code constants
const (
	NotFoundException     = "NotFoundException"
	AccessDeniedException = "AccessDeniedException"
)

var (
	// ErrAccessDenied is returned when the caller may not manage routing objects.
	ErrAccessDenied = errors.New("gateway: access denied")

	// ErrAPINotFound is returned when no API matches the configured name.
	ErrAPINotFound = errors.New("gateway: api not found")
)

// API is the subset of the API Gateway v2 client used by Client.
type API interface {
	CreateIntegration(
		ctx context.Context,
		params *apigatewayv2.CreateIntegrationInput,
		optFns ...func(*apigatewayv2.Options),
	) (*apigatewayv2.CreateIntegrationOutput, error)

	DeleteIntegration(
		ctx context.Context,
		params *apigatewayv2.DeleteIntegrationInput,
		optFns ...func(*apigatewayv2.Options),
	) (*apigatewayv2.DeleteIntegrationOutput, error)

	CreateRoute(
		ctx context.Context,
		params *apigatewayv2.CreateRouteInput,
		optFns ...func(*apigatewayv2.Options),
	) (*apigatewayv2.CreateRouteOutput, error)

	DeleteRoute(
		ctx context.Context,
		params *apigatewayv2.DeleteRouteInput,
		optFns ...func(*apigatewayv2.Options),
	) (*apigatewayv2.DeleteRouteOutput, error)

	GetApis(
		ctx context.Context,
		params *apigatewayv2.GetApisInput,
		optFns ...func(*apigatewayv2.Options),
	) (*apigatewayv2.GetApisOutput, error)
}

var _ API = (*apigatewayv2.Client)(nil)

// Client creates and deletes routing objects on one HTTP API.
type Client struct {
	api        API
	apiID      string
	requireIAM bool
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithIAMAuthorization sets whether created routes require AWS_IAM authorization.
func WithIAMAuthorization(required bool) Option {
	return func(c *Client) {
		c.requireIAM = required
	}
}

// WithLogger configures the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for the API with the given id. Routes require IAM
// authorization unless WithIAMAuthorization(false) is passed.
func New(api API, apiID string, opts ...Option) *Client {
	c := &Client{
		api:        api,
		apiID:      apiID,
		requireIAM: true,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIID returns the id of the managed API.
func (c *Client) APIID() string {
	return c.apiID
}

// RoutePaths returns the version path and the greedy splat path of a version.
func RoutePaths(rootPathPrefix, appName, semVer string) (string, string) {
	parts := []string{appName, semVer}
	if root := strings.Trim(rootPathPrefix, "/"); root != "" {
		parts = append([]string{root}, parts...)
	}
	base := "/" + strings.ToLower(strings.Join(parts, "/"))
	return base, base + "/{proxy+}"
}

// RouteKey returns the route key matching any method on path.
func RouteKey(path string) string {
	return "ANY " + path
}

// CreateIntegration creates an AWS_PROXY integration invoking functionARN and
// returns its id.
func (c *Client) CreateIntegration(ctx context.Context, functionARN string) (string, error) {
	out, err := c.api.CreateIntegration(ctx, &apigatewayv2.CreateIntegrationInput{
		ApiId:                aws.String(c.apiID),
		IntegrationType:      types.IntegrationTypeAwsProxy,
		IntegrationUri:       aws.String(functionARN),
		PayloadFormatVersion: aws.String("2.0"),
	})
	if err != nil {
		return "", c.handleError(err, "CreateIntegration")
	}

	id := aws.ToString(out.IntegrationId)
	c.logger.InfoContext(ctx, "integration created",
		"integration_id", id,
		"lambda_arn", functionARN)
	return id, nil
}

// CreateRoute creates a route for routeKey targeting integrationID and returns its id.
func (c *Client) CreateRoute(ctx context.Context, routeKey, integrationID string) (string, error) {
	authType := types.AuthorizationTypeNone
	if c.requireIAM {
		authType = types.AuthorizationTypeAwsIam
	}

	out, err := c.api.CreateRoute(ctx, &apigatewayv2.CreateRouteInput{
		ApiId:             aws.String(c.apiID),
		RouteKey:          aws.String(routeKey),
		Target:            aws.String("integrations/" + integrationID),
		AuthorizationType: authType,
	})
	if err != nil {
		return "", c.handleError(err, "CreateRoute")
	}

	id := aws.ToString(out.RouteId)
	c.logger.InfoContext(ctx, "route created",
		"route_id", id,
		"route_key", routeKey)
	return id, nil
}

// DeleteRoute deletes a route. A route that no longer exists is not an error.
func (c *Client) DeleteRoute(ctx context.Context, routeID string) error {
	_, err := c.api.DeleteRoute(ctx, &apigatewayv2.DeleteRouteInput{
		ApiId:   aws.String(c.apiID),
		RouteId: aws.String(routeID),
	})
	if isNotFound(err) {
		c.logger.DebugContext(ctx, "route already absent", "route_id", routeID)
		return nil
	}
	return c.handleError(err, "DeleteRoute")
}

// DeleteIntegration deletes an integration. A missing integration is not an error.
func (c *Client) DeleteIntegration(ctx context.Context, integrationID string) error {
	_, err := c.api.DeleteIntegration(ctx, &apigatewayv2.DeleteIntegrationInput{
		ApiId:         aws.String(c.apiID),
		IntegrationId: aws.String(integrationID),
	})
	if isNotFound(err) {
		c.logger.DebugContext(ctx, "integration already absent", "integration_id", integrationID)
		return nil
	}
	return c.handleError(err, "DeleteIntegration")
}

// LookupAPIID pages through the account's HTTP APIs and returns the id of the
// one named name.
func LookupAPIID(ctx context.Context, api API, name string) (string, error) {
	var token *string
	for {
		out, err := api.GetApis(ctx, &apigatewayv2.GetApisInput{NextToken: token})
		if err != nil {
			return "", fmt.Errorf("GetApis operation failed: %w", err)
		}
		for _, item := range out.Items {
			if aws.ToString(item.Name) == name {
				return aws.ToString(item.ApiId), nil
			}
		}
		if out.NextToken == nil || aws.ToString(out.NextToken) == "" {
			return "", fmt.Errorf("%w: %s", ErrAPINotFound, name)
		}
		token = out.NextToken
	}
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == NotFoundException
}

// handleError classifies errors from API Gateway operations.
func (c *Client) handleError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case AccessDeniedException:
			return ferrors.Wrap(fmt.Errorf("%w: %s", ErrAccessDenied, apiErr.ErrorMessage()),
				ferrors.CodeUnauthorized, "gateway."+operation, "permission denied")
		case NotFoundException:
			return ferrors.Wrap(err, ferrors.CodeNotFound, "gateway."+operation, "not found")
		}
	}

	return fmt.Errorf("%s operation failed: %w", operation, err)
}
