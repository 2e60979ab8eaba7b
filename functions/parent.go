package functions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// ConfigProvider supplies the caller identities a parent deployer permits.
type ConfigProvider interface {
	AllowedCallerARNs(ctx context.Context) ([]string, error)
}

// LambdaConfigProvider asks a parent deployer function for its configuration
// by invoking it with a getConfig request.
type LambdaConfigProvider struct {
	api       Invoker
	parentARN string
}

// NewLambdaConfigProvider creates a provider querying the deployer at parentARN.
func NewLambdaConfigProvider(api Invoker, parentARN string) *LambdaConfigProvider {
	return &LambdaConfigProvider{api: api, parentARN: parentARN}
}

type configRequest struct {
	Type string `json:"type"`
}

type configResponse struct {
	StatusCode        int      `json:"statusCode"`
	AllowedCallerARNs []string `json:"allowedCallerArns"`
}

// AllowedCallerARNs implements ConfigProvider.
func (p *LambdaConfigProvider) AllowedCallerARNs(ctx context.Context) ([]string, error) {
	payload, err := json.Marshal(configRequest{Type: "getConfig"})
	if err != nil {
		return nil, fmt.Errorf("failed to encode config request: %w", err)
	}

	out, err := p.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(p.parentARN),
		Payload:      payload,
	})
	if err != nil {
		return nil, handleError(err, "Invoke")
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("parent deployer %s failed: %s: %s",
			p.parentARN, aws.ToString(out.FunctionError), string(out.Payload))
	}

	var resp configResponse
	if err := json.Unmarshal(out.Payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode parent config: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("parent deployer %s returned status %d", p.parentARN, resp.StatusCode)
	}
	return resp.AllowedCallerARNs, nil
}

// callers merges the parent's callers with the locally configured ones.
func (c *Client) callers(ctx context.Context) ([]string, error) {
	if c.parent == nil {
		return nil, nil
	}

	remote, err := c.parent.AllowedCallerARNs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allowed callers: %w", err)
	}

	merged := slices.Concat(remote, c.allowedCallers)
	slices.Sort(merged)
	return slices.Compact(merged), nil
}
