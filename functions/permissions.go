package functions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// Principal and action of API Gateway invoke grants.
const (
	GatewayPrincipal   = "apigateway.amazonaws.com"
	InvokeAction       = "lambda:InvokeFunction"
	InvokeURLAction    = "lambda:InvokeFunctionUrl"
	callerStatementPfx = "microapps-caller-"
)

// Grant is one resource policy statement allowing API Gateway to invoke a function.
type Grant struct {
	StatementID string
	SourceARN   string
}

type policyDocument struct {
	Statement []struct {
		Sid string `json:"Sid"`
	} `json:"Statement"`
}

// statementIDs returns the statement ids of the resource policy of the
// function qualified by qualifier. A function without a policy has none.
func (c *Client) statementIDs(ctx context.Context, ref Ref, qualifier string) (map[string]bool, error) {
	in := &lambda.GetPolicyInput{FunctionName: aws.String(ref.FunctionARN())}
	if qualifier != "" {
		in.Qualifier = aws.String(qualifier)
	}

	out, err := c.api.GetPolicy(ctx, in)
	if isNotFound(err) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, handleError(err, "GetPolicy")
	}

	var doc policyDocument
	if err := json.Unmarshal([]byte(aws.ToString(out.Policy)), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy of %s: %w", ref.WithQualifier(qualifier), err)
	}

	ids := make(map[string]bool, len(doc.Statement))
	for _, s := range doc.Statement {
		ids[s.Sid] = true
	}
	return ids, nil
}

// EnsureGatewayPermissions makes sure every grant is present on the function
// ref points at. When all are already present no call beyond the policy read
// is made. It reports whether any grant was added.
func (c *Client) EnsureGatewayPermissions(ctx context.Context, ref Ref, grants []Grant) (bool, error) {
	existing, err := c.statementIDs(ctx, ref, ref.Qualifier)
	if err != nil {
		return false, err
	}

	missing := false
	for _, g := range grants {
		if !existing[g.StatementID] {
			missing = true
			break
		}
	}
	if !missing {
		c.logger.DebugContext(ctx, "gateway permissions already present", "function", ref.String())
		return false, nil
	}

	for _, g := range grants {
		// Removal failures are ignored; the statement is usually absent.
		if _, err := c.api.RemovePermission(ctx, c.removePermissionInput(ref, g.StatementID)); err != nil {
			c.logger.DebugContext(ctx, "remove permission before add failed",
				"statement_id", g.StatementID,
				"error", err)
		}

		in := &lambda.AddPermissionInput{
			FunctionName: aws.String(ref.FunctionARN()),
			StatementId:  aws.String(g.StatementID),
			Action:       aws.String(InvokeAction),
			Principal:    aws.String(GatewayPrincipal),
			SourceArn:    aws.String(g.SourceARN),
		}
		if ref.Qualifier != "" {
			in.Qualifier = aws.String(ref.Qualifier)
		}
		if _, err := c.api.AddPermission(ctx, in); err != nil {
			return false, handleError(err, "AddPermission")
		}

		c.logger.InfoContext(ctx, "gateway permission added",
			"function", ref.String(),
			"statement_id", g.StatementID,
			"source_arn", g.SourceARN)
	}

	return true, nil
}

func (c *Client) removePermissionInput(ref Ref, statementID string) *lambda.RemovePermissionInput {
	in := &lambda.RemovePermissionInput{
		FunctionName: aws.String(ref.FunctionARN()),
		StatementId:  aws.String(statementID),
	}
	if ref.Qualifier != "" {
		in.Qualifier = aws.String(ref.Qualifier)
	}
	return in
}

// CallerStatementID returns the stable statement id granting callerARN.
func CallerStatementID(callerARN string) string {
	sum := sha256.Sum256([]byte(callerARN))
	return callerStatementPfx + hex.EncodeToString(sum[:])[:16]
}

// GrantCallers grants every caller missing from the alias's policy permission
// to invoke the alias's function URL. It returns the callers granted.
func (c *Client) GrantCallers(ctx context.Context, ref Ref, alias string, callers []string) ([]string, error) {
	existing, err := c.statementIDs(ctx, ref, alias)
	if err != nil {
		return nil, err
	}

	var granted []string
	for _, caller := range callers {
		sid := CallerStatementID(caller)
		if existing[sid] {
			continue
		}

		if _, err := c.api.AddPermission(ctx, &lambda.AddPermissionInput{
			FunctionName:        aws.String(ref.FunctionARN()),
			Qualifier:           aws.String(alias),
			StatementId:         aws.String(sid),
			Action:              aws.String(InvokeURLAction),
			Principal:           aws.String(caller),
			FunctionUrlAuthType: types.FunctionUrlAuthTypeAwsIam,
		}); err != nil {
			return granted, handleError(err, "AddPermission")
		}

		existing[sid] = true
		granted = append(granted, caller)
		c.logger.InfoContext(ctx, "caller granted",
			"function", ref.FunctionARN(),
			"alias", alias,
			"caller_arn", caller,
			"statement_id", sid)
	}
	return granted, nil
}
