// Package invoke exposes the deployer through a JSON request envelope. Every
// request names its operation in a "type" field and every response carries
// the outcome as an HTTP status in "statusCode".
package invoke

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-deployer/credentials"
	"github.com/input-output-hk/catalyst-forge-deployer/deployer"
	ferrors "github.com/input-output-hk/catalyst-forge-deployer/errors"
	"github.com/input-output-hk/catalyst-forge-deployer/functions"
	"github.com/input-output-hk/catalyst-forge-deployer/records"
)

// Request types.
const (
	TypeCreateApp         = "createApp"
	TypeDeployPreflight   = "deployVersionPreflight"
	TypeDeployVersion     = "deployVersion"
	TypeDeployVersionLite = "deployVersionLite"
	TypeDeleteVersion     = "deleteVersion"
	TypeGetVersion        = "getVersion"
	TypeLambdaAlias       = "lambdaAlias"
	TypeGetConfig         = "getConfig"
)

// Service is the deployer as seen by the envelope.
type Service interface {
	CreateApp(ctx context.Context, req deployer.CreateAppRequest) (int, error)
	Preflight(ctx context.Context, req deployer.PreflightRequest) (*deployer.PreflightResult, error)
	Deploy(ctx context.Context, req deployer.DeployRequest) (*deployer.DeployResult, error)
	DeployLite(ctx context.Context, req deployer.DeployRequest) (*deployer.DeployResult, error)
	Delete(ctx context.Context, req deployer.VersionRequest) error
	GetVersion(ctx context.Context, req deployer.VersionRequest) (*records.Version, error)
	ResolveAlias(ctx context.Context, req deployer.AliasRequest) (*functions.AliasResult, error)
	AllowedCallerARNs() []string
}

var _ Service = (*deployer.Deployer)(nil)

// Response is the reply to any request. Fields not produced by the
// operation are omitted.
type Response struct {
	StatusCode   int    `json:"statusCode"`
	RequestID    string `json:"requestId,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	S3UploadURL    string                   `json:"s3UploadUrl,omitempty"`
	AWSCredentials *credentials.Credentials `json:"awsCredentials,omitempty"`

	ActionTaken functions.Action `json:"actionTaken,omitempty"`
	AliasARN    string           `json:"aliasArn,omitempty"`
	URL         string           `json:"url,omitempty"`

	Version *records.Version `json:"version,omitempty"`

	AllowedCallerARNs []string `json:"allowedCallerArns,omitempty"`
}

type envelope struct {
	Type string `json:"type"`
}

// Handler dispatches envelopes to a Service.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger configures the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a Handler.
func NewHandler(svc Service, opts ...Option) *Handler {
	h := &Handler{
		svc:    svc,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle decodes payload, runs the requested operation and returns its response.
// Failures are reported through the response, never as a Go error.
func (h *Handler) Handle(ctx context.Context, payload []byte) *Response {
	requestID := uuid.NewString()
	logger := h.logger.With("request_id", requestID)

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return h.fail(ctx, logger, requestID, ferrors.Wrap(err, ferrors.CodeInvalidInput, "invoke.Handle", "malformed request"))
	}
	logger = logger.With("type", env.Type)
	logger.InfoContext(ctx, "request received")

	resp, err := h.dispatch(ctx, env.Type, payload)
	if err != nil {
		return h.fail(ctx, logger, requestID, err)
	}

	resp.RequestID = requestID
	logger.InfoContext(ctx, "request complete", "status_code", resp.StatusCode)
	return resp
}

func (h *Handler) dispatch(ctx context.Context, typ string, payload []byte) (*Response, error) {
	switch typ {
	case TypeCreateApp:
		var req deployer.CreateAppRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		code, err := h.svc.CreateApp(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Response{StatusCode: code}, nil

	case TypeDeployPreflight:
		var req deployer.PreflightRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		res, err := h.svc.Preflight(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Response{
			StatusCode:     res.StatusCode,
			S3UploadURL:    res.S3UploadURI,
			AWSCredentials: res.Credentials,
		}, nil

	case TypeDeployVersion, TypeDeployVersionLite:
		var req deployer.DeployRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		deploy := h.svc.Deploy
		if typ == TypeDeployVersionLite {
			deploy = h.svc.DeployLite
		}
		res, err := deploy(ctx, req)
		if err != nil {
			return nil, err
		}
		resp := &Response{StatusCode: res.StatusCode, ActionTaken: res.AliasAction}
		if res.Version != nil {
			resp.URL = res.Version.URL
		}
		return resp, nil

	case TypeDeleteVersion:
		var req deployer.VersionRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if err := h.svc.Delete(ctx, req); err != nil {
			return nil, err
		}
		return &Response{StatusCode: http.StatusOK}, nil

	case TypeGetVersion:
		var req deployer.VersionRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		v, err := h.svc.GetVersion(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Response{StatusCode: http.StatusOK, Version: v}, nil

	case TypeLambdaAlias:
		var req deployer.AliasRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		res, err := h.svc.ResolveAlias(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Response{
			StatusCode:  res.Action.StatusCode(),
			ActionTaken: res.Action,
			AliasARN:    res.AliasARN,
			URL:         res.URL,
		}, nil

	case TypeGetConfig:
		return &Response{StatusCode: http.StatusOK, AllowedCallerARNs: h.svc.AllowedCallerARNs()}, nil

	case "":
		return nil, ferrors.New(ferrors.CodeInvalidInput, "invoke.Handle", "request type is required")
	default:
		return nil, ferrors.Newf(ferrors.CodeInvalidInput, "invoke.Handle", "unknown request type %q", typ)
	}
}

func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return ferrors.Wrap(err, ferrors.CodeInvalidInput, "invoke.Handle", "malformed request")
	}
	return nil
}

func (h *Handler) fail(ctx context.Context, logger *slog.Logger, requestID string, err error) *Response {
	code := ferrors.StatusCode(err)
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "status_code", code, "error", err)
	} else {
		logger.WarnContext(ctx, "request rejected", "status_code", code, "error", err)
	}
	return &Response{
		StatusCode:   code,
		RequestID:    requestID,
		ErrorMessage: err.Error(),
	}
}
