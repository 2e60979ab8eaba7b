package functions

import (
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client manages function revisions, aliases and their grants.
type Client struct {
	api            LambdaAPI
	parent         ConfigProvider
	allowedCallers []string
	publishBackOff func() backoff.BackOff
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithConfigProvider sets the parent deployer queried for allowed callers.
// Without one, cross-account grant propagation is skipped.
func WithConfigProvider(p ConfigProvider) Option {
	return func(c *Client) {
		c.parent = p
	}
}

// WithAllowedCallers sets caller ARNs granted in addition to the parent's.
func WithAllowedCallers(arns ...string) Option {
	return func(c *Client) {
		c.allowedCallers = append(c.allowedCallers, arns...)
	}
}

// WithPublishBackOff sets the policy used while a publish is rejected
// because an update is still in progress.
func WithPublishBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) {
		if f != nil {
			c.publishBackOff = f
		}
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

// New creates a Client.
func New(api LambdaAPI, opts ...Option) *Client {
	c := &Client{
		api:            api,
		publishBackOff: defaultPublishBackOff,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultPublishBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = time.Minute
	return backoff.WithMaxRetries(b, 10)
}
