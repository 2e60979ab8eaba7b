// Package awsretry provides the client-layer retry policy for the AWS clients
// the deployer builds. The object store gets a larger attempt budget than the
// routing and compute control planes.
package awsretry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/smithy-go"
)

const (
	defaultBaseDelay = 100 * time.Millisecond
	defaultMaxDelay  = 20 * time.Second
)

// Retryer implements aws.Retryer with exponential backoff and ±25% jitter.
//
// Thread Safety: all fields are immutable after construction.
type Retryer struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

var _ aws.Retryer = (*Retryer)(nil)

// New returns a Retryer allowing maxAttempts attempts, including the first.
// A non-positive maxAttempts is treated as a single attempt.
func New(maxAttempts int) *Retryer {
	return NewWithDelays(maxAttempts, defaultBaseDelay, defaultMaxDelay)
}

// NewWithDelays is New with explicit backoff bounds.
func NewWithDelays(maxAttempts int, baseDelay, maxDelay time.Duration) *Retryer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retryer{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}
}

// MaxAttempts returns the maximum number of attempts.
func (r *Retryer) MaxAttempts() int {
	return r.maxAttempts
}

// RetryDelay returns baseDelay * 2^(attempt-1) with jitter, capped at maxDelay.
func (r *Retryer) RetryDelay(attempt int, _ error) (time.Duration, error) {
	delay := time.Duration(math.Pow(2, float64(attempt-1))) * r.baseDelay

	if jitterRange := int64(float64(delay) * 0.25); jitterRange > 0 {
		delay += time.Duration(rand.Int63n(2*jitterRange) - jitterRange)
	}

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay, nil
}

// IsErrorRetryable retries throttling and the SDK's default transient
// failures, and never retries authorization or validation failures.
func (r *Retryer) IsErrorRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException",
			"Throttling",
			"TooManyRequestsException",
			"RequestLimitExceeded",
			"SlowDown",
			"ProvisionedThroughputExceededException":
			return true
		case "AccessDeniedException",
			"AccessDenied",
			"UnauthorizedOperation",
			"InvalidParameterValueException",
			"ValidationException":
			return false
		}
	}

	return retry.IsErrorRetryables(retry.DefaultRetryables).IsErrorRetryable(err) == aws.TrueTernary
}

// GetRetryToken always grants a retry; attempts are bounded by MaxAttempts.
func (r *Retryer) GetRetryToken(context.Context, error) (func(error) error, error) {
	return func(error) error { return nil }, nil
}

// GetInitialToken returns a no-op release function.
func (r *Retryer) GetInitialToken() func(error) error {
	return func(error) error { return nil }
}
