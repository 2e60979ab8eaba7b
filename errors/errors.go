package errors

import (
	"errors"
	"fmt"
)

// Error is a classified failure. Op names the operation that failed (for example
// "rollout.integrate") and Err, when set, is the underlying cause.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error carrying the same code. This lets callers
// compare against the package sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Code == e.Code
}

// New creates an error with the given code.
func New(code ErrorCode, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

// Newf creates an error with the given code and a formatted message.
func Newf(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under code. A nil err yields nil.
func Wrap(err error, code ErrorCode, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound     = &Error{Code: CodeNotFound}
	ErrConflict     = &Error{Code: CodeConflict}
	ErrUnauthorized = &Error{Code: CodeUnauthorized}
	ErrInvalidInput = &Error{Code: CodeInvalidInput}
)

// CodeOf returns the code of the outermost *Error in err's chain,
// or CodeInternal when err carries no classification.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// StatusCode maps err onto an HTTP status code.
func StatusCode(err error) int {
	return CodeOf(err).HTTPStatus()
}

// IsNotFound checks if an error indicates a missing resource.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsConflict checks if an error indicates a state conflict.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsUnauthorized checks if an error indicates a denied backend call.
func IsUnauthorized(err error) bool { return CodeOf(err) == CodeUnauthorized }

// IsInvalidInput checks if an error indicates a rejected request.
func IsInvalidInput(err error) bool { return CodeOf(err) == CodeInvalidInput }
