// Package errors provides the error taxonomy shared by the deployer packages.
// It extends Go's standard error handling with structured error codes that map
// onto the HTTP-status-as-outcome convention of the invoke API.
package errors

import "net/http"

// ErrorCode represents a specific error condition in the deployer.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeConflict indicates a resource state conflict that prevents the operation.
	// A version that is already routed without overwrite is the canonical case.
	CodeConflict ErrorCode = "CONFLICT"

	// Permission errors.

	// CodeUnauthorized indicates a backend denied a provisioning call.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// System errors.

	// CodeInternal indicates an internal system error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnavailable indicates a backend is temporarily unavailable.
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// HTTPStatus returns the response status code that reports this error condition.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
