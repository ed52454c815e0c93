package apiclient

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a request failure.
type ErrorCode string

// Possible failure classifications. Network and timeout failures are detected
// from the transport; the rest map one-to-one from HTTP status codes.
const (
	CodeNetwork      ErrorCode = "NETWORK_ERROR"
	CodeTimeout      ErrorCode = "TIMEOUT_ERROR"
	CodeBadRequest   ErrorCode = "BAD_REQUEST"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeRateLimited  ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServerError  ErrorCode = "INTERNAL_SERVER_ERROR"
	CodeBadGateway   ErrorCode = "BAD_GATEWAY"
	CodeUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
	CodeHTTP         ErrorCode = "HTTP_ERROR"
	CodeUnknown      ErrorCode = "UNKNOWN_ERROR"
)

// Error is the single failure type returned by the client. Status is zero for
// connectivity failures and 408 for client-side timeouts.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Err     error // underlying cause, kept for diagnostics
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or fallback when err
// carries none.
func StatusOf(err error, fallback int) int {
	if apiErr, ok := AsError(err); ok && apiErr.Status > 0 {
		return apiErr.Status
	}
	return fallback
}

// classifyStatus maps a non-2xx HTTP status to an error code and a default
// human-readable message.
func classifyStatus(status int) (ErrorCode, string) {
	switch status {
	case 400:
		return CodeBadRequest, "Bad request. Please check your input."
	case 401:
		return CodeUnauthorized, "Unauthorized. Please login again."
	case 403:
		return CodeForbidden, "Forbidden. You do not have permission to access this resource."
	case 404:
		return CodeNotFound, "Resource not found."
	case 422:
		return CodeValidation, "Validation error. Please check your input."
	case 429:
		return CodeRateLimited, "Too many requests. Please try again later."
	case 500:
		return CodeServerError, "Internal server error. Please try again later."
	case 502:
		return CodeBadGateway, "Bad gateway. Service temporarily unavailable."
	case 503:
		return CodeUnavailable, "Service unavailable. Please try again later."
	default:
		return CodeHTTP, fmt.Sprintf("HTTP error %d", status)
	}
}
