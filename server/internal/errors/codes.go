// Package errors defines the error codes returned by the API.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type of an API operation.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates the requested resource does not exist or is not owned by the caller.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodePayloadTooLarge indicates an upload above the configured limit.
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrCodeServiceUnavailable indicates the service is not available.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeLLMUnavailable indicates the LLM provider failed or is not configured.
	ErrCodeLLMUnavailable ErrorCode = "LLM_UNAVAILABLE"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// AIError represents a structured error of an API operation.
type AIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
	// Status overrides the status derived from Code when set.
	Status int
}

// Error implements the error interface.
func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AIError) WithContext(key string, value any) *AIError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// HTTPStatus maps the error code to an HTTP status.
func (e *AIError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Code {
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeLLMUnavailable:
		return http.StatusBadGateway
	case ErrCodeContextCanceled:
		// nginx's "client closed request"
		return 499
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Convenience constructors for common error types.

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *AIError {
	return &AIError{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit error.
func RateLimitExceeded(msg string) *AIError {
	return &AIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AIError {
	return &AIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *AIError {
	return &AIError{Code: ErrCodeNotFound, Message: msg}
}

// PayloadTooLarge creates an upload size error.
func PayloadTooLarge(msg string) *AIError {
	return &AIError{Code: ErrCodePayloadTooLarge, Message: msg}
}

// ServiceUnavailable creates a service unavailable error.
func ServiceUnavailable(msg string) *AIError {
	return &AIError{Code: ErrCodeServiceUnavailable, Message: msg}
}

// LLMUnavailable creates an LLM unavailable error.
func LLMUnavailable(msg string, cause error) *AIError {
	return &AIError{Code: ErrCodeLLMUnavailable, Message: msg, Cause: cause}
}

// Internal creates an internal error.
func Internal(msg string, cause error) *AIError {
	return &AIError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// FromHTTPStatus creates an error answering with the given HTTP status.
func FromHTTPStatus(status int, msg string) *AIError {
	code := ErrCodeInvalidArgument
	switch {
	case status == http.StatusUnauthorized:
		code = ErrCodeUnauthorized
	case status == http.StatusNotFound:
		code = ErrCodeNotFound
	case status == http.StatusRequestEntityTooLarge:
		code = ErrCodePayloadTooLarge
	case status == http.StatusTooManyRequests:
		code = ErrCodeRateLimitExceeded
	case status == http.StatusServiceUnavailable:
		code = ErrCodeServiceUnavailable
	case status >= http.StatusInternalServerError:
		code = ErrCodeInternal
	}
	return &AIError{Code: code, Message: msg, Status: status}
}

// Wrap wraps a cause with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *AIError {
	return &AIError{Code: code, Message: msg, Cause: cause}
}

// From converts any error to an AIError, classifying context errors and
// falling back to defaultCode.
func From(err error, defaultCode ErrorCode, msg string) *AIError {
	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr
	}
	switch {
	case stderrors.Is(err, context.Canceled):
		return &AIError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: err}
	case stderrors.Is(err, context.DeadlineExceeded):
		return &AIError{Code: ErrCodeTimeout, Message: msg, Cause: err}
	}
	return &AIError{Code: defaultCode, Message: msg, Cause: err}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an AIError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr.Code
	}
	return defaultCode
}
