package indexer

import (
	"errors"
	"fmt"
)

// Error codes for categorizing indexer errors.
const (
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeNetwork       = "NETWORK_ERROR"
	ErrCodeAuthRejected  = "AUTH_REJECTED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeHTTP          = "HTTP_ERROR"
	ErrCodeParse         = "PARSE_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeInvalidConfig = "INVALID_CONFIG"
)

// Error is a categorized error from an indexer operation.
type Error struct {
	Code       string
	Message    string
	IndexerKey string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.IndexerKey != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.IndexerKey, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code for errors.Is().
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel instances for comparison with errors.Is.
var (
	ErrTimeout       = &Error{Code: ErrCodeTimeout, Message: "request timed out"}
	ErrNetwork       = &Error{Code: ErrCodeNetwork, Message: "network error"}
	ErrAuthRejected  = &Error{Code: ErrCodeAuthRejected, Message: "authentication rejected"}
	ErrNotFound      = &Error{Code: ErrCodeNotFound, Message: "not found"}
	ErrRateLimited   = &Error{Code: ErrCodeRateLimited, Message: "rate limit exceeded"}
	ErrHTTP          = &Error{Code: ErrCodeHTTP, Message: "http error"}
	ErrParse         = &Error{Code: ErrCodeParse, Message: "parse error"}
	ErrUnavailable   = &Error{Code: ErrCodeUnavailable, Message: "indexer unavailable"}
	ErrInvalidConfig = &Error{Code: ErrCodeInvalidConfig, Message: "invalid configuration"}
)

// NewTimeoutError creates a timeout error for an indexer.
func NewTimeoutError(key string, cause error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: "request timed out", IndexerKey: key, Retryable: true, Cause: cause}
}

// NewNetworkError creates a transport-level error.
func NewNetworkError(key string, cause error) *Error {
	return &Error{Code: ErrCodeNetwork, Message: "network error", IndexerKey: key, Retryable: true, Cause: cause}
}

// NewAuthError creates an authentication rejection (401/403).
func NewAuthError(key string, status int) *Error {
	return &Error{Code: ErrCodeAuthRejected, Message: fmt.Sprintf("authentication rejected (status %d)", status), IndexerKey: key}
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(key string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: "endpoint not found (status 404)", IndexerKey: key}
}

// NewHTTPError creates a non-2xx status error.
func NewHTTPError(key string, status int) *Error {
	return &Error{Code: ErrCodeHTTP, Message: fmt.Sprintf("unexpected status %d", status), IndexerKey: key, Retryable: status >= 500}
}

// NewParseError creates a response parsing error.
func NewParseError(key string, cause error) *Error {
	return &Error{Code: ErrCodeParse, Message: "failed to parse response", IndexerKey: key, Cause: cause}
}

// NewUnavailableError creates a circuit-open error.
func NewUnavailableError(key string) *Error {
	return &Error{Code: ErrCodeUnavailable, Message: "circuit open after repeated failures", IndexerKey: key, Retryable: true}
}

// NewConfigError creates a configuration error.
func NewConfigError(key, message string) *Error {
	return &Error{Code: ErrCodeInvalidConfig, Message: message, IndexerKey: key}
}

// ErrorCode extracts the code from a categorized error, or "" for others.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether the operation can be retried later.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
