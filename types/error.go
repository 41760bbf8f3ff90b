package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the relay core.
type ErrorCode string

// Admission and downstream error codes
const (
	ErrRateLimited       ErrorCode = "RATE_LIMITED"
	ErrInsufficientFee   ErrorCode = "INSUFFICIENT_FEE"
	ErrImmatureRecord    ErrorCode = "IMMATURE_RECORD"
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrUpstreamError     ErrorCode = "UPSTREAM_ERROR"
	ErrUpstreamTimeout   ErrorCode = "UPSTREAM_TIMEOUT"
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrInternalError     ErrorCode = "INTERNAL_ERROR"
	ErrTierUnavailable   ErrorCode = "TIER_UNAVAILABLE"
	ErrConfigRejected    ErrorCode = "CONFIG_REJECTED"
	ErrClientUnavailable ErrorCode = "CLIENT_UNAVAILABLE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Method     string    `json:"method,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error carrying the same code, so that
// package-level sentinels built with NewError work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithMethod records the calling RPC method.
func (e *Error) WithMethod(method string) *Error {
	e.Method = method
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err (or anything it wraps) carries code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
