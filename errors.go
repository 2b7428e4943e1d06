package weblytics

import (
	pkgerrors "github.com/jdziat/weblytics-go/pkg/errors"
)

// Error types, re-exported from pkg/errors.
type (
	// APIError is a non-2xx response or a request that never got one
	// (StatusCode 0).
	APIError = pkgerrors.APIError

	// ValidationError is returned before any network I/O when input is invalid.
	ValidationError = pkgerrors.ValidationError

	// ErrorCode categorizes SDK errors for metrics and logging.
	ErrorCode = pkgerrors.ErrorCode

	// SDKError is implemented by every SDK error type.
	SDKError = pkgerrors.SDKError
)

// Sentinel errors. APIError sentinels match any APIError with the same
// status code under errors.Is.
var (
	ErrNotInitialized = pkgerrors.ErrNotInitialized
	ErrInvalidHost    = pkgerrors.ErrInvalidHost
	ErrInvalidConfig  = pkgerrors.ErrInvalidConfig
	ErrClientClosed   = pkgerrors.ErrClientClosed
	ErrEmptyUserID    = pkgerrors.ErrEmptyUserID
	ErrCircuitOpen    = pkgerrors.ErrCircuitOpen

	ErrNetwork      = pkgerrors.ErrNetwork
	ErrBadRequest   = pkgerrors.ErrBadRequest
	ErrUnauthorized = pkgerrors.ErrUnauthorized
	ErrForbidden    = pkgerrors.ErrForbidden
	ErrNotFound     = pkgerrors.ErrNotFound
	ErrRateLimited  = pkgerrors.ErrRateLimited
)

// IsRetryable reports whether err is a transient delivery failure: a
// network error, 429 or 5xx.
func IsRetryable(err error) bool {
	return pkgerrors.IsRetryable(err)
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	return pkgerrors.AsAPIError(err)
}

// AsValidationError extracts a *ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	return pkgerrors.AsValidationError(err)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return pkgerrors.NewValidationError(field, message)
}
