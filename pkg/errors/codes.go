package errors

import (
	"errors"
)

// ErrorCode represents a category of error for metrics and logging.
type ErrorCode string

// Error codes for categorization.
const (
	ErrCodeConfig     ErrorCode = "CONFIG"     // Configuration errors
	ErrCodeValidation ErrorCode = "VALIDATION" // Request validation errors
	ErrCodeNetwork    ErrorCode = "NETWORK"    // Transport-level failures (status 0)
	ErrCodeAPI        ErrorCode = "API"        // API response errors
	ErrCodeAuth       ErrorCode = "AUTH"       // Authentication/authorization errors
	ErrCodeRateLimit  ErrorCode = "RATE_LIMIT" // Rate limiting errors
)

// SDKError is the common interface for all SDK errors.
//
//	var sdkErr errors.SDKError
//	if stdErrors.As(err, &sdkErr) && sdkErr.IsRetryable() {
//	    // try again later
//	}
type SDKError interface {
	error

	// Code returns a machine-readable error code for categorization.
	Code() ErrorCode

	// IsRetryable returns true if the operation can be retried.
	IsRetryable() bool
}

// Sentinel errors for configuration and client state.
var (
	ErrNotInitialized = errors.New("weblytics: client is not initialized (missing API key)")
	ErrInvalidHost    = errors.New("weblytics: invalid API host")
	ErrInvalidConfig  = errors.New("weblytics: invalid configuration")
	ErrClientClosed   = errors.New("weblytics: client is closed")
	ErrCircuitOpen    = errors.New("weblytics: circuit breaker is open")
)

// ErrEmptyUserID is returned by Identify when the user id is blank.
var ErrEmptyUserID = NewValidationError("user_id", "must not be empty")

// IsRetryable reports whether err is a transient delivery failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var sdkErr SDKError
	if errors.As(err, &sdkErr) {
		return sdkErr.IsRetryable()
	}
	return false
}

// AsAPIError extracts an APIError from the error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// AsValidationError extracts a ValidationError from the error chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr, true
	}
	return nil, false
}
