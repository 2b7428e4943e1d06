package errors

import (
	"fmt"
	"strings"
)

// Sentinel APIError values for use with errors.Is().
// These match on status code only.
var (
	ErrNetwork      = &APIError{StatusCode: 0}
	ErrBadRequest   = &APIError{StatusCode: 400}
	ErrUnauthorized = &APIError{StatusCode: 401}
	ErrForbidden    = &APIError{StatusCode: 403}
	ErrNotFound     = &APIError{StatusCode: 404}
	ErrRateLimited  = &APIError{StatusCode: 429}
)

// APIError is a failed call to the collection API. StatusCode is the HTTP
// status, or 0 when the request never produced a response (network failure).
// Body holds the raw response body, treated as plain text.
type APIError struct {
	StatusCode int
	Body       string
	Message    string
	RequestID  string
	Err        error
}

// NewAPIError builds an APIError from a status code and raw body.
func NewAPIError(status int, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		Body:       string(body),
		Message:    strings.TrimSpace(string(body)),
	}
}

// NewNetworkError wraps a transport-level failure as a status-0 APIError.
func NewNetworkError(err error) *APIError {
	return &APIError{
		StatusCode: 0,
		Message:    "network request failed",
		Err:        err,
	}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}

	if e.StatusCode == 0 {
		if msg == "" {
			return "weblytics: network error"
		}
		return "weblytics: network error: " + msg
	}

	if msg != "" {
		if e.RequestID != "" {
			return fmt.Sprintf("weblytics: API error (status %d, request %s): %s", e.StatusCode, e.RequestID, msg)
		}
		return fmt.Sprintf("weblytics: API error (status %d): %s", e.StatusCode, msg)
	}
	if e.RequestID != "" {
		return fmt.Sprintf("weblytics: API error (status %d, request %s)", e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("weblytics: API error (status %d)", e.StatusCode)
}

// Unwrap returns the underlying error for error chain support.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for errors.Is().
// It matches on status code, allowing comparisons like:
//
//	if errors.Is(err, weblytics.ErrRateLimited) { ... }
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode
}

// IsNetworkError returns true if no HTTP response was received.
func (e *APIError) IsNetworkError() bool {
	return e.StatusCode == 0
}

// IsUnauthorized returns true if the error is a 401 Unauthorized error.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsForbidden returns true if the error is a 403 Forbidden error.
func (e *APIError) IsForbidden() bool {
	return e.StatusCode == 403
}

// IsRateLimited returns true if the error is a 429 Too Many Requests error.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsServerError returns true if the error is a 5xx server error.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true for 429, any 5xx, and network failures.
// Every other non-2xx status is permanent.
func (e *APIError) IsRetryable() bool {
	return e.IsNetworkError() || e.IsRateLimited() || e.IsServerError()
}

// Code returns the error code for the API error.
func (e *APIError) Code() ErrorCode {
	switch {
	case e.IsNetworkError():
		return ErrCodeNetwork
	case e.IsUnauthorized(), e.IsForbidden():
		return ErrCodeAuth
	case e.IsRateLimited():
		return ErrCodeRateLimit
	default:
		return ErrCodeAPI
	}
}

var _ SDKError = (*APIError)(nil)
