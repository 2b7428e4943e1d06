package errors

import "fmt"

// ValidationError represents a validation error for a request.
// Validation errors are raised before any network I/O.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("weblytics: validation error for field %q: %s", e.Field, e.Message)
}

// Is matches another ValidationError for the same field.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return e.Field == t.Field
}

// Code returns the error code for the validation error.
func (e *ValidationError) Code() ErrorCode {
	return ErrCodeValidation
}

// IsRetryable returns false for validation errors (they should be fixed, not retried).
func (e *ValidationError) IsRetryable() bool {
	return false
}

var _ SDKError = (*ValidationError)(nil)

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
