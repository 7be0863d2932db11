package domain

import "errors"

// ErrValidation is returned when a domain entity fails validation.
// Every *ValidationError unwraps to it.
var ErrValidation = errors.New("validation failed")

// ValidationError describes a rejected field value.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Error returns the message alone; it is safe to show to callers.
func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ErrInvalidTimestamp is returned when a timestamp cannot be parsed.
var ErrInvalidTimestamp = errors.New("invalid timestamp")
