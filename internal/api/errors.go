package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/service"
	"github.com/phrazzld/tasks-api/internal/store"
)

// ErrTaskNotOwned is returned when the caller is not the task's owner.
var ErrTaskNotOwned = errors.New("task belongs to another user")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing internal error types to clients.
func MapErrorToStatusCode(err error) int {
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidTimestamp),
		errors.Is(err, store.ErrInvalidEntity),
		errors.As(err, &fieldErrs):
		return http.StatusUnprocessableEntity

	case errors.Is(err, ErrTaskNotOwned):
		return http.StatusForbidden

	case errors.Is(err, service.ErrTaskNotFound),
		store.IsNotFoundError(err):
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a message that is safe to send to clients.
// Validation messages are written by the domain and pass through as-is.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message

	case errors.As(err, &fieldErrs):
		return SanitizeValidationError(fieldErrs)

	case errors.Is(err, domain.ErrInvalidTimestamp):
		return "Invalid timestamp"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid task data"

	case errors.Is(err, ErrTaskNotOwned):
		return "Access denied"

	case errors.Is(err, service.ErrTaskNotFound),
		store.IsNotFoundError(err):
		return "Task not found"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator field errors into a short message
// naming the first offending field.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Validation error"
	}

	fe := fieldErrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
