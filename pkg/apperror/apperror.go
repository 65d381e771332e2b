package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel error kinds. Services wrap these with fmt.Errorf("%w: ...") so
// handlers can map them to HTTP status codes with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrPreconditionFailed = errors.New("precondition failed")
)

// NotFound builds a not-found error for a missing entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}

// InvalidState builds an invalid-state error that names both the current
// and the required status, so the caller knows what went wrong.
func InvalidState(current string, required string) error {
	return fmt.Errorf("%w: order is %s, requires %s", ErrInvalidState, current, required)
}

// Forbidden builds a forbidden error for an actor/relationship mismatch.
func Forbidden(msg string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, msg)
}

// Validation builds a validation error for malformed or missing input.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// PreconditionFailed builds a precondition error for domain prerequisites
// that are not yet met (e.g. stock not at an eligible status).
func PreconditionFailed(msg string) error {
	return fmt.Errorf("%w: %s", ErrPreconditionFailed, msg)
}

// HTTPStatus maps an error to the HTTP status code handlers should return.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
