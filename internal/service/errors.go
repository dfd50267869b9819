package service

import (
	"errors"
	"fmt"
	"strings"
)

// Request-scoped error kinds. Handlers map these onto HTTP statuses; nothing
// here is fatal to the process.
var (
	// ErrNotFound covers both a missing referenced id and a relation row
	// that does not exist when asked to remove it.
	ErrNotFound = errors.New("not found")

	// ErrConflict is a uniqueness violation: duplicate favorite/cart/
	// subscription, or a short-link hash space that kept colliding.
	ErrConflict = errors.New("already exists")

	// ErrForbidden means the caller is authenticated but not permitted.
	ErrForbidden = errors.New("forbidden")

	// ErrAuthRequired means an anonymous caller hit an authenticated-only
	// action.
	ErrAuthRequired = errors.New("authentication required")
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field violation of a request so the caller
// can resubmit corrected input in one round trip.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// orNil returns the error only if it collected at least one violation.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func validationErrorf(field, format string, args ...any) error {
	e := &ValidationError{}
	e.add(field, fmt.Sprintf(format, args...))
	return e
}

// AsValidation unwraps a ValidationError if err carries one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
