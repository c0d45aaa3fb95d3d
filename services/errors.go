package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kendall-kelly/appraisal-orders-api/store"
)

var (
	// ErrNotFound matches every NotFoundError
	ErrNotFound = store.ErrNotFound
	// ErrInvalidCursor is returned by List when the cursor names no order
	ErrInvalidCursor = store.ErrInvalidCursor
)

// NotFoundError names the missing resource
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements error
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Unwrap lets errors.Is match ErrNotFound
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func notFound(resource, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return err
}

// ValidationError is a single field-level failure
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements error
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failing field of one request
type ValidationErrors []ValidationError

// Error joins every field message
func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields maps field name to message
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

func (v *ValidationErrors) add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// IsValidation reports whether err carries field-level validation failures
func IsValidation(err error) bool {
	var multi ValidationErrors
	var single ValidationError
	return errors.As(err, &multi) || errors.As(err, &single)
}

// AsValidationErrors normalises a single or multi-field validation error
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var multi ValidationErrors
	if errors.As(err, &multi) {
		return multi, true
	}
	var single ValidationError
	if errors.As(err, &single) {
		return ValidationErrors{single}, true
	}
	return nil, false
}
