package models

import (
	"errors"
	"fmt"
)

// Error kinds shared by repositories, services and controllers.
// Match with errors.Is; the concrete types below carry detail.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrReference   = errors.New("referenced record does not exist")
	ErrPersistence = errors.New("persistence failure")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
)

// ValidationError describes one malformed or out-of-range input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid is shorthand for a *ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// PersistenceError wraps a store failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Persistence wraps err for op, or returns nil when err is nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
