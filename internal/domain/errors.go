package domain

import "fmt"

// Persistence failure codes carried by PersistenceError.
const (
	DBReadError   = "DBReadError"
	DBCreateError = "DBCreateError"
	DBUpdateError = "DBUpdateError"
	DBDeleteError = "DBDeleteError"
)

// ValidationError reports malformed, disallowed, or inconsistent caller input.
// It maps outward to a client error response.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that no entity matched a well-formed lookup.
// It maps outward to a not-found response, never to a client error.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundError builds a NotFoundError for the named resource.
func NewNotFoundError(resource string, format string, args ...any) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a backing-store failure. The original error is always
// retained as the cause; callers never interpret store-specific failure codes.
type PersistenceError struct {
	Code string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps err under one of the DB* codes.
func NewPersistenceError(code string, err error) *PersistenceError {
	return &PersistenceError{Code: code, Err: err}
}
