package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the absence value for single-record reads.
	ErrNotFound = errors.New("not found")
	// ErrConcurrentUpdate is returned when the supplied revision does not match the stored one.
	ErrConcurrentUpdate = errors.New("concurrent update")
	// ErrUnauthorized covers missing, invalid or expired tokens and owner-only actions by non-owners.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLoginFailed is returned when an email/secret pair does not match.
	ErrLoginFailed = errors.New("login failed")
)

// ValidationError reports malformed or missing input. It is raised before any storage access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
