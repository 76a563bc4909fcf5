package model

import (
	"errors"
	"fmt"
)

// Validation errors are fatal and reported before any analysis runs.
var (
	// ErrEmptyInput indicates a document body is empty or whitespace only.
	ErrEmptyInput = errors.New("empty input")

	// ErrInputTooLarge indicates a document body exceeds the configured ceiling.
	ErrInputTooLarge = errors.New("input too large")

	// ErrInvalidConfig indicates the pattern library, taxonomy or risk tables
	// could not be loaded or compiled.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError carries the specific reason a request or configuration was rejected
type ValidationError struct {
	Field  string // Which input or config key failed (e.g. "before", "entities.patterns[2]")
	Reason string
	Err    error // One of the sentinel errors above
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a ValidationError around a sentinel
func NewValidationError(sentinel error, field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
		Err:    sentinel,
	}
}
