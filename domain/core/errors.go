package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrJobNotFound = fmt.Errorf("%w: job", ErrNotFound)

	// Input errors
	ErrEmptyInput   = errors.New("input contains no data")
	ErrInvalidInput = errors.New("input is not readable")

	// Pipeline errors
	ErrOracleUnavailable = errors.New("test oracle unavailable")
	ErrNonConvergence    = errors.New("round limit reached before convergence")
	ErrRunCancelled      = errors.New("run cancelled")
)

// ValidationError represents a field-level validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
