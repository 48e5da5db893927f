package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Validation errors
	ErrValidation       = errors.New("validation failed")
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Cross-validation errors
	ErrRouteDivergence = errors.New("fit routes diverged beyond tolerance")
)

// NewValidationError builds a field-scoped validation error
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w for %s: %s", ErrValidation, field, reason)
}

// NewInsufficientDataError reports why an analysis cannot proceed
func NewInsufficientDataError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, reason)
}

// Error checking helpers
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsInsufficientDataError(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

func IsRouteDivergenceError(err error) bool {
	return errors.Is(err, ErrRouteDivergence)
}
