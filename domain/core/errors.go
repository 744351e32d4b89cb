package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Geometry errors
	ErrShapeMismatch     = errors.New("spatial shape disagrees with fitted mask")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrNotFitted         = errors.New("adapter not fitted")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrNoSuccessfulSplits   = fmt.Errorf("%w: no successful repetitions", ErrInvalidConfiguration)

	// Capability signals
	ErrNoCoefficients = errors.New("model family exposes no linear coefficients")

	// Determinism errors
	ErrNonDeterministic = errors.New("non-deterministic result")
	ErrSeedMismatch     = errors.New("seed mismatch")
	ErrHashMismatch     = errors.New("hash mismatch")
)

// Error constructors with context

func NewShapeMismatchError(want, got [3]int) error {
	return fmt.Errorf("%w: mask grid %dx%dx%d, input %dx%dx%d",
		ErrShapeMismatch, want[0], want[1], want[2], got[0], got[1], got[2])
}

func NewDimensionMismatchError(what string, want, got int) error {
	return fmt.Errorf("%w: %s length %d, expected %d", ErrDimensionMismatch, what, got, want)
}

func NewConfigurationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfiguration, field, reason)
}

// Error checking helpers

func IsShapeError(err error) bool {
	return errors.Is(err, ErrShapeMismatch) || errors.Is(err, ErrDimensionMismatch)
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

func IsDeterminismError(err error) bool {
	return errors.Is(err, ErrNonDeterministic) ||
		errors.Is(err, ErrSeedMismatch) ||
		errors.Is(err, ErrHashMismatch)
}
