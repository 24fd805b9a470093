package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// ErrValidation marks malformed input: sizes, vertex labels, probability
	// mass functions, parameter ranges. Fatal to the call that returns it.
	ErrValidation = errors.New("validation failed")

	// ErrPolicyMismatch marks inputs that belong to a different network than
	// the one supplied. Multi-parameter entry points log and skip these.
	ErrPolicyMismatch = errors.New("policy mismatch")

	// ErrUnsupportedPolicy marks an unknown testing order.
	ErrUnsupportedPolicy = errors.New("unsupported policy")

	// Validation errors
	ErrReservedVertex   = fmt.Errorf("%w: reserved vertex label", ErrValidation)
	ErrEmptyNetwork     = fmt.Errorf("%w: network has no vertices", ErrValidation)
	ErrInvalidPMF       = fmt.Errorf("%w: not a probability mass function", ErrValidation)
	ErrInvalidParameter = fmt.Errorf("%w: invalid parameter", ErrValidation)
	ErrMissingBatch     = fmt.Errorf("%w: parameter set missing from batch", ErrValidation)
)

// NewValidationError wraps ErrValidation with the offending field.
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, reason)
}

// NewMismatchError reports parameters recorded for a different network.
func NewMismatchError(paramsNetwork, network string) error {
	return fmt.Errorf("%w: parameters are for network %q, got %q", ErrPolicyMismatch, paramsNetwork, network)
}

// NewUnsupportedPolicyError reports an unknown testing order name.
func NewUnsupportedPolicyError(order string) error {
	return fmt.Errorf("%w: testing order %q (want circular or random)", ErrUnsupportedPolicy, order)
}

// Error checking helpers
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsPolicyMismatch(err error) bool {
	return errors.Is(err, ErrPolicyMismatch)
}

func IsUnsupportedPolicy(err error) bool {
	return errors.Is(err, ErrUnsupportedPolicy)
}
