/*
errors.go - Centralized error types for the credit engine

PURPOSE:
  All engine error types in one place. Every engine error is
  deterministic, synchronous, and non-retryable: retrying with the same
  bad input yields the same error. The engine never panics on bad
  input; unexpected state surfaces as a typed error and the caller
  decides whether to log, retry, or escalate.

ERROR CATEGORIES:
  1. Amortization input errors - rejected before any computation
  2. Payment errors - zero/negative amounts
  3. Guarantee errors - malformed guarantee sets

USAGE:
  Domain packages match with errors.Is():

    if errors.Is(err, engine.ErrInvalidAmortizationInput) {
        return respondBadRequest(...)
    }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmortizationInput is returned when schedule generation is
	// asked for a non-positive principal, an out-of-range rate, or an
	// out-of-range term. Nothing is computed or partially applied.
	ErrInvalidAmortizationInput = errors.New("invalid amortization input")

	// ErrInvalidPaymentAmount is returned for zero or negative payment
	// amounts, or negative due buckets handed to the distributor.
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")

	// ErrGuaranteeCountViolation is returned when a credit carries exactly
	// one active guarantee. A credit has either zero or exactly two active
	// guarantees, never one; the engine surfaces the violation rather than
	// self-healing the set.
	ErrGuaranteeCountViolation = errors.New("guarantee count violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AmortizationInputError reports which precondition a schedule request
// violated.
type AmortizationInputError struct {
	Field  string // "principal", "annual_rate", "term_months"
	Value  string
	Reason string
}

func (e *AmortizationInputError) Error() string {
	return fmt.Sprintf("invalid amortization input: %s=%s (%s)", e.Field, e.Value, e.Reason)
}

func (e *AmortizationInputError) Unwrap() error { return ErrInvalidAmortizationInput }

// GuaranteeCountError reports an active-guarantee count that violates the
// zero-or-exactly-two invariant.
type GuaranteeCountError struct {
	ActiveCount int
}

func (e *GuaranteeCountError) Error() string {
	return fmt.Sprintf("guarantee count violation: %d active guarantees, want 0 or 2", e.ActiveCount)
}

func (e *GuaranteeCountError) Unwrap() error { return ErrGuaranteeCountViolation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true when the error is due to invalid input rather
// than an internal fault. All engine errors currently are.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmortizationInput) ||
		errors.Is(err, ErrInvalidPaymentAmount) ||
		errors.Is(err, ErrGuaranteeCountViolation)
}
