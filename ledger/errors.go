/*
errors.go - Centralized error types for the ledger core

PURPOSE:
  All ledger error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP statuses without inspecting messages.

ERROR CATEGORIES:
  1. Validation errors - malformed or out-of-range input
  2. Not-found errors  - id absent OR outside the caller's tenant/scope;
     deliberately indistinguishable so existence never leaks across tenants
  3. Transition errors - state machine rejections
  4. Concurrency errors - optimistic-lock conflicts in the allocator

USAGE:
  if errors.Is(err, ledger.ErrInvalidTransition) { ... }

  var verr *ledger.ValidationError
  if errors.As(err, &verr) { log(verr.Field) }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all input-validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a record is absent or not visible in the
	// caller's tenant/scope. Callers cannot tell which.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when the state machine rejects the
	// requested target status from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConcurrentModification is returned when optimistic locking detects
	// a conflict that retries could not resolve.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which input was malformed or out of range.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidTransitionError reports the rejected source/target status pair.
type InvalidTransitionError struct {
	From DetentionStatus
	To   DetentionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing or out-of-scope
// record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
