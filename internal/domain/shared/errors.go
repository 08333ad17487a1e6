// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
// They form the error taxonomy of the workflow engine: every failure a caller
// can observe maps to exactly one of these kinds.
var (
	// ErrNotFound - the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists - a uniqueness constraint would be violated.
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrUnauthorizedAction - the actor lacks the required role for the
	// requested action in the current state.
	ErrUnauthorizedAction = errors.New("unauthorized action")

	// ErrInvalidTransition - the action is not legal from the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrPreconditionFailed - a state-specific precondition is unmet
	// (missing document, incomplete jury panel, voucher not confirmed,
	// missing comentario).
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrDuplicateEvaluation - an evaluation already exists for the
	// (jury member, round) pair.
	ErrDuplicateEvaluation = errors.New("duplicate evaluation")

	// ErrInvalidJuror - the actor is not an active jury member of the thesis.
	ErrInvalidJuror = errors.New("invalid juror")

	// ErrMissingObservations - an OBSERVADO verdict was submitted without
	// observations text.
	ErrMissingObservations = errors.New("missing observations")

	// ErrConcurrentModification - the aggregate changed between read and
	// write. The only retryable kind: the caller should reload and retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrValidation - malformed input before it reaches the state machine.
	ErrValidation = errors.New("validation error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "tesis", "jurado"
	Op      string // Operation that failed, e.g., "Transitar", "RegistrarEvaluacion"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable, actionable message (Spanish, shown to users)
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if the error is an authorization failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorizedAction)
}

// IsPrecondition checks if the error is a precondition or transition failure,
// including the aggregator-level kinds which are precondition failures in the
// broad sense.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPreconditionFailed) ||
		errors.Is(err, ErrDuplicateEvaluation) ||
		errors.Is(err, ErrInvalidJuror) ||
		errors.Is(err, ErrMissingObservations)
}

// IsRetryable checks if the operation can be retried against fresh state.
// Only optimistic-concurrency conflicts are retryable; every other kind is a
// definitive answer.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
