/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All ledger error types in one place. Domain packages wrap these with
  additional context and map them to transport-level failures.

ERROR CATEGORIES:
  1. Precondition errors - Rejected before any mutation is attempted
  2. Concurrency errors  - Optimistic locking / reference conflicts
  3. Store errors        - Commit-level failures

USAGE:
  if errors.Is(err, ledger.ErrInsufficientFunds) { ... }

  var short *ledger.InsufficientFundsError
  if errors.As(err, &short) { short.Available ... }
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
	// ErrAccountNotFound is returned when the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned when a debit exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for zero or negative operation amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrSelfTransfer is returned when both legs of a transfer name the same owner.
	ErrSelfTransfer = errors.New("cannot transfer to yourself")

	// ErrConcurrentModification is returned when optimistic locking detects
	// that an account changed between read and commit.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrDuplicateReference is returned when an entry reference already exists
	// in the ledger. Deposit ingestion treats this as an already-applied
	// confirmation; everything else treats it as a storage conflict.
	ErrDuplicateReference = errors.New("duplicate entry reference")

	// ErrLimitViolation is returned when an amount falls outside transfer limits.
	ErrLimitViolation = errors.New("amount outside transfer limits")

	// ErrCommitFailed is returned when the store cannot persist a mutation set.
	ErrCommitFailed = errors.New("ledger commit failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError details a balance shortage.
type InsufficientFundsError struct {
	Owner     OwnerID
	Available Money
	Requested Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: account %s has %s, needs %s",
		e.Owner, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// LimitViolationError details a transfer-limit breach.
type LimitViolationError struct {
	Amount Money
	Limits Limits
}

func (e *LimitViolationError) Error() string {
	return fmt.Sprintf("amount %s must be between %s and %s NGN",
		e.Amount, e.Limits.Min, e.Limits.Max)
}

func (e *LimitViolationError) Unwrap() error { return ErrLimitViolation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input
// or state, as opposed to a storage/internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrSelfTransfer) ||
		errors.Is(err, ErrLimitViolation)
}

// IsNotFound reports whether the error indicates a missing account.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// IsConflict reports whether the error is a concurrency or uniqueness clash.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrDuplicateReference)
}
