/*
funding.go - External deposits and withdrawals

PURPOSE:
  Moves money across the boundary between the ledger and the outside
  world via the payment gateway.

DEPOSITS:
  Initiation talks to the gateway only - no ledger mutation. The credit
  happens when the gateway confirms the reference, either through the
  confirm endpoint or a webhook. Confirmations are idempotent by
  reference: a redelivery of an already-applied reference is a no-op,
  never a second credit.

WITHDRAWALS:
  The gateway disbursement runs strictly BEFORE the ledger debit. If the
  gateway call fails or times out, the balance is untouched; there is no
  state in which funds left the ledger without the rail confirming.
  A failure after the disbursement but before the debit is the operator's
  reconciliation problem, which is the safe side of the ambiguity.
*/
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/kobo/wallet-engine/ledger"
)

// FundingService handles gateway-backed deposits and withdrawals.
type FundingService struct {
	Engine  *ledger.Engine
	Store   Store
	Auth    AuthGate
	Gateway PaymentGateway
}

func (s *FundingService) requireKYC(ctx context.Context, owner ledger.OwnerID) error {
	ok, err := s.Auth.IsKYCVerified(ctx, owner)
	if err != nil {
		return fmt.Errorf("kyc check: %w", err)
	}
	if !ok {
		return ErrKYCRequired
	}
	return nil
}

// =============================================================================
// DEPOSITS
// =============================================================================

// InitiateDeposit registers an inbound payment with the gateway and
// returns its reference. The ledger is not touched.
func (s *FundingService) InitiateDeposit(ctx context.Context, owner ledger.OwnerID, amount ledger.Money) (string, error) {
	if !amount.IsPositive() {
		return "", ledger.ErrInvalidAmount
	}
	if err := s.requireKYC(ctx, owner); err != nil {
		return "", err
	}
	reference, err := s.Gateway.InitiateDeposit(ctx, owner, amount)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	return reference, nil
}

// ConfirmDeposit verifies a gateway reference and credits the owner.
// Delivering the same reference twice results in exactly one credit: the
// second delivery returns the account state with no new entry.
func (s *FundingService) ConfirmDeposit(ctx context.Context, reference string) (*ledger.Account, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: transaction reference required", ErrValidation)
	}

	conf, err := s.Gateway.ConfirmDeposit(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	applied, err := s.Store.ReferenceExists(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !applied {
		_, err = s.Engine.ApplyDeposit(ctx, conf.Owner, conf.Amount, reference)
		// Two confirmations racing past the exists-check resolve at the
		// store's unique reference index; the loser is a no-op too.
		if err != nil && !errors.Is(err, ledger.ErrDuplicateReference) {
			return nil, err
		}
	}
	return s.Store.Account(ctx, conf.Owner)
}

// =============================================================================
// WITHDRAWALS
// =============================================================================

// Withdraw disburses amount to the destination via the gateway, then
// debits the account using the gateway's reference. No fee.
func (s *FundingService) Withdraw(ctx context.Context, owner ledger.OwnerID, amount ledger.Money, destination string) (*ledger.Entry, error) {
	if !amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	if destination == "" {
		return nil, fmt.Errorf("%w: destination required", ErrValidation)
	}
	if err := s.requireKYC(ctx, owner); err != nil {
		return nil, err
	}

	// Funds check before the gateway call so an obviously-overdrawn
	// request never reaches the rail. The engine re-checks under lock.
	account, err := s.Store.Account(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !account.CanDebit(amount) {
		return nil, &ledger.InsufficientFundsError{Owner: owner, Available: account.Balance, Requested: amount}
	}

	reference, err := s.Gateway.Disburse(ctx, owner, amount, destination)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	return s.Engine.ApplyWithdrawal(ctx, owner, amount, reference)
}

// =============================================================================
// READS
// =============================================================================

// Balance returns the owner's current balance.
func (s *FundingService) Balance(ctx context.Context, owner ledger.OwnerID) (ledger.Money, error) {
	account, err := s.Store.Account(ctx, owner)
	if err != nil {
		return ledger.Money{}, err
	}
	return account.Balance, nil
}

// Entries returns the owner's full entry history in insertion order.
func (s *FundingService) Entries(ctx context.Context, owner ledger.OwnerID) ([]ledger.Entry, error) {
	account, err := s.Store.Account(ctx, owner)
	if err != nil {
		return nil, err
	}
	return account.Entries, nil
}
