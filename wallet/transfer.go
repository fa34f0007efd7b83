/*
transfer.go - Peer transfer lifecycle

PURPOSE:
  Implements send, request, accept, and cancel over the ledger engine.

SEND:
  Validates KYC, recipient, limits, and funds, then moves principal+fee
  off the sender and principal onto the recipient in one atomic commit
  together with the completed Transfer record.

REQUEST / ACCEPT / CANCEL:
  A request moves no funds. Limits and funds are re-validated at
  ACCEPTANCE time, not request time - balances and limits may have
  changed in between. The pending->completed flip happens in the same
  atomic unit as the fund movement, and the pending->cancelled flip is a
  plain compare-and-swap; a double-accept or accept-after-cancel loses
  with ErrTransferNotPending.
*/
package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kobo/wallet-engine/ledger"
)

// TransferService handles peer-to-peer money movement.
type TransferService struct {
	Engine *ledger.Engine
	Store  Store
	Auth   AuthGate
	Dir    Directory
	Fees   ledger.FeeSchedule
	Refs   *ledger.ReferenceGenerator

	// Now is injectable for tests; defaults to time.Now when nil.
	Now func() time.Time
}

func (s *TransferService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *TransferService) requireKYC(ctx context.Context, owner ledger.OwnerID) error {
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
// SEND - Direct transfer, completed at creation
// =============================================================================

// Send moves amount from the sender to the user behind recipientEmail.
// The transfer fee is charged on top of the amount.
func (s *TransferService) Send(ctx context.Context, sender ledger.OwnerID, recipientEmail string, amount ledger.Money) (*Transfer, error) {
	if recipientEmail == "" {
		return nil, fmt.Errorf("%w: recipient email required", ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	if err := s.requireKYC(ctx, sender); err != nil {
		return nil, err
	}

	recipient, err := s.Dir.FindByEmail(ctx, recipientEmail)
	if err != nil {
		return nil, err
	}
	if recipient == sender {
		return nil, ledger.ErrSelfTransfer
	}

	user, err := s.Dir.FindByID(ctx, sender)
	if err != nil {
		return nil, err
	}
	if err := user.TransferLimits.Validate(amount); err != nil {
		return nil, err
	}

	fee := s.Fees.Fee(amount)
	now := s.now()
	transfer := &Transfer{
		ID:          uuid.NewString(),
		Sender:      sender,
		Recipient:   recipient,
		Amount:      amount,
		Fee:         fee,
		Kind:        TransferSend,
		State:       TransferCompleted,
		Reference:   s.Refs.Next(ledger.RefTransfer),
		CreatedAt:   now,
		CompletedAt: &now,
	}

	err = s.Engine.WithAccounts([]ledger.OwnerID{sender, recipient}, func() error {
		_, muts, err := s.Engine.TransferMutations(ctx, sender, recipient, amount, fee, transfer.Reference)
		if err != nil {
			return err
		}
		return s.Store.RecordTransferSend(ctx, transfer, muts...)
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// =============================================================================
// REQUEST - Intent only, no funds move
// =============================================================================

// Request records a pending money request from the requester (who will
// receive) against the user behind payerEmail (the designated sender).
// No limits or fees apply until acceptance.
func (s *TransferService) Request(ctx context.Context, requester ledger.OwnerID, payerEmail string, amount ledger.Money) (*Transfer, error) {
	if payerEmail == "" {
		return nil, fmt.Errorf("%w: sender email required", ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	if err := s.requireKYC(ctx, requester); err != nil {
		return nil, err
	}

	payer, err := s.Dir.FindByEmail(ctx, payerEmail)
	if err != nil {
		return nil, err
	}

	transfer := &Transfer{
		ID:        uuid.NewString(),
		Sender:    payer,
		Recipient: requester,
		Amount:    amount,
		Kind:      TransferRequest,
		State:     TransferPending,
		Reference: s.Refs.Next(ledger.RefTransfer),
		CreatedAt: s.now(),
	}
	if err := s.Store.SaveTransfer(ctx, transfer); err != nil {
		return nil, err
	}
	return transfer, nil
}

// =============================================================================
// ACCEPT - pending -> completed, moves funds
// =============================================================================

// Accept completes a pending request. Only the designated sender may
// accept; limits and funds are re-validated now, against current state.
func (s *TransferService) Accept(ctx context.Context, actor ledger.OwnerID, transferID string) (*Transfer, error) {
	transfer, err := s.Store.Transfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.Sender != actor {
		return nil, ErrNotTransferParty
	}
	if transfer.Kind != TransferRequest || transfer.State != TransferPending {
		return nil, ErrInvalidTransferState
	}

	user, err := s.Dir.FindByID(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := user.TransferLimits.Validate(transfer.Amount); err != nil {
		return nil, err
	}

	fee := s.Fees.Fee(transfer.Amount)
	now := s.now()

	err = s.Engine.WithAccounts([]ledger.OwnerID{transfer.Sender, transfer.Recipient}, func() error {
		_, muts, err := s.Engine.TransferMutations(ctx, transfer.Sender, transfer.Recipient, transfer.Amount, fee, transfer.Reference)
		if err != nil {
			return err
		}
		return s.Store.FinalizeTransfer(ctx, transfer.ID, TransferCompleted, now, muts...)
	})
	if err != nil {
		return nil, err
	}

	transfer.State = TransferCompleted
	transfer.Fee = fee
	transfer.CompletedAt = &now
	return transfer, nil
}

// =============================================================================
// CANCEL - pending -> cancelled, no funds move
// =============================================================================

// Cancel voids a pending request. Either party may cancel.
func (s *TransferService) Cancel(ctx context.Context, actor ledger.OwnerID, transferID string) (*Transfer, error) {
	transfer, err := s.Store.Transfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.Sender != actor && transfer.Recipient != actor {
		return nil, ErrNotTransferParty
	}
	if transfer.Kind != TransferRequest || transfer.State != TransferPending {
		return nil, ErrInvalidTransferState
	}

	if err := s.Store.FinalizeTransfer(ctx, transfer.ID, TransferCancelled, time.Time{}); err != nil {
		return nil, err
	}
	transfer.State = TransferCancelled
	return transfer, nil
}

// =============================================================================
// READS & LIMITS
// =============================================================================

// History returns the owner's transfers, newest first.
func (s *TransferService) History(ctx context.Context, owner ledger.OwnerID) ([]Transfer, error) {
	return s.Store.TransfersFor(ctx, owner)
}

// FeeSchedule exposes the configured fee structure.
func (s *TransferService) FeeSchedule() ledger.FeeSchedule { return s.Fees }

// LimitsFor returns the user's limits together with the global bounds.
func (s *TransferService) LimitsFor(ctx context.Context, owner ledger.OwnerID) (user, global ledger.Limits, err error) {
	record, err := s.Dir.FindByID(ctx, owner)
	if err != nil {
		return ledger.Limits{}, ledger.Limits{}, err
	}
	return record.TransferLimits, ledger.GlobalLimits(), nil
}

// SetLimits updates the user's transfer bounds within the global bounds.
func (s *TransferService) SetLimits(ctx context.Context, owner ledger.OwnerID, limits ledger.Limits) error {
	if err := ledger.CheckUpdate(limits, ledger.GlobalLimits()); err != nil {
		return err
	}
	if _, err := s.Dir.FindByID(ctx, owner); err != nil {
		return err
	}
	return s.Dir.UpdateLimits(ctx, owner, limits)
}
