/*
store.go - Domain persistence contract

PURPOSE:
  Extends the ledger store with the wallet's intent records. The critical
  additions are the combined writes: a completed send, an accepted
  request, a bill payment, a QR scan - each persists its domain record
  and its ledger mutations as ONE atomic unit, so a crash can never leave
  a movement applied without its record or vice versa.

TRANSFER TRANSITIONS:
  FinalizeTransfer is a compare-and-swap: it flips a transfer out of
  pending and fails with ErrTransferNotPending when the transfer already
  reached a terminal state. Accept and cancel race through this point;
  exactly one wins.
*/
package wallet

import (
	"context"
	"time"

	"github.com/kobo/wallet-engine/ledger"
)

// Store persists wallet records alongside the ledger.
type Store interface {
	ledger.Store

	// SaveTransfer inserts a new transfer record (a pending request).
	SaveTransfer(ctx context.Context, t *Transfer) error

	// RecordTransferSend inserts a completed send together with its two
	// ledger legs, atomically.
	RecordTransferSend(ctx context.Context, t *Transfer, muts ...ledger.Mutation) error

	// FinalizeTransfer flips a pending transfer to the given terminal
	// state, applying the mutations in the same atomic unit. Fails with
	// ErrTransferNotPending if the transfer is not pending, and
	// ErrTransferNotFound if it does not exist.
	FinalizeTransfer(ctx context.Context, id string, state TransferState, completedAt time.Time, muts ...ledger.Mutation) error

	// Transfer returns a transfer by id, or ErrTransferNotFound.
	Transfer(ctx context.Context, id string) (*Transfer, error)

	// TransfersFor returns all transfers where the owner is sender or
	// recipient, newest first.
	TransfersFor(ctx context.Context, owner ledger.OwnerID) ([]Transfer, error)

	// SaveBill inserts a bill record with its debit leg, atomically.
	SaveBill(ctx context.Context, b *Bill, muts ...ledger.Mutation) error

	// BillsFor returns the owner's bill payments, newest first.
	BillsFor(ctx context.Context, owner ledger.OwnerID) ([]Bill, error)

	// SaveQRIntent inserts a QR intent (a generated receive-money code).
	SaveQRIntent(ctx context.Context, qi *QRIntent) error

	// RecordQRScan inserts a scan intent with its ledger mutations,
	// atomically, and marks the matching generated intent (same payload,
	// still pending) completed if one exists.
	RecordQRScan(ctx context.Context, qi *QRIntent, generatedPayload string, muts ...ledger.Mutation) error

	// QRIntentsFor returns the owner's QR history, newest first.
	QRIntentsFor(ctx context.Context, owner ledger.OwnerID) ([]QRIntent, error)

	// SaveMerchant registers a merchant. Fails with ErrMerchantExists on
	// a duplicate email or business id.
	SaveMerchant(ctx context.Context, m *Merchant) error

	// MerchantByBusinessID returns a merchant, or ErrMerchantNotFound.
	MerchantByBusinessID(ctx context.Context, businessID string) (*Merchant, error)

	// UpdateMerchantQR stores a (re)generated QR payload for a merchant.
	UpdateMerchantQR(ctx context.Context, businessID, payload string) error
}
