/*
qr.go - QR generation and scan-to-pay

PURPOSE:
  Generating a QR code records a pending receive-money intent carrying
  the encoded payload. Scanning resolves the payload to a counterparty:
  - another user: both legs move through the transfer engine, fee-free,
    and the matching generated intent (if any) flips to completed;
  - a merchant: debit-only, the merchant settles outside the ledger.
  Encoding/decoding of the payload and any image rendering live behind
  the QRResolver collaborator.
*/
package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kobo/wallet-engine/ledger"
)

// QRService handles QR payment intents.
type QRService struct {
	Engine   *ledger.Engine
	Store    Store
	Auth     AuthGate
	Resolver QRResolver
	Refs     *ledger.ReferenceGenerator

	Now func() time.Time
}

func (s *QRService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *QRService) requireKYC(ctx context.Context, owner ledger.OwnerID) error {
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
// GENERATE
// =============================================================================

// Generate creates a receive-money QR intent for the owner.
func (s *QRService) Generate(ctx context.Context, owner ledger.OwnerID, amount ledger.Money) (*QRIntent, error) {
	if !amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	if err := s.requireKYC(ctx, owner); err != nil {
		return nil, err
	}

	payload, err := s.Resolver.EncodeUser(owner, amount)
	if err != nil {
		return nil, err
	}

	intent := &QRIntent{
		ID:        uuid.NewString(),
		Owner:     owner,
		Kind:      QRGenerate,
		Payload:   payload,
		Amount:    amount,
		Status:    QRPending,
		Reference: s.Refs.Next(ledger.RefQR),
		CreatedAt: s.now(),
	}
	if err := s.Store.SaveQRIntent(ctx, intent); err != nil {
		return nil, err
	}
	return intent, nil
}

// =============================================================================
// SCAN - Pay the target encoded in the payload
// =============================================================================

// Scan resolves the payload and pays its target from the payer's account.
// User targets receive both legs of a fee-free transfer; merchant targets
// receive a debit-only leg.
func (s *QRService) Scan(ctx context.Context, payer ledger.OwnerID, payload string) (*QRIntent, error) {
	if payload == "" {
		return nil, fmt.Errorf("%w: QR code required", ErrValidation)
	}
	if err := s.requireKYC(ctx, payer); err != nil {
		return nil, err
	}

	target, err := s.Resolver.Resolve(ctx, payload)
	if err != nil {
		return nil, err
	}
	if !target.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount missing or invalid", ErrInvalidQRPayload)
	}

	if target.User != "" {
		return s.scanUser(ctx, payer, payload, target)
	}
	return s.scanMerchant(ctx, payer, target)
}

func (s *QRService) scanUser(ctx context.Context, payer ledger.OwnerID, payload string, target *QRTarget) (*QRIntent, error) {
	if target.User == payer {
		return nil, ledger.ErrSelfTransfer
	}

	now := s.now()
	intent := &QRIntent{
		ID:           uuid.NewString(),
		Owner:        payer,
		Kind:         QRScan,
		Amount:       target.Amount,
		Counterparty: target.User,
		Status:       QRCompleted,
		Reference:    s.Refs.Next(ledger.RefQR),
		CreatedAt:    now,
		CompletedAt:  &now,
	}

	err := s.Engine.WithAccounts([]ledger.OwnerID{payer, target.User}, func() error {
		// Fee is zero on QR payments; both legs still go through the
		// transfer path so the movement is recorded on both accounts.
		_, muts, err := s.Engine.TransferMutations(ctx, payer, target.User, target.Amount, ledger.Zero(), intent.Reference)
		if err != nil {
			return err
		}
		return s.Store.RecordQRScan(ctx, intent, payload, muts...)
	})
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (s *QRService) scanMerchant(ctx context.Context, payer ledger.OwnerID, target *QRTarget) (*QRIntent, error) {
	if _, err := s.Store.MerchantByBusinessID(ctx, target.BusinessID); err != nil {
		return nil, err
	}

	now := s.now()
	intent := &QRIntent{
		ID:          uuid.NewString(),
		Owner:       payer,
		Kind:        QRScan,
		Amount:      target.Amount,
		Status:      QRCompleted,
		Reference:   s.Refs.Next(ledger.RefQR),
		CreatedAt:   now,
		CompletedAt: &now,
	}

	err := s.Engine.WithAccounts([]ledger.OwnerID{payer}, func() error {
		_, mut, err := s.Engine.WithdrawalMutation(ctx, payer, target.Amount, intent.Reference)
		if err != nil {
			return err
		}
		return s.Store.RecordQRScan(ctx, intent, "", *mut)
	})
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// HistoryFor returns the owner's QR intents, newest first.
func (s *QRService) HistoryFor(ctx context.Context, owner ledger.OwnerID) ([]QRIntent, error) {
	return s.Store.QRIntentsFor(ctx, owner)
}
