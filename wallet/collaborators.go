/*
collaborators.go - External contracts the wallet consumes

PURPOSE:
  Identity, KYC, the payment gateway, and QR payload handling are
  peripheral systems. The wallet only consumes their results, always
  BEFORE any ledger mutation is attempted: a gateway timeout or resolver
  failure must never leave an ambiguous ledger state.

IMPLEMENTATIONS:
  store/sqlite ships a users table implementing Directory and AuthGate so
  the server runs standalone. Gateway and resolver implementations are
  deployments' concern; tests use the fakes in wallet tests.
*/
package wallet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kobo/wallet-engine/ledger"
)

// =============================================================================
// IDENTITY & KYC
// =============================================================================

// AuthGate answers the KYC precondition every money-moving handler checks.
type AuthGate interface {
	IsKYCVerified(ctx context.Context, owner ledger.OwnerID) (bool, error)
}

// UserRecord is the slice of identity the wallet needs.
type UserRecord struct {
	ID             ledger.OwnerID
	Email          string
	TransferLimits ledger.Limits
}

// Directory resolves counterparties and holds per-user transfer limits.
type Directory interface {
	// FindByEmail resolves an email to an owner id, or ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (ledger.OwnerID, error)

	// FindByID returns the user record, or ErrUserNotFound.
	FindByID(ctx context.Context, owner ledger.OwnerID) (*UserRecord, error)

	// UpdateLimits persists new transfer limits for the user.
	UpdateLimits(ctx context.Context, owner ledger.OwnerID, limits ledger.Limits) error
}

// =============================================================================
// PAYMENT GATEWAY - External deposit/withdrawal rails
// =============================================================================

// DepositConfirmation is the gateway's word that funds arrived for a
// reference it issued at initiation time.
type DepositConfirmation struct {
	Owner  ledger.OwnerID
	Amount ledger.Money
}

// PaymentGateway is the external rail. The ledger core acts only on its
// confirmed results and treats redelivered confirmations as no-ops.
type PaymentGateway interface {
	// InitiateDeposit registers an inbound payment and returns the
	// gateway's reference for it. No ledger mutation.
	InitiateDeposit(ctx context.Context, owner ledger.OwnerID, amount ledger.Money) (reference string, err error)

	// ConfirmDeposit verifies a reference with the gateway and returns
	// who gets credited with how much.
	ConfirmDeposit(ctx context.Context, reference string) (*DepositConfirmation, error)

	// Disburse pushes funds out to the destination and returns the
	// gateway reference. Called strictly before the ledger debit.
	Disburse(ctx context.Context, owner ledger.OwnerID, amount ledger.Money, destination string) (reference string, err error)
}

// =============================================================================
// QR PAYLOADS
// =============================================================================

// QRTarget is a resolved QR payload: exactly one of User or BusinessID is
// set.
type QRTarget struct {
	User       ledger.OwnerID
	BusinessID string
	Amount     ledger.Money
}

// QRResolver encodes and decodes QR payloads. Rendering the payload into
// an image is out of scope; the wallet deals in the payload string.
type QRResolver interface {
	EncodeUser(owner ledger.OwnerID, amount ledger.Money) (string, error)
	EncodeMerchant(businessID, name string) (string, error)
	Resolve(ctx context.Context, payload string) (*QRTarget, error)
}

// =============================================================================
// JSON RESOLVER - Default payload codec
// =============================================================================

// JSONQRResolver carries the target inside the payload as JSON, matching
// the wire shape scanners already understand.
type JSONQRResolver struct{}

type qrPayload struct {
	UserID     string `json:"userId,omitempty"`
	BusinessID string `json:"businessId,omitempty"`
	Name       string `json:"name,omitempty"`
	Amount     string `json:"amount,omitempty"`
}

func (JSONQRResolver) EncodeUser(owner ledger.OwnerID, amount ledger.Money) (string, error) {
	b, err := json.Marshal(qrPayload{UserID: string(owner), Amount: amount.String()})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSONQRResolver) EncodeMerchant(businessID, name string) (string, error) {
	b, err := json.Marshal(qrPayload{BusinessID: businessID, Name: name})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSONQRResolver) Resolve(_ context.Context, payload string) (*QRTarget, error) {
	var p qrPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQRPayload, err)
	}
	target := &QRTarget{
		User:       ledger.OwnerID(p.UserID),
		BusinessID: p.BusinessID,
	}
	if p.UserID == "" && p.BusinessID == "" {
		return nil, fmt.Errorf("%w: missing userId or businessId", ErrInvalidQRPayload)
	}
	if p.Amount != "" {
		amount, err := ledger.ParseMoney(p.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: bad amount", ErrInvalidQRPayload)
		}
		target.Amount = amount
	}
	return target, nil
}
