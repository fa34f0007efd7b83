/*
merchant.go - Merchant registry and direct merchant payments

PURPOSE:
  Merchants are registered counterparties identified by a business id.
  Paying one debits the customer; the merchant's settlement happens
  outside the ledger (merchants hold no wallet account). Merchant
  payments are fee-free.
*/
package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kobo/wallet-engine/ledger"
)

// MerchantService handles the merchant registry and merchant payments.
type MerchantService struct {
	Engine   *ledger.Engine
	Store    Store
	Auth     AuthGate
	Resolver QRResolver
	Refs     *ledger.ReferenceGenerator

	Now func() time.Time
}

func (s *MerchantService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Register adds a merchant with a payment QR payload.
func (s *MerchantService) Register(ctx context.Context, name, email, businessID string) (*Merchant, error) {
	if name == "" || email == "" || businessID == "" {
		return nil, fmt.Errorf("%w: name, email, and business ID required", ErrValidation)
	}

	payload, err := s.Resolver.EncodeMerchant(businessID, name)
	if err != nil {
		return nil, err
	}

	merchant := &Merchant{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      email,
		BusinessID: businessID,
		QRPayload:  payload,
		CreatedAt:  s.now(),
	}
	if err := s.Store.SaveMerchant(ctx, merchant); err != nil {
		return nil, err
	}
	return merchant, nil
}

// QRPayloadFor returns the merchant's QR payload, generating one if the
// record predates payload generation.
func (s *MerchantService) QRPayloadFor(ctx context.Context, businessID string) (string, error) {
	merchant, err := s.Store.MerchantByBusinessID(ctx, businessID)
	if err != nil {
		return "", err
	}
	if merchant.QRPayload == "" {
		payload, err := s.Resolver.EncodeMerchant(merchant.BusinessID, merchant.Name)
		if err != nil {
			return "", err
		}
		if err := s.Store.UpdateMerchantQR(ctx, businessID, payload); err != nil {
			return "", err
		}
		merchant.QRPayload = payload
	}
	return merchant.QRPayload, nil
}

// Pay debits the owner in favor of the merchant.
func (s *MerchantService) Pay(ctx context.Context, owner ledger.OwnerID, businessID string, amount ledger.Money) (*ledger.Entry, *Merchant, error) {
	if businessID == "" {
		return nil, nil, fmt.Errorf("%w: business ID required", ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, nil, ledger.ErrInvalidAmount
	}

	ok, err := s.Auth.IsKYCVerified(ctx, owner)
	if err != nil {
		return nil, nil, fmt.Errorf("kyc check: %w", err)
	}
	if !ok {
		return nil, nil, ErrKYCRequired
	}

	merchant, err := s.Store.MerchantByBusinessID(ctx, businessID)
	if err != nil {
		return nil, nil, err
	}

	entry, err := s.Engine.ApplyWithdrawal(ctx, owner, amount, s.Refs.Next(ledger.RefMerchant))
	if err != nil {
		return nil, nil, err
	}
	return entry, merchant, nil
}
