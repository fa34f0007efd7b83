/*
billing.go - Bill payments

PURPOSE:
  Debits the payer and records the bill context (category, provider,
  provider-side reference) as one atomic unit. Bill payments are
  fee-free; the provider settlement itself is an external concern - the
  ledger records that the money left.
*/
package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kobo/wallet-engine/ledger"
)

// BillService handles bill payments.
type BillService struct {
	Engine *ledger.Engine
	Store  Store
	Auth   AuthGate
	Refs   *ledger.ReferenceGenerator

	Now func() time.Time
}

func (s *BillService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Pay debits the owner for a bill and records it.
func (s *BillService) Pay(ctx context.Context, owner ledger.OwnerID, category BillCategory, provider, billReference string, amount ledger.Money) (*Bill, error) {
	if provider == "" || billReference == "" {
		return nil, fmt.Errorf("%w: category, provider, bill reference, and amount required", ErrValidation)
	}
	if !ValidBillCategory(category) {
		return nil, fmt.Errorf("%w: unknown bill category %q", ErrValidation, category)
	}
	if !amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}

	ok, err := s.Auth.IsKYCVerified(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("kyc check: %w", err)
	}
	if !ok {
		return nil, ErrKYCRequired
	}

	now := s.now()
	bill := &Bill{
		ID:            uuid.NewString(),
		Owner:         owner,
		Category:      category,
		Provider:      provider,
		BillReference: billReference,
		Amount:        amount,
		Status:        "completed",
		Reference:     s.Refs.Next(ledger.RefBill),
		CreatedAt:     now,
		CompletedAt:   &now,
	}

	err = s.Engine.WithAccounts([]ledger.OwnerID{owner}, func() error {
		_, mut, err := s.Engine.WithdrawalMutation(ctx, owner, amount, bill.Reference)
		if err != nil {
			return err
		}
		return s.Store.SaveBill(ctx, bill, *mut)
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// Categories lists the accepted bill categories.
func (s *BillService) Categories() []BillCategory { return BillCategories() }

// HistoryFor returns the owner's bill payments, newest first.
func (s *BillService) HistoryFor(ctx context.Context, owner ledger.OwnerID) ([]Bill, error) {
	return s.Store.BillsFor(ctx, owner)
}
