package wallet_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobo/wallet-engine/ledger"
	"github.com/kobo/wallet-engine/wallet"
)

func TestBillPay_DebitsAndRecords(t *testing.T) {
	// GIVEN: Alice has 500
	// WHEN: Paying a 120 electricity bill
	// THEN: Balance drops by exactly 120 (no fee) and the bill is recorded

	f := newFixture(t)
	f.fund(t, "alice", "500")
	ctx := context.Background()

	bill, err := f.bills.Pay(ctx, "alice", wallet.BillElectricity, "GridCo", "ACC-42", money(t, "120"))
	require.NoError(t, err)

	assert.Equal(t, "completed", bill.Status)
	assert.True(t, strings.HasPrefix(bill.Reference, "BILL_"))
	assert.NotNil(t, bill.CompletedAt)
	assert.True(t, f.balance(t, "alice").Equal(money(t, "380")))

	history, err := f.bills.HistoryFor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "GridCo", history[0].Provider)
	assert.Equal(t, "ACC-42", history[0].BillReference)
}

func TestBillPay_InsufficientFunds_NoRecord(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "100")
	ctx := context.Background()

	_, err := f.bills.Pay(ctx, "alice", wallet.BillWater, "AquaCo", "W-1", money(t, "150"))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	history, err := f.bills.HistoryFor(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, history, "failed payment must not leave a bill record")
	assert.True(t, f.balance(t, "alice").Equal(money(t, "100")))
}

func TestBillPay_Validation(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "500")
	ctx := context.Background()

	_, err := f.bills.Pay(ctx, "alice", wallet.BillElectricity, "", "ACC-42", money(t, "100"))
	assert.ErrorIs(t, err, wallet.ErrValidation)

	_, err = f.bills.Pay(ctx, "alice", "Groceries", "GridCo", "ACC-42", money(t, "100"))
	assert.ErrorIs(t, err, wallet.ErrValidation)

	_, err = f.bills.Pay(ctx, "alice", wallet.BillElectricity, "GridCo", "ACC-42", money(t, "0"))
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestBillPay_RequiresKYC(t *testing.T) {
	f := newFixture(t)
	f.auth.verified["alice"] = false
	f.fund(t, "alice", "500")

	_, err := f.bills.Pay(context.Background(), "alice", wallet.BillPhone, "TelCo", "P-1", money(t, "50"))
	assert.ErrorIs(t, err, wallet.ErrKYCRequired)
}

func TestBillCategories_Fixed(t *testing.T) {
	categories := newFixture(t).bills.Categories()
	assert.Len(t, categories, 6)
	assert.Contains(t, categories, wallet.BillCableTV)
	assert.Contains(t, categories, wallet.BillOther)
}
