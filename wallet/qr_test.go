package wallet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobo/wallet-engine/ledger"
	"github.com/kobo/wallet-engine/wallet"
)

// =============================================================================
// GENERATE TESTS
// =============================================================================

func TestQRGenerate_RecordsPendingIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	intent, err := f.qr.Generate(ctx, "alice", money(t, "250"))
	require.NoError(t, err)

	assert.Equal(t, wallet.QRGenerate, intent.Kind)
	assert.Equal(t, wallet.QRPending, intent.Status)
	assert.Contains(t, intent.Payload, `"userId":"alice"`)
	assert.Contains(t, intent.Payload, `"amount":"250"`)
}

func TestQRGenerate_RequiresPositiveAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.qr.Generate(context.Background(), "alice", money(t, "0"))
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

// =============================================================================
// SCAN TESTS - User targets
// =============================================================================

func TestQRScan_UserTarget_FeeFreeTransfer(t *testing.T) {
	// GIVEN: Alice generated a 250 QR; Bob has 300
	// WHEN: Bob scans it
	// THEN: Bob pays exactly 250 (no fee), Alice receives 250, and
	//       Alice's generated intent flips to completed

	f := newFixture(t)
	f.fund(t, "alice", "0.01")
	f.fund(t, "bob", "300")
	ctx := context.Background()

	generated, err := f.qr.Generate(ctx, "alice", money(t, "250"))
	require.NoError(t, err)

	scan, err := f.qr.Scan(ctx, "bob", generated.Payload)
	require.NoError(t, err)

	assert.Equal(t, wallet.QRScan, scan.Kind)
	assert.Equal(t, wallet.QRCompleted, scan.Status)
	assert.Equal(t, ledger.OwnerID("alice"), scan.Counterparty)

	assert.True(t, f.balance(t, "bob").Equal(money(t, "50")), "QR payments carry no fee")
	assert.True(t, f.balance(t, "alice").Equal(money(t, "250.01")))

	aliceIntents, err := f.qr.HistoryFor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, aliceIntents, 1)
	assert.Equal(t, wallet.QRCompleted, aliceIntents[0].Status)
}

func TestQRScan_OwnCode_Rejected(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "500")
	ctx := context.Background()

	generated, err := f.qr.Generate(ctx, "alice", money(t, "250"))
	require.NoError(t, err)

	_, err = f.qr.Scan(ctx, "alice", generated.Payload)
	assert.ErrorIs(t, err, ledger.ErrSelfTransfer)
}

func TestQRScan_InsufficientFunds_IntentNotRecorded(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "0.01")
	f.fund(t, "bob", "100")
	ctx := context.Background()

	generated, err := f.qr.Generate(ctx, "alice", money(t, "250"))
	require.NoError(t, err)

	_, err = f.qr.Scan(ctx, "bob", generated.Payload)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	bobIntents, err := f.qr.HistoryFor(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bobIntents, "failed scan must not leave an intent")

	aliceIntents, err := f.qr.HistoryFor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, aliceIntents, 1)
	assert.Equal(t, wallet.QRPending, aliceIntents[0].Status, "generated intent stays pending")
}

func TestQRScan_MalformedPayload(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "bob", "300")
	ctx := context.Background()

	_, err := f.qr.Scan(ctx, "bob", "not json")
	assert.ErrorIs(t, err, wallet.ErrInvalidQRPayload)

	// Valid JSON but no target.
	_, err = f.qr.Scan(ctx, "bob", `{"amount":"100"}`)
	assert.ErrorIs(t, err, wallet.ErrInvalidQRPayload)

	// User target without an amount.
	_, err = f.qr.Scan(ctx, "bob", `{"userId":"alice"}`)
	assert.ErrorIs(t, err, wallet.ErrInvalidQRPayload)
}

// =============================================================================
// SCAN TESTS - Merchant targets
// =============================================================================

func TestQRScan_MerchantTarget_DebitOnly(t *testing.T) {
	// GIVEN: A registered merchant and Bob with 300
	// WHEN: Bob scans a merchant payload carrying an amount
	// THEN: Bob is debited; no wallet account is credited

	f := newFixture(t)
	f.fund(t, "bob", "300")
	ctx := context.Background()

	_, err := f.merchants.Register(ctx, "Corner Shop", "shop@example.com", "biz-1")
	require.NoError(t, err)

	scan, err := f.qr.Scan(ctx, "bob", `{"businessId":"biz-1","amount":"120"}`)
	require.NoError(t, err)

	assert.Equal(t, wallet.QRCompleted, scan.Status)
	assert.True(t, f.balance(t, "bob").Equal(money(t, "180")))
}

func TestQRScan_UnknownMerchant(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "bob", "300")

	_, err := f.qr.Scan(context.Background(), "bob", `{"businessId":"biz-404","amount":"120"}`)
	assert.ErrorIs(t, err, wallet.ErrMerchantNotFound)
	assert.True(t, f.balance(t, "bob").Equal(money(t, "300")))
}
