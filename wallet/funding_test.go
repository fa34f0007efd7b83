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
// DEPOSIT TESTS
// =============================================================================

func TestFunding_InitiateDeposit_NoLedgerMutation(t *testing.T) {
	// GIVEN: Alice has no account yet
	// WHEN: Initiating a deposit
	// THEN: The gateway is called, a reference returns, no account exists

	f := newFixture(t)
	ctx := context.Background()

	ref, err := f.funding.InitiateDeposit(ctx, "alice", money(t, "500"))
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
	assert.Equal(t, 1, f.gateway.initiated)

	_, err = f.store.Account(ctx, "alice")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound, "initiation must not touch the ledger")
}

func TestFunding_ConfirmDeposit_CreditsOnce(t *testing.T) {
	// GIVEN: A gateway-confirmed reference
	// WHEN: Confirming it twice (e.g. endpoint + webhook redelivery)
	// THEN: Exactly one credit; the second delivery is a no-op

	f := newFixture(t)
	ctx := context.Background()

	ref, err := f.funding.InitiateDeposit(ctx, "alice", money(t, "500"))
	require.NoError(t, err)

	account, err := f.funding.ConfirmDeposit(ctx, ref)
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(money(t, "500")))

	account, err = f.funding.ConfirmDeposit(ctx, ref)
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(money(t, "500")), "redelivery must not credit twice")
	assert.Len(t, account.Entries, 1)
}

func TestFunding_ConfirmDeposit_UnknownReference(t *testing.T) {
	f := newFixture(t)

	_, err := f.funding.ConfirmDeposit(context.Background(), "DEP_bogus")
	assert.ErrorIs(t, err, wallet.ErrGatewayFailure)
}

func TestFunding_InitiateDeposit_RequiresKYC(t *testing.T) {
	f := newFixture(t)
	f.auth.verified["alice"] = false

	_, err := f.funding.InitiateDeposit(context.Background(), "alice", money(t, "500"))
	assert.ErrorIs(t, err, wallet.ErrKYCRequired)
	assert.Equal(t, 0, f.gateway.initiated)
}

// =============================================================================
// WITHDRAWAL TESTS
// =============================================================================

func TestFunding_Withdraw_DisbursesThenDebits(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "500")
	ctx := context.Background()

	entry, err := f.funding.Withdraw(ctx, "alice", money(t, "200"), "bank:0123456789")
	require.NoError(t, err)

	assert.Equal(t, ledger.EntryWithdrawal, entry.Kind)
	assert.True(t, f.balance(t, "alice").Equal(money(t, "300")))
	assert.Equal(t, []string{"bank:0123456789"}, f.gateway.disbursed)
}

func TestFunding_Withdraw_GatewayFailure_NoDebit(t *testing.T) {
	// GIVEN: The rail is down
	// WHEN: Withdrawing
	// THEN: ErrGatewayFailure and the balance is untouched

	f := newFixture(t)
	f.fund(t, "alice", "500")
	f.gateway.failDisburse = true

	_, err := f.funding.Withdraw(context.Background(), "alice", money(t, "200"), "bank:0123456789")
	assert.ErrorIs(t, err, wallet.ErrGatewayFailure)
	assert.True(t, f.balance(t, "alice").Equal(money(t, "500")))
}

func TestFunding_Withdraw_InsufficientFunds_SkipsGateway(t *testing.T) {
	// Overdrawn requests must never reach the rail.
	f := newFixture(t)
	f.fund(t, "alice", "100")

	_, err := f.funding.Withdraw(context.Background(), "alice", money(t, "150"), "bank:0123456789")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Empty(t, f.gateway.disbursed)
}

// =============================================================================
// READ TESTS
// =============================================================================

func TestFunding_BalanceAndEntries(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "500")
	ctx := context.Background()

	balance, err := f.funding.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(money(t, "500")))

	entries, err := f.funding.Entries(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.EntryDeposit, entries[0].Kind)

	_, err = f.funding.Balance(ctx, "ghost")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}
