package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobo/wallet-engine/ledger"
	"github.com/kobo/wallet-engine/wallet/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) *ledger.Engine {
	t.Helper()
	return ledger.NewEngine(store.NewMemory())
}

func amount(t *testing.T, s string) ledger.Money {
	t.Helper()
	m, err := ledger.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func fund(t *testing.T, engine *ledger.Engine, owner ledger.OwnerID, balance, reference string) {
	t.Helper()
	_, err := engine.ApplyDeposit(context.Background(), owner, amount(t, balance), reference)
	require.NoError(t, err)
}

func balanceOf(t *testing.T, engine *ledger.Engine, owner ledger.OwnerID) ledger.Money {
	t.Helper()
	account, err := engine.Store().Account(context.Background(), owner)
	require.NoError(t, err)
	return account.Balance
}

// =============================================================================
// DEPOSIT TESTS
// =============================================================================

func TestEngine_Deposit_CreatesAccountLazily(t *testing.T) {
	// GIVEN: An owner with no account
	// WHEN: Their first deposit arrives
	// THEN: The account is created and credited in one step

	engine := newTestEngine(t)
	ctx := context.Background()

	entry, err := engine.ApplyDeposit(ctx, "alice", amount(t, "500"), "DEP_1_aaaaaa")
	require.NoError(t, err)

	assert.Equal(t, ledger.EntryDeposit, entry.Kind)
	assert.Equal(t, ledger.EntryCompleted, entry.Status)
	assert.True(t, balanceOf(t, engine, "alice").Equal(amount(t, "500")))
}

func TestEngine_Deposit_NonPositiveAmount_Rejected(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.ApplyDeposit(ctx, "alice", amount(t, "0"), "DEP_1_aaaaaa")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = engine.ApplyDeposit(ctx, "alice", amount(t, "-10"), "DEP_2_bbbbbb")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestEngine_Deposit_DuplicateReference_Rejected(t *testing.T) {
	// GIVEN: A deposit already applied under reference DEP_1_aaaaaa
	// WHEN: A second deposit arrives with the same reference
	// THEN: It is rejected and the balance credits exactly once

	engine := newTestEngine(t)
	ctx := context.Background()
	fund(t, engine, "alice", "100", "DEP_1_aaaaaa")

	_, err := engine.ApplyDeposit(ctx, "alice", amount(t, "100"), "DEP_1_aaaaaa")
	assert.ErrorIs(t, err, ledger.ErrDuplicateReference)

	assert.True(t, balanceOf(t, engine, "alice").Equal(amount(t, "100")))
}

// =============================================================================
// WITHDRAWAL TESTS
// =============================================================================

func TestEngine_Withdrawal_DebitsBalance(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	fund(t, engine, "alice", "500", "DEP_1_aaaaaa")

	entry, err := engine.ApplyWithdrawal(ctx, "alice", amount(t, "200"), "WDL_1_bbbbbb")
	require.NoError(t, err)

	assert.Equal(t, ledger.EntryWithdrawal, entry.Kind)
	assert.True(t, balanceOf(t, engine, "alice").Equal(amount(t, "300")))
}

func TestEngine_Withdrawal_InsufficientFunds_NothingChanges(t *testing.T) {
	// GIVEN: A balance of 100
	// WHEN: Withdrawing 150
	// THEN: InsufficientFundsError; no entry appended, balance intact

	engine := newTestEngine(t)
	ctx := context.Background()
	fund(t, engine, "alice", "100", "DEP_1_aaaaaa")

	_, err := engine.ApplyWithdrawal(ctx, "alice", amount(t, "150"), "WDL_1_bbbbbb")

	var insufficient *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, ledger.OwnerID("alice"), insufficient.Owner)
	assert.True(t, insufficient.Available.Equal(amount(t, "100")))
	assert.True(t, insufficient.Requested.Equal(amount(t, "150")))

	account, err := engine.Store().Account(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(amount(t, "100")))
	assert.Len(t, account.Entries, 1, "failed withdrawal must not append an entry")
}

func TestEngine_Withdrawal_MissingAccount(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.ApplyWithdrawal(context.Background(), "ghost", amount(t, "10"), "WDL_1_aaaaaa")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

// =============================================================================
// TRANSFER TESTS
// =============================================================================

func TestEngine_Transfer_ConservationOfPrincipal(t *testing.T) {
	// GIVEN: Alice has 1000, Bob has 100
	// WHEN: Alice transfers 500 with a 15 fee
	// THEN: Alice loses 515, Bob gains exactly 500; the fee leaves the ledger

	engine := newTestEngine(t)
	ctx := context.Background()
	fund(t, engine, "alice", "1000", "DEP_1_aaaaaa")
	fund(t, engine, "bob", "100", "DEP_2_bbbbbb")

	legs, err := engine.ApplyTransfer(ctx, "alice", "bob",
		amount(t, "500"), amount(t, "15"), "TRF_1_cccccc")
	require.NoError(t, err)

	assert.True(t, balanceOf(t, engine, "alice").Equal(amount(t, "485")))
	assert.True(t, balanceOf(t, engine, "bob").Equal(amount(t, "600")))

	// The debit leg carries the total and the fee; the credit leg carries
	// the principal only.
	assert.True(t, legs.From.Amount.Equal(amount(t, "515")))
	require.NotNil(t, legs.From.Fee)
	assert.True(t, legs.From.Fee.Equal(amount(t, "15")))
	assert.True(t, legs.To.Amount.Equal(amount(t, "500")))
	assert.Nil(t, legs.To.Fee)
}

func TestEngine_Transfer_LegReferencesShareBase(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	fund(t, engine, "alice", "1000", "DEP_1_aaaaaa")
	fund(t, engine, "bob", "0.01", "DEP_2_bbbbbb")

	legs, err := engine.ApplyTransfer(ctx, "alice", "bob",
		amount(t, "100"), amount(t, "11"), "TRF_1_cccccc")
	require.NoError(t, err)

	assert.Equal(t, "TRF_1_cccccc_sender", legs.From.Reference)
	assert.Equal(t, "TRF_1_cccccc_recipient", legs.To.Reference)
}

func TestEngine_Transfer_SelfTransfer_Rejected(t *testing.T) {
	engine := newTestEngine(t)
	fund(t, engine, "alice", "1000", "DEP_1_aaaaaa")

	_, err := engine.ApplyTransfer(context.Background(), "alice", "alice",
		amount(t, "100"), ledger.Zero(), "TRF_1_cccccc")
	assert.ErrorIs(t, err, ledger.ErrSelfTransfer)
}

func TestEngine_Transfer_InsufficientForPrincipalPlusFee(t *testing.T) {
	// GIVEN: Alice has exactly 500
	// WHEN: Transferring 500 with a 15 fee (total 515)
	// THEN: Rejected; the fee counts against available funds

	engine := newTestEngine(t)
	ctx := context.Background()
	fund(t, engine, "alice", "500", "DEP_1_aaaaaa")
	fund(t, engine, "bob", "100", "DEP_2_bbbbbb")

	_, err := engine.ApplyTransfer(ctx, "alice", "bob",
		amount(t, "500"), amount(t, "15"), "TRF_1_cccccc")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assert.True(t, balanceOf(t, engine, "alice").Equal(amount(t, "500")))
	assert.True(t, balanceOf(t, engine, "bob").Equal(amount(t, "100")))
}

func TestEngine_Transfer_MissingRecipient_SenderUntouched(t *testing.T) {
	engine := newTestEngine(t)
	fund(t, engine, "alice", "1000", "DEP_1_aaaaaa")

	_, err := engine.ApplyTransfer(context.Background(), "alice", "ghost",
		amount(t, "100"), amount(t, "11"), "TRF_1_cccccc")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	assert.True(t, balanceOf(t, engine, "alice").Equal(amount(t, "1000")))
}

func TestEngine_Transfer_ZeroFee_NoFeeOnDebitLeg(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	fund(t, engine, "alice", "1000", "DEP_1_aaaaaa")
	fund(t, engine, "bob", "0.01", "DEP_2_bbbbbb")

	legs, err := engine.ApplyTransfer(ctx, "alice", "bob",
		amount(t, "100"), ledger.Zero(), "QR_1_cccccc")
	require.NoError(t, err)

	assert.Nil(t, legs.From.Fee)
	assert.True(t, legs.From.Amount.Equal(amount(t, "100")))
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestEngine_ConcurrentDebits_NeverOverdraw(t *testing.T) {
	// GIVEN: Alice has 600; two transfers of 515 total race
	// WHEN: Both run concurrently
	// THEN: Exactly one succeeds and the balance never goes negative

	engine := newTestEngine(t)
	ctx := context.Background()
	fund(t, engine, "alice", "600", "DEP_1_aaaaaa")
	fund(t, engine, "bob", "0.01", "DEP_2_bbbbbb")
	fund(t, engine, "carol", "0.01", "DEP_3_cccccc")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	recipients := []ledger.OwnerID{"bob", "carol"}
	refs := []string{"TRF_1_dddddd", "TRF_2_eeeeee"}

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.ApplyTransfer(ctx, "alice", recipients[i],
				amount(t, "500"), amount(t, "15"), refs[i])
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one racing debit must win")
	assert.True(t, balanceOf(t, engine, "alice").Equal(amount(t, "85")))
	assert.False(t, balanceOf(t, engine, "alice").IsNegative())
}

func TestEngine_ConcurrentOpposingTransfers_NoDeadlock(t *testing.T) {
	// GIVEN: Alice and Bob each funded
	// WHEN: alice->bob and bob->alice run concurrently
	// THEN: Both complete (lock ordering prevents deadlock)

	engine := newTestEngine(t)
	ctx := context.Background()
	fund(t, engine, "alice", "1000", "DEP_1_aaaaaa")
	fund(t, engine, "bob", "1000", "DEP_2_bbbbbb")

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = engine.ApplyTransfer(ctx, "alice", "bob",
			amount(t, "100"), amount(t, "11"), "TRF_1_cccccc")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = engine.ApplyTransfer(ctx, "bob", "alice",
			amount(t, "100"), amount(t, "11"), "TRF_2_dddddd")
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Each side paid one 11 fee; principals cancel out.
	assert.True(t, balanceOf(t, engine, "alice").Equal(amount(t, "989")))
	assert.True(t, balanceOf(t, engine, "bob").Equal(amount(t, "989")))
}
