/*
engine.go - Atomic multi-account mutations

PURPOSE:
  The Engine is the only component that mutates balances. It enforces the
  ledger invariants around every movement:
  - balances never go negative
  - a transfer's two legs land atomically or not at all
  - entries are appended as completed; no partial-apply state persists

CONCURRENCY:
  Each account is a unit of mutual exclusion. The engine keeps one mutex
  per owner and, for transfers, acquires both in lexicographic owner order
  so two transfers touching the same pair of accounts cannot deadlock.
  Two concurrent debits of one account therefore never both pass the
  balance check against a stale balance.

  The store's versioned Commit backs this up: even if a writer bypassed
  the engine, the stale commit would be rejected.

ORDERING:
  All preconditions (existence, funds) are checked under the locks,
  after the accounts are read. If any check fails, no entry is appended
  and no balance changes.
*/
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// OWNER LOCKS - Per-account mutual exclusion
// =============================================================================

type ownerLocks struct {
	mu    sync.Mutex
	locks map[OwnerID]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[OwnerID]*sync.Mutex)}
}

func (ol *ownerLocks) get(owner OwnerID) *sync.Mutex {
	ol.mu.Lock()
	defer ol.mu.Unlock()
	l, ok := ol.locks[owner]
	if !ok {
		l = &sync.Mutex{}
		ol.locks[owner] = l
	}
	return l
}

// lock acquires the mutexes for the given owners in lexicographic order
// and returns the unlock function. Duplicate owners are locked once.
func (ol *ownerLocks) lock(owners ...OwnerID) func() {
	ordered := make([]OwnerID, 0, len(owners))
	for _, o := range owners {
		dup := false
		for _, seen := range ordered {
			if seen == o {
				dup = true
				break
			}
		}
		if !dup {
			ordered = append(ordered, o)
		}
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j] < ordered[j-1]; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	acquired := make([]*sync.Mutex, 0, len(ordered))
	for _, o := range ordered {
		l := ol.get(o)
		l.Lock()
		acquired = append(acquired, l)
	}
	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].Unlock()
		}
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine orchestrates balance mutations against a Store.
type Engine struct {
	store Store
	locks *ownerLocks

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{
		store: store,
		locks: newOwnerLocks(),
		Now:   time.Now,
	}
}

// Store exposes the underlying store for read-only callers.
func (e *Engine) Store() Store { return e.store }

// WithAccounts runs fn with the given owners' locks held. Domain services
// use this when a precondition check and the resulting commit must see a
// consistent view (e.g. re-validating a transfer at acceptance time).
func (e *Engine) WithAccounts(owners []OwnerID, fn func() error) error {
	unlock := e.locks.lock(owners...)
	defer unlock()
	return fn()
}

// =============================================================================
// TRANSFER - Debit + credit pair, atomic
// =============================================================================

// TransferLegs holds the two entries produced by one logical transfer.
type TransferLegs struct {
	From Entry
	To   Entry
}

// ApplyTransfer moves principal from one account to another, debiting
// principal+fee from the sender and crediting principal to the recipient.
// The fee is retained by no account - it leaves the ledger.
//
// Both legs share the baseRef with _sender/_recipient suffixes and are
// committed in a single atomic store commit.
func (e *Engine) ApplyTransfer(ctx context.Context, from, to OwnerID, principal, fee Money, baseRef string) (*TransferLegs, error) {
	if !principal.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if fee.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if from == to {
		return nil, ErrSelfTransfer
	}

	unlock := e.locks.lock(from, to)
	defer unlock()

	return e.applyTransferLocked(ctx, from, to, principal, fee, baseRef)
}

// applyTransferLocked performs the transfer with the owner locks already
// held.
func (e *Engine) applyTransferLocked(ctx context.Context, from, to OwnerID, principal, fee Money, baseRef string) (*TransferLegs, error) {
	legs, muts, err := e.TransferMutations(ctx, from, to, principal, fee, baseRef)
	if err != nil {
		return nil, err
	}
	if err := e.store.Commit(ctx, muts...); err != nil {
		return nil, err
	}
	return legs, nil
}

// TransferMutations builds (without committing) the mutations and legs of
// a transfer, for callers that must commit them atomically alongside a
// domain record. Preconditions are identical to ApplyTransfer; the
// caller is expected to hold the owners' locks via WithAccounts.
func (e *Engine) TransferMutations(ctx context.Context, from, to OwnerID, principal, fee Money, baseRef string) (*TransferLegs, []Mutation, error) {
	if !principal.IsPositive() || fee.IsNegative() {
		return nil, nil, ErrInvalidAmount
	}
	if from == to {
		return nil, nil, ErrSelfTransfer
	}

	sender, err := e.store.Account(ctx, from)
	if err != nil {
		return nil, nil, fmt.Errorf("sender account: %w", err)
	}
	recipient, err := e.store.Account(ctx, to)
	if err != nil {
		return nil, nil, fmt.Errorf("recipient account: %w", err)
	}

	total := principal.Add(fee)
	if !sender.CanDebit(total) {
		return nil, nil, &InsufficientFundsError{Owner: from, Available: sender.Balance, Requested: total}
	}

	now := e.Now().UTC()
	debit := Entry{
		Kind:      EntryWithdrawal,
		Amount:    total,
		Reference: SenderLeg(baseRef),
		Status:    EntryCompleted,
		CreatedAt: now,
	}
	if !fee.IsZero() {
		f := fee
		debit.Fee = &f
	}
	credit := Entry{
		Kind:      EntryDeposit,
		Amount:    principal,
		Reference: RecipientLeg(baseRef),
		Status:    EntryCompleted,
		CreatedAt: now,
	}

	muts := []Mutation{
		sender.Mutated(sender.Balance.Sub(total), debit),
		recipient.Mutated(recipient.Balance.Add(principal), credit),
	}
	return &TransferLegs{From: debit, To: credit}, muts, nil
}

// =============================================================================
// SINGLE-ACCOUNT OPERATIONS
// =============================================================================

// ApplyDeposit credits an account. Funding originates externally, so
// there is no counterpart debit. The account is created lazily if this
// is the owner's first funding operation.
func (e *Engine) ApplyDeposit(ctx context.Context, owner OwnerID, amount Money, reference string) (*Entry, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	unlock := e.locks.lock(owner)
	defer unlock()

	account, err := e.store.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	entry := Entry{
		Kind:      EntryDeposit,
		Amount:    amount,
		Reference: reference,
		Status:    EntryCompleted,
		CreatedAt: e.Now().UTC(),
	}
	mut := account.Mutated(account.Balance.Add(amount), entry)
	if err := e.store.Commit(ctx, mut); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ApplyWithdrawal debits an account; the funds leave to an external rail.
func (e *Engine) ApplyWithdrawal(ctx context.Context, owner OwnerID, amount Money, reference string) (*Entry, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	unlock := e.locks.lock(owner)
	defer unlock()

	account, err := e.store.Account(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !account.CanDebit(amount) {
		return nil, &InsufficientFundsError{Owner: owner, Available: account.Balance, Requested: amount}
	}

	entry := Entry{
		Kind:      EntryWithdrawal,
		Amount:    amount,
		Reference: reference,
		Status:    EntryCompleted,
		CreatedAt: e.Now().UTC(),
	}
	mut := account.Mutated(account.Balance.Sub(amount), entry)
	if err := e.store.Commit(ctx, mut); err != nil {
		return nil, err
	}
	return &entry, nil
}

// WithdrawalMutation builds (without committing) a debit mutation, for
// callers that persist it atomically with a domain record. The caller is
// expected to hold the owner's lock via WithAccounts.
func (e *Engine) WithdrawalMutation(ctx context.Context, owner OwnerID, amount Money, reference string) (*Entry, *Mutation, error) {
	if !amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	account, err := e.store.Account(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	if !account.CanDebit(amount) {
		return nil, nil, &InsufficientFundsError{Owner: owner, Available: account.Balance, Requested: amount}
	}
	entry := Entry{
		Kind:      EntryWithdrawal,
		Amount:    amount,
		Reference: reference,
		Status:    EntryCompleted,
		CreatedAt: e.Now().UTC(),
	}
	mut := account.Mutated(account.Balance.Sub(amount), entry)
	return &entry, &mut, nil
}
