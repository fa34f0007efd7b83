/*
Package ledger provides the core wallet ledger engine.

PURPOSE:
  This package contains the types and algorithms that keep per-user
  balances correct: money must never be created, destroyed, or duplicated
  across concurrent operations. Every balance mutation flows through the
  Engine and lands as an immutable Entry on an Account.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A currency amount backed by decimal.Decimal (2-dp precision)
  - Entry: An immutable ledger record of one deposit or withdrawal leg
  - Account: One per user; balance plus ordered entry history

DESIGN PRINCIPLES:
  1. Immutability: Entries are appended, never modified or deleted
  2. Precision: decimal.Decimal avoids floating-point drift on money
  3. Non-negativity: Account.Balance >= 0 is checked before every commit
  4. Auditability: Every entry carries a traceable reference

SEE ALSO:
  - engine.go: Atomic multi-account mutations
  - store.go: Persistence contract with optimistic concurrency
  - fees.go, limits.go: Pure policy components
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount with minor-unit precision
// =============================================================================

// Money is a single-currency amount. The ledger is NGN-denominated with
// two decimal places; Round2 is applied whenever an amount is derived
// (fees) rather than supplied.
type Money struct {
	value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int64) Money {
	return Money{value: decimal.NewFromInt(value)}
}

// ParseMoney parses a decimal string like "515.50".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{value: d}, nil
}

func Zero() Money { return Money{value: decimal.Zero} }

func (m Money) Add(o Money) Money          { return Money{value: m.value.Add(o.value)} }
func (m Money) Sub(o Money) Money          { return Money{value: m.value.Sub(o.value)} }
func (m Money) Mul(d decimal.Decimal) Money { return Money{value: m.value.Mul(d)} }
func (m Money) Round2() Money              { return Money{value: m.value.Round(2)} }
func (m Money) IsZero() bool               { return m.value.IsZero() }
func (m Money) IsNegative() bool           { return m.value.IsNegative() }
func (m Money) IsPositive() bool           { return m.value.IsPositive() }
func (m Money) LessThan(o Money) bool      { return m.value.LessThan(o.value) }
func (m Money) GreaterThan(o Money) bool   { return m.value.GreaterThan(o.value) }
func (m Money) Equal(o Money) bool         { return m.value.Equal(o.value) }
func (m Money) Decimal() decimal.Decimal   { return m.value }
func (m Money) String() string             { return m.value.String() }

// MarshalJSON renders the amount as a JSON number string, e.g. "515.5".
func (m Money) MarshalJSON() ([]byte, error) {
	return m.value.MarshalJSON()
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return m.value.UnmarshalJSON(b)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// OwnerID identifies the user owning an account. Opaque to the ledger.
type OwnerID string

// =============================================================================
// ENTRY - One balance-affecting leg on an account
// =============================================================================

type EntryKind string

const (
	EntryDeposit    EntryKind = "deposit"
	EntryWithdrawal EntryKind = "withdrawal"
)

type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
	EntryFailed    EntryStatus = "failed"
)

// Entry records one leg of a money movement. Immutable once appended.
//
// Amount is the amount actually applied to the balance: for a fee-bearing
// withdrawal leg this is principal+fee, with Fee recording the fee portion.
// Reference is unique across the whole ledger; the two legs of a transfer
// share a base reference with _sender/_recipient suffixes.
type Entry struct {
	Kind      EntryKind   `json:"type"`
	Amount    Money       `json:"amount"`
	Fee       *Money      `json:"fee,omitempty"`
	Reference string      `json:"reference"`
	Status    EntryStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// =============================================================================
// ACCOUNT - One per user, mutated only through the Engine
// =============================================================================

// Account holds one user's balance and entry history.
//
// INVARIANTS:
//   - Balance >= 0 at all times (checked before commit)
//   - Entries is append-only; insertion order is chronological order
//
// Version is the optimistic-concurrency token: Store.Commit rejects a
// mutation built against a stale version.
type Account struct {
	Owner     OwnerID   `json:"owner"`
	Balance   Money     `json:"balance"`
	Entries   []Entry   `json:"transactions"`
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// CanDebit reports whether the account covers the given total.
func (a *Account) CanDebit(total Money) bool {
	return !a.Balance.LessThan(total)
}

// Mutated returns the mutation that applies the given entries to this
// account with the resulting balance. The account itself is not changed;
// the new state takes effect only when the Store commits it.
func (a *Account) Mutated(balance Money, appended ...Entry) Mutation {
	return Mutation{
		Owner:    a.Owner,
		Balance:  balance,
		Version:  a.Version,
		Appended: appended,
	}
}
