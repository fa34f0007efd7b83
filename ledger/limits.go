/*
limits.go - Transfer limit policy

PURPOSE:
  Pure validation of transfer amounts against per-user bounds, and of
  user bound updates against the global absolute bounds.

RULES:
  - A transfer amount must satisfy userMin <= amount <= userMax.
  - User bounds are mutable within the global bounds {50, 100000}:
    both positive, globalMin <= newMin, newMax <= globalMax, newMin < newMax.
*/
package ledger

import "errors"

// Limits are per-user transfer bounds.
type Limits struct {
	Min Money `json:"min"`
	Max Money `json:"max"`
}

// GlobalLimits are the absolute bounds user limits may not escape.
func GlobalLimits() Limits {
	return Limits{Min: NewMoneyFromInt(50), Max: NewMoneyFromInt(100000)}
}

// DefaultLimits are assigned to users who never set their own.
func DefaultLimits() Limits {
	return Limits{Min: NewMoneyFromInt(100), Max: NewMoneyFromInt(50000)}
}

// Validate checks a transfer amount against the user's bounds.
func (l Limits) Validate(amount Money) error {
	if amount.LessThan(l.Min) || amount.GreaterThan(l.Max) {
		return &LimitViolationError{Amount: amount, Limits: l}
	}
	return nil
}

// CheckUpdate validates a proposed user limit change against the global
// bounds. The candidate limits are returned unchanged when valid.
func CheckUpdate(candidate, global Limits) error {
	switch {
	case !candidate.Min.IsPositive() || !candidate.Max.IsPositive():
		return errors.New("limits must be positive")
	case candidate.Min.LessThan(global.Min):
		return &LimitViolationError{Amount: candidate.Min, Limits: global}
	case candidate.Max.GreaterThan(global.Max):
		return &LimitViolationError{Amount: candidate.Max, Limits: global}
	case !candidate.Min.LessThan(candidate.Max):
		return errors.New("minimum limit must be less than maximum limit")
	}
	return nil
}
