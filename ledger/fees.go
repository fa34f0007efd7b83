/*
fees.go - Transfer fee policy

PURPOSE:
  Pure computation of the cost of a peer transfer. The schedule is an
  explicit injected value, not a hidden global, so tests can vary it.

FORMULA:
  fee = flat + amount * percent, rounded to the currency's two decimals.
  With the default schedule (flat 10, 1%), a 500 NGN transfer costs 15:
  the sender is debited 515 and the recipient receives 500.

FEES LEAVE THE LEDGER:
  The fee is debited from the sender but credited to no account. Only
  principal is conserved across a transfer.
*/
package ledger

import "github.com/shopspring/decimal"

// FeeSchedule configures the peer-transfer fee. Deposits, withdrawals,
// bill, merchant, and QR payments are fee-free.
type FeeSchedule struct {
	Flat    Money           `json:"flat"`
	Percent decimal.Decimal `json:"percentage"`
}

// DefaultFeeSchedule is 10 NGN flat plus 1% of the amount.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		Flat:    NewMoneyFromInt(10),
		Percent: decimal.NewFromFloat(0.01),
	}
}

// Fee computes the fee for transferring the given principal.
func (s FeeSchedule) Fee(amount Money) Money {
	return s.Flat.Add(amount.Mul(s.Percent)).Round2()
}
