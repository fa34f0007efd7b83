package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kobo/wallet-engine/ledger"
)

func TestLimits_Validate(t *testing.T) {
	limits := ledger.DefaultLimits() // {100, 50000}

	assert.NoError(t, limits.Validate(amount(t, "100")), "minimum is inclusive")
	assert.NoError(t, limits.Validate(amount(t, "50000")), "maximum is inclusive")
	assert.NoError(t, limits.Validate(amount(t, "2500")))

	err := limits.Validate(amount(t, "99.99"))
	assert.ErrorIs(t, err, ledger.ErrLimitViolation)

	err = limits.Validate(amount(t, "50000.01"))
	var violation *ledger.LimitViolationError
	assert.ErrorAs(t, err, &violation)
}

func TestCheckUpdate_WithinGlobalBounds(t *testing.T) {
	global := ledger.GlobalLimits() // {50, 100000}

	assert.NoError(t, ledger.CheckUpdate(ledger.Limits{
		Min: amount(t, "200"), Max: amount(t, "20000"),
	}, global))

	// Edges of the global bounds are allowed.
	assert.NoError(t, ledger.CheckUpdate(ledger.Limits{
		Min: amount(t, "50"), Max: amount(t, "100000"),
	}, global))
}

func TestCheckUpdate_Rejections(t *testing.T) {
	global := ledger.GlobalLimits()

	// Below the global floor.
	err := ledger.CheckUpdate(ledger.Limits{Min: amount(t, "25"), Max: amount(t, "1000")}, global)
	assert.ErrorIs(t, err, ledger.ErrLimitViolation)

	// Above the global ceiling.
	err = ledger.CheckUpdate(ledger.Limits{Min: amount(t, "100"), Max: amount(t, "200000")}, global)
	assert.ErrorIs(t, err, ledger.ErrLimitViolation)

	// Inverted bounds.
	err = ledger.CheckUpdate(ledger.Limits{Min: amount(t, "5000"), Max: amount(t, "1000")}, global)
	assert.Error(t, err)

	// Non-positive bounds.
	err = ledger.CheckUpdate(ledger.Limits{Min: amount(t, "0"), Max: amount(t, "1000")}, global)
	assert.Error(t, err)
}
