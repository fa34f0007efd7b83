/*
reference.go - Collision-resistant references for money movements

PURPOSE:
  Every entry in the ledger carries a reference of the shape
  PREFIX_<unix-millis>_<random-suffix>, e.g. TRF_1756300000000_k3x9q2.
  The prefix encodes the operation kind so a human reading a statement
  can trace where a movement came from.

UNIQUENESS:
  The generator does not consult the store; uniqueness rests on the
  timestamp plus 6 characters of crypto/rand entropy. The store carries a
  UNIQUE index on references, so the vanishingly rare collision surfaces
  as ErrDuplicateReference at commit time instead of silently clobbering
  an existing entry.

TRANSFER LEGS:
  The two legs of a peer transfer share one base reference with _sender
  and _recipient suffixes, so both sides of a movement correlate.
*/
package ledger

import (
	"crypto/rand"
	"fmt"
	"time"
)

// =============================================================================
// REFERENCE PREFIXES - One per operation kind
// =============================================================================

type RefPrefix string

const (
	RefDeposit    RefPrefix = "DEP"
	RefWithdrawal RefPrefix = "WDL"
	RefTransfer   RefPrefix = "TRF"
	RefBill       RefPrefix = "BILL"
	RefQR         RefPrefix = "QR"
	RefMerchant   RefPrefix = "MERCH"
)

// SenderLeg and RecipientLeg derive the per-leg references of a transfer
// from its base reference.
func SenderLeg(base string) string    { return base + "_sender" }
func RecipientLeg(base string) string { return base + "_recipient" }

// =============================================================================
// GENERATOR
// =============================================================================

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// ReferenceGenerator produces references. The clock and random source are
// injectable so tests can pin them down.
type ReferenceGenerator struct {
	Now  func() time.Time
	Read func(b []byte) (int, error)
}

func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{
		Now:  time.Now,
		Read: rand.Read,
	}
}

// Next returns a fresh reference for the given prefix.
func (g *ReferenceGenerator) Next(prefix RefPrefix) string {
	suffix := make([]byte, 6)
	buf := make([]byte, 6)
	if _, err := g.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to the
		// clock so a reference is still produced.
		for i := range buf {
			buf[i] = byte(g.Now().UnixNano() >> (uint(i) * 8))
		}
	}
	for i, b := range buf {
		suffix[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return fmt.Sprintf("%s_%d_%s", prefix, g.Now().UnixMilli(), suffix)
}
