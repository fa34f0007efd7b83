/*
Package wallet implements the money-movement operations over the ledger core.

PURPOSE:
  One service per operation family - peer transfers, external funding,
  bill payments, merchant payments, QR payments. Each service translates
  a domain request into precondition checks (KYC, amounts, limits),
  policy calls (fees, limits), and ledger engine calls, plus the domain
  record that captures the operation's context.

LAYERING:
  wallet sits on top of ledger the way a domain package should: it never
  touches balances directly. All movement goes through ledger.Engine;
  wallet owns the intent records (Transfer, Bill, QRIntent) and their
  state machines.

SEE ALSO:
  - transfer.go: Peer send/request/accept/cancel lifecycle
  - funding.go:  Gateway-backed deposits and withdrawals
  - billing.go, merchant.go, qr.go: Payment operations
  - collaborators.go: External contracts (KYC, identity, gateway, QR)
*/
package wallet

import (
	"time"

	"github.com/kobo/wallet-engine/ledger"
)

// =============================================================================
// TRANSFER - Peer-to-peer intent, distinct from the ledger entries it produces
// =============================================================================

type TransferKind string

const (
	TransferSend    TransferKind = "send"
	TransferRequest TransferKind = "request"
)

type TransferState string

const (
	TransferPending   TransferState = "pending"
	TransferCompleted TransferState = "completed"
	TransferCancelled TransferState = "cancelled"
)

// Transfer is a peer-to-peer send or request.
//
// STATE MACHINE:
//   request: created pending -> completed (accept by the designated
//            sender, moves funds) or cancelled (either party). Terminal
//            states admit no further transitions.
//   send:    created directly completed; funds move atomically with the
//            record.
type Transfer struct {
	ID          string         `json:"id"`
	Sender      ledger.OwnerID `json:"sender"`
	Recipient   ledger.OwnerID `json:"recipient"`
	Amount      ledger.Money   `json:"amount"`
	Fee         ledger.Money   `json:"fee"`
	Kind        TransferKind   `json:"type"`
	State       TransferState  `json:"status"`
	Reference   string         `json:"reference"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// =============================================================================
// BILL - Bill payment record
// =============================================================================

type BillCategory string

const (
	BillElectricity BillCategory = "Electricity"
	BillWater       BillCategory = "Water"
	BillInternet    BillCategory = "Internet"
	BillCableTV     BillCategory = "Cable TV"
	BillPhone       BillCategory = "Phone"
	BillOther       BillCategory = "Other"
)

// BillCategories lists the accepted categories in display order.
func BillCategories() []BillCategory {
	return []BillCategory{
		BillElectricity, BillWater, BillInternet, BillCableTV, BillPhone, BillOther,
	}
}

func ValidBillCategory(c BillCategory) bool {
	for _, known := range BillCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// Bill captures one bill payment. BillReference is the provider-side
// account/invoice number; Reference is the ledger reference of the debit.
type Bill struct {
	ID            string         `json:"id"`
	Owner         ledger.OwnerID `json:"user"`
	Category      BillCategory   `json:"category"`
	Provider      string         `json:"provider"`
	BillReference string         `json:"billReference"`
	Amount        ledger.Money   `json:"amount"`
	Status        string         `json:"status"`
	Reference     string         `json:"reference"`
	CreatedAt     time.Time      `json:"createdAt"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
}

// =============================================================================
// QR INTENT - Generated and scanned QR payments
// =============================================================================

type QRKind string

const (
	QRGenerate QRKind = "generate"
	QRScan     QRKind = "scan"
)

type QRStatus string

const (
	QRPending   QRStatus = "pending"
	QRCompleted QRStatus = "completed"
	QRFailed    QRStatus = "failed"
)

// QRIntent records a QR payment interaction: a generated receive-money
// code (pending until someone scans it) or a scan-to-pay execution.
type QRIntent struct {
	ID           string         `json:"id"`
	Owner        ledger.OwnerID `json:"user"`
	Kind         QRKind         `json:"type"`
	Payload      string         `json:"qrCode,omitempty"`
	Amount       ledger.Money   `json:"amount"`
	Counterparty ledger.OwnerID `json:"recipient,omitempty"`
	Status       QRStatus       `json:"status"`
	Reference    string         `json:"reference"`
	CreatedAt    time.Time      `json:"createdAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}

// =============================================================================
// MERCHANT - Registered payment counterparty
// =============================================================================

type Merchant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	BusinessID string    `json:"businessId"`
	QRPayload  string    `json:"qrCode"`
	CreatedAt  time.Time `json:"createdAt"`
}
