/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Response wrappers where the domain type isn't returned as-is

AMOUNTS:
  Amount fields are decimal and accept both JSON numbers and strings;
  strings are preferred so clients never round.

VALIDATION:
  Validation is done in handlers and services, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/kobo/wallet-engine/ledger"
	"github.com/kobo/wallet-engine/wallet"
)

// =============================================================================
// USERS
// =============================================================================

// CreateUserRequest registers a user with the directory.
type CreateUserRequest struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	KYCVerified bool   `json:"kycVerified"`
}

// UserResponse is the directory's view of a user.
type UserResponse struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	KYCVerified bool          `json:"kycVerified"`
	Limits      ledger.Limits `json:"transferLimits"`
}

// BalanceResponse reports an account balance.
type BalanceResponse struct {
	UserID  string       `json:"userId"`
	Balance ledger.Money `json:"balance"`
}

// TransactionsResponse wraps an entry history.
type TransactionsResponse struct {
	UserID       string         `json:"userId"`
	Transactions []ledger.Entry `json:"transactions"`
}

// LimitsResponse pairs the user's limits with the global bounds.
type LimitsResponse struct {
	Limits ledger.Limits `json:"limits"`
	Global ledger.Limits `json:"global"`
}

// UpdateLimitsRequest sets new per-user transfer bounds.
type UpdateLimitsRequest struct {
	Min ledger.Money `json:"min"`
	Max ledger.Money `json:"max"`
}

// WithdrawRequest moves funds out through the gateway.
type WithdrawRequest struct {
	Amount      ledger.Money `json:"amount"`
	Destination string       `json:"destination"`
}

// =============================================================================
// TRANSFERS
// =============================================================================

// SendMoneyRequest is a direct peer transfer.
type SendMoneyRequest struct {
	SenderID       string       `json:"senderId"`
	RecipientEmail string       `json:"recipientEmail"`
	Amount         ledger.Money `json:"amount"`
}

// RequestMoneyRequest records a pending money request.
type RequestMoneyRequest struct {
	RequesterID string       `json:"requesterId"`
	SenderEmail string       `json:"senderEmail"`
	Amount      ledger.Money `json:"amount"`
}

// ActorRequest names the user performing a transfer transition.
type ActorRequest struct {
	UserID string `json:"userId"`
}

// FeesResponse exposes the fee schedule.
type FeesResponse struct {
	Fees ledger.FeeSchedule `json:"fees"`
}

// =============================================================================
// PAYMENTS (gateway deposits)
// =============================================================================

// InitiateDepositRequest starts an inbound payment.
type InitiateDepositRequest struct {
	UserID string       `json:"userId"`
	Amount ledger.Money `json:"amount"`
}

// InitiateDepositResponse carries the gateway reference the client pays
// against.
type InitiateDepositResponse struct {
	Reference string `json:"reference"`
}

// ConfirmDepositRequest credits a verified gateway reference.
type ConfirmDepositRequest struct {
	Reference string `json:"reference"`
}

// WebhookRequest is the gateway's asynchronous confirmation callback.
type WebhookRequest struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// =============================================================================
// BILLS / QR / MERCHANTS
// =============================================================================

// BillPayRequest pays a bill.
type BillPayRequest struct {
	UserID        string              `json:"userId"`
	Category      wallet.BillCategory `json:"category"`
	Provider      string              `json:"provider"`
	BillReference string              `json:"billReference"`
	Amount        ledger.Money        `json:"amount"`
}

// QRGenerateRequest creates a receive-money code.
type QRGenerateRequest struct {
	UserID string       `json:"userId"`
	Amount ledger.Money `json:"amount"`
}

// QRScanRequest pays the target encoded in a scanned code.
type QRScanRequest struct {
	UserID string `json:"userId"`
	QRCode string `json:"qrCode"`
}

// RegisterMerchantRequest adds a merchant.
type RegisterMerchantRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	BusinessID string `json:"businessId"`
}

// MerchantQRResponse carries a merchant's payment code.
type MerchantQRResponse struct {
	BusinessID string `json:"businessId"`
	QRCode     string `json:"qrCode"`
}

// MerchantPayRequest pays a merchant directly by business id.
type MerchantPayRequest struct {
	UserID string       `json:"userId"`
	Amount ledger.Money `json:"amount"`
}

// MerchantPayResponse reports the debit and the paid merchant.
type MerchantPayResponse struct {
	Merchant *wallet.Merchant `json:"merchant"`
	Entry    ledger.Entry     `json:"transaction"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
