package wallet

import "errors"

// Sentinel errors for the operation handlers. Ledger-level failures
// (insufficient funds, limit violations, conflicts) pass through from the
// ledger package unwrapped; these cover the domain layer on top.
var (
	// ErrKYCRequired gates every money-moving operation.
	ErrKYCRequired = errors.New("KYC verification required")

	// ErrUserNotFound is returned when a counterparty cannot be resolved.
	ErrUserNotFound = errors.New("user not found")

	// ErrTransferNotFound is returned for an unknown transfer id.
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrNotTransferParty is returned when the actor is neither the
	// designated sender nor recipient of the transfer they act on.
	ErrNotTransferParty = errors.New("not a party to this transfer")

	// ErrInvalidTransferState is returned when a transition is requested
	// on a transfer that is not a pending request.
	ErrInvalidTransferState = errors.New("transfer not in a state permitting this operation")

	// ErrTransferNotPending is returned when the pending->completed or
	// pending->cancelled flip loses a race: the store found the transfer
	// already in a terminal state.
	ErrTransferNotPending = errors.New("transfer no longer pending")

	// ErrMerchantNotFound / ErrMerchantExists cover the merchant registry.
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrMerchantExists   = errors.New("merchant already registered")

	// ErrInvalidQRPayload is returned for undecodable or incomplete QR data.
	ErrInvalidQRPayload = errors.New("invalid QR code")

	// ErrValidation covers missing or malformed request fields.
	ErrValidation = errors.New("invalid request")

	// ErrGatewayFailure wraps failures from the external payment rail.
	// The ledger is never mutated when this is returned.
	ErrGatewayFailure = errors.New("payment gateway failure")
)
