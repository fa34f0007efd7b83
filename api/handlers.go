/*
handlers.go - HTTP API handlers for the wallet engine

PURPOSE:
  Exposes the wallet services via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    POST   /api/users                     Create user
    GET    /api/users/{id}                Get user
    GET    /api/users/{id}/balance        Current balance
    GET    /api/users/{id}/transactions   Entry history
    GET    /api/users/{id}/limits         User + global limits
    PUT    /api/users/{id}/limits         Update limits
    POST   /api/users/{id}/withdraw       Withdraw via gateway

  Transfers:
    GET    /api/transfers?user=           History
    GET    /api/transfers/fees            Fee schedule
    POST   /api/transfers/send            Send money
    POST   /api/transfers/request         Request money
    POST   /api/transfers/{id}/accept     Accept a pending request
    POST   /api/transfers/{id}/cancel     Cancel a pending request

  Payments:
    POST   /api/payments/initiate         Start a deposit
    POST   /api/payments/confirm          Confirm a deposit reference
    POST   /api/payments/webhook          Gateway callback (idempotent)

  Bills / QR / Merchants:
    POST   /api/bills/pay                 Pay a bill
    GET    /api/bills/categories          Accepted categories
    GET    /api/bills?user=               Bill history
    POST   /api/qr/generate               Receive-money code
    POST   /api/qr/scan                   Scan-to-pay
    GET    /api/qr/history?user=          QR history
    POST   /api/merchants                 Register merchant
    GET    /api/merchants/{businessId}/qr Merchant payment code
    POST   /api/merchants/{businessId}/pay Pay merchant

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, bad amounts, insufficient funds, limits
  - 403: KYC not verified, acting on someone else's transfer
  - 404: Unknown user, account, transfer, or merchant
  - 409: State conflicts (double accept, duplicate registration)
  - 500: Storage and gateway failures

SECURITY NOTE:
  Caller identity is an explicit request field. No authentication
  middleware; front it with a gateway that authenticates and injects the
  caller before exposing publicly.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kobo/wallet-engine/ledger"
	"github.com/kobo/wallet-engine/store/sqlite"
	"github.com/kobo/wallet-engine/wallet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Transfers *wallet.TransferService
	Funding   *wallet.FundingService
	Bills     *wallet.BillService
	QR        *wallet.QRService
	Merchants *wallet.MerchantService
}

// NewHandler wires all services over the store. The store doubles as the
// user directory and KYC gate.
func NewHandler(store *sqlite.Store, gateway wallet.PaymentGateway) *Handler {
	engine := ledger.NewEngine(store)
	refs := ledger.NewReferenceGenerator()
	resolver := wallet.JSONQRResolver{}

	return &Handler{
		Store: store,
		Transfers: &wallet.TransferService{
			Engine: engine, Store: store, Auth: store, Dir: store,
			Fees: ledger.DefaultFeeSchedule(), Refs: refs,
		},
		Funding: &wallet.FundingService{
			Engine: engine, Store: store, Auth: store, Gateway: gateway,
		},
		Bills: &wallet.BillService{
			Engine: engine, Store: store, Auth: store, Refs: refs,
		},
		QR: &wallet.QRService{
			Engine: engine, Store: store, Auth: store, Resolver: resolver, Refs: refs,
		},
		Merchants: &wallet.MerchantService{
			Engine: engine, Store: store, Auth: store, Resolver: resolver, Refs: refs,
		},
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// CreateUser registers a user with the directory.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "id and email are required", nil)
		return
	}

	err := h.Store.SaveUser(r.Context(), sqlite.User{
		ID:          ledger.OwnerID(req.ID),
		Email:       req.Email,
		KYCVerified: req.KYCVerified,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}
	h.GetUserByID(w, r, req.ID, http.StatusCreated)
}

// GetUser returns the directory record.
// GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	h.GetUserByID(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *Handler) GetUserByID(w http.ResponseWriter, r *http.Request, id string, status int) {
	record, err := h.Store.FindByID(r.Context(), ledger.OwnerID(id))
	if err != nil {
		writeDomainError(w, "Failed to get user", err)
		return
	}
	verified, err := h.Store.IsKYCVerified(r.Context(), ledger.OwnerID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	writeJSON(w, status, UserResponse{
		ID:          string(record.ID),
		Email:       record.Email,
		KYCVerified: verified,
		Limits:      record.TransferLimits,
	})
}

// GetBalance returns the user's current balance.
// GET /api/users/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	balance, err := h.Funding.Balance(r.Context(), ledger.OwnerID(id))
	if err != nil {
		writeDomainError(w, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{UserID: id, Balance: balance})
}

// GetTransactions returns the user's full entry history.
// GET /api/users/{id}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := h.Funding.Entries(r.Context(), ledger.OwnerID(id))
	if err != nil {
		writeDomainError(w, "Failed to get transactions", err)
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, TransactionsResponse{UserID: id, Transactions: entries})
}

// GetLimits returns the user's transfer limits and the global bounds.
// GET /api/users/{id}/limits
func (h *Handler) GetLimits(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, global, err := h.Transfers.LimitsFor(r.Context(), ledger.OwnerID(id))
	if err != nil {
		writeDomainError(w, "Failed to get limits", err)
		return
	}
	writeJSON(w, http.StatusOK, LimitsResponse{Limits: user, Global: global})
}

// UpdateLimits sets the user's transfer limits.
// PUT /api/users/{id}/limits
func (h *Handler) UpdateLimits(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateLimitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	limits := ledger.Limits{Min: req.Min, Max: req.Max}
	if err := h.Transfers.SetLimits(r.Context(), ledger.OwnerID(id), limits); err != nil {
		writeDomainError(w, "Failed to update limits", err)
		return
	}
	writeJSON(w, http.StatusOK, LimitsResponse{Limits: limits, Global: ledger.GlobalLimits()})
}

// Withdraw disburses funds to an external destination.
// POST /api/users/{id}/withdraw
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Funding.Withdraw(r.Context(), ledger.OwnerID(id), req.Amount, req.Destination)
	if err != nil {
		writeDomainError(w, "Failed to withdraw", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// =============================================================================
// TRANSFER HANDLERS
// =============================================================================

// SendMoney performs a direct peer transfer.
// POST /api/transfers/send
func (h *Handler) SendMoney(w http.ResponseWriter, r *http.Request) {
	var req SendMoneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	transfer, err := h.Transfers.Send(r.Context(), ledger.OwnerID(req.SenderID), req.RecipientEmail, req.Amount)
	if err != nil {
		writeDomainError(w, "Failed to send money", err)
		return
	}
	writeJSON(w, http.StatusCreated, transfer)
}

// RequestMoney records a pending money request.
// POST /api/transfers/request
func (h *Handler) RequestMoney(w http.ResponseWriter, r *http.Request) {
	var req RequestMoneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	transfer, err := h.Transfers.Request(r.Context(), ledger.OwnerID(req.RequesterID), req.SenderEmail, req.Amount)
	if err != nil {
		writeDomainError(w, "Failed to request money", err)
		return
	}
	writeJSON(w, http.StatusCreated, transfer)
}

// AcceptTransfer completes a pending request. Only the designated sender
// may accept.
// POST /api/transfers/{id}/accept
func (h *Handler) AcceptTransfer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	transfer, err := h.Transfers.Accept(r.Context(), ledger.OwnerID(req.UserID), id)
	if err != nil {
		writeDomainError(w, "Failed to accept transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, transfer)
}

// CancelTransfer voids a pending request. Either party may cancel.
// POST /api/transfers/{id}/cancel
func (h *Handler) CancelTransfer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	transfer, err := h.Transfers.Cancel(r.Context(), ledger.OwnerID(req.UserID), id)
	if err != nil {
		writeDomainError(w, "Failed to cancel transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, transfer)
}

// ListTransfers returns the transfer history of ?user=.
// GET /api/transfers
func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user query parameter required", nil)
		return
	}

	transfers, err := h.Transfers.History(r.Context(), ledger.OwnerID(user))
	if err != nil {
		writeDomainError(w, "Failed to list transfers", err)
		return
	}
	if transfers == nil {
		transfers = []wallet.Transfer{}
	}
	writeJSON(w, http.StatusOK, transfers)
}

// GetFees exposes the fee schedule.
// GET /api/transfers/fees
func (h *Handler) GetFees(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FeesResponse{Fees: h.Transfers.FeeSchedule()})
}

// =============================================================================
// PAYMENT HANDLERS - Gateway deposits
// =============================================================================

// InitiateDeposit starts an inbound payment with the gateway.
// POST /api/payments/initiate
func (h *Handler) InitiateDeposit(w http.ResponseWriter, r *http.Request) {
	var req InitiateDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	reference, err := h.Funding.InitiateDeposit(r.Context(), ledger.OwnerID(req.UserID), req.Amount)
	if err != nil {
		writeDomainError(w, "Failed to initiate deposit", err)
		return
	}
	writeJSON(w, http.StatusCreated, InitiateDepositResponse{Reference: reference})
}

// ConfirmDeposit verifies a reference and credits the payer.
// POST /api/payments/confirm
func (h *Handler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	var req ConfirmDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Funding.ConfirmDeposit(r.Context(), req.Reference)
	if err != nil {
		writeDomainError(w, "Failed to confirm deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		UserID:  string(account.Owner),
		Balance: account.Balance,
	})
}

// Webhook ingests the gateway's asynchronous confirmations. Redeliveries
// are no-ops; the gateway gets a 200 either way so it stops retrying.
// POST /api/payments/webhook
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Event != "charge.success" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if _, err := h.Funding.ConfirmDeposit(r.Context(), req.Data.Reference); err != nil {
		writeDomainError(w, "Failed to process webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

// =============================================================================
// BILL HANDLERS
// =============================================================================

// PayBill debits the payer and records the bill.
// POST /api/bills/pay
func (h *Handler) PayBill(w http.ResponseWriter, r *http.Request) {
	var req BillPayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	bill, err := h.Bills.Pay(r.Context(), ledger.OwnerID(req.UserID),
		req.Category, req.Provider, req.BillReference, req.Amount)
	if err != nil {
		writeDomainError(w, "Failed to pay bill", err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

// ListBillCategories returns the accepted categories.
// GET /api/bills/categories
func (h *Handler) ListBillCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Bills.Categories())
}

// ListBills returns the bill history of ?user=.
// GET /api/bills
func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user query parameter required", nil)
		return
	}

	bills, err := h.Bills.HistoryFor(r.Context(), ledger.OwnerID(user))
	if err != nil {
		writeDomainError(w, "Failed to list bills", err)
		return
	}
	if bills == nil {
		bills = []wallet.Bill{}
	}
	writeJSON(w, http.StatusOK, bills)
}

// =============================================================================
// QR HANDLERS
// =============================================================================

// GenerateQR creates a receive-money code.
// POST /api/qr/generate
func (h *Handler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	var req QRGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	intent, err := h.QR.Generate(r.Context(), ledger.OwnerID(req.UserID), req.Amount)
	if err != nil {
		writeDomainError(w, "Failed to generate QR code", err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

// ScanQR pays the target encoded in the scanned code.
// POST /api/qr/scan
func (h *Handler) ScanQR(w http.ResponseWriter, r *http.Request) {
	var req QRScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	intent, err := h.QR.Scan(r.Context(), ledger.OwnerID(req.UserID), req.QRCode)
	if err != nil {
		writeDomainError(w, "Failed to process QR payment", err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// ListQRHistory returns the QR history of ?user=.
// GET /api/qr/history
func (h *Handler) ListQRHistory(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user query parameter required", nil)
		return
	}

	intents, err := h.QR.HistoryFor(r.Context(), ledger.OwnerID(user))
	if err != nil {
		writeDomainError(w, "Failed to list QR history", err)
		return
	}
	if intents == nil {
		intents = []wallet.QRIntent{}
	}
	writeJSON(w, http.StatusOK, intents)
}

// =============================================================================
// MERCHANT HANDLERS
// =============================================================================

// RegisterMerchant adds a merchant with a payment code.
// POST /api/merchants
func (h *Handler) RegisterMerchant(w http.ResponseWriter, r *http.Request) {
	var req RegisterMerchantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	merchant, err := h.Merchants.Register(r.Context(), req.Name, req.Email, req.BusinessID)
	if err != nil {
		writeDomainError(w, "Failed to register merchant", err)
		return
	}
	writeJSON(w, http.StatusCreated, merchant)
}

// GetMerchantQR returns (regenerating if needed) the merchant's code.
// GET /api/merchants/{businessId}/qr
func (h *Handler) GetMerchantQR(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessId")

	payload, err := h.Merchants.QRPayloadFor(r.Context(), businessID)
	if err != nil {
		writeDomainError(w, "Failed to get merchant QR code", err)
		return
	}
	writeJSON(w, http.StatusOK, MerchantQRResponse{BusinessID: businessID, QRCode: payload})
}

// PayMerchant debits the customer in favor of the merchant.
// POST /api/merchants/{businessId}/pay
func (h *Handler) PayMerchant(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessId")

	var req MerchantPayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, merchant, err := h.Merchants.Pay(r.Context(), ledger.OwnerID(req.UserID), businessID, req.Amount)
	if err != nil {
		writeDomainError(w, "Failed to pay merchant", err)
		return
	}
	writeJSON(w, http.StatusOK, MerchantPayResponse{Merchant: merchant, Entry: *entry})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, wallet.ErrValidation),
		errors.Is(err, wallet.ErrInvalidQRPayload),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrSelfTransfer),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrLimitViolation):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrKYCRequired),
		errors.Is(err, wallet.ErrNotTransferParty):
		return http.StatusForbidden
	case errors.Is(err, wallet.ErrUserNotFound),
		errors.Is(err, wallet.ErrTransferNotFound),
		errors.Is(err, wallet.ErrMerchantNotFound),
		errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, wallet.ErrInvalidTransferState),
		errors.Is(err, wallet.ErrTransferNotPending),
		errors.Is(err, wallet.ErrMerchantExists),
		errors.Is(err, ledger.ErrConcurrentModification),
		errors.Is(err, ledger.ErrDuplicateReference):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
