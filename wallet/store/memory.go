// Package store provides an in-memory wallet.Store for tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kobo/wallet-engine/ledger"
	"github.com/kobo/wallet-engine/wallet"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory implements wallet.Store with maps. Every write validates the
// whole changeset before applying any of it, so a failing mutation set
// leaves nothing behind - the same all-or-nothing contract the sqlite
// store gets from database transactions.
type Memory struct {
	mu         sync.RWMutex
	accounts   map[ledger.OwnerID]*ledger.Account
	references map[string]bool
	transfers  map[string]*wallet.Transfer
	bills      map[ledger.OwnerID][]wallet.Bill
	qrIntents  map[ledger.OwnerID][]wallet.QRIntent
	merchants  map[string]*wallet.Merchant
}

func NewMemory() *Memory {
	return &Memory{
		accounts:   make(map[ledger.OwnerID]*ledger.Account),
		references: make(map[string]bool),
		transfers:  make(map[string]*wallet.Transfer),
		bills:      make(map[ledger.OwnerID][]wallet.Bill),
		qrIntents:  make(map[ledger.OwnerID][]wallet.QRIntent),
		merchants:  make(map[string]*wallet.Merchant),
	}
}

// =============================================================================
// LEDGER STORE
// =============================================================================

func (m *Memory) Account(_ context.Context, owner ledger.OwnerID) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[owner]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return copyAccount(account), nil
}

func (m *Memory) GetOrCreate(_ context.Context, owner ledger.OwnerID) (*ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[owner]
	if !ok {
		account = &ledger.Account{
			Owner:     owner,
			Balance:   ledger.Zero(),
			CreatedAt: time.Now().UTC(),
		}
		m.accounts[owner] = account
	}
	return copyAccount(account), nil
}

func (m *Memory) Commit(_ context.Context, muts ...ledger.Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateLocked(muts); err != nil {
		return err
	}
	m.applyLocked(muts)
	return nil
}

func (m *Memory) ReferenceExists(_ context.Context, reference string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.references[reference], nil
}

// validateLocked checks versions and reference uniqueness for the whole
// changeset without applying anything.
func (m *Memory) validateLocked(muts []ledger.Mutation) error {
	seen := make(map[string]bool)
	for _, mut := range muts {
		account, ok := m.accounts[mut.Owner]
		if !ok {
			return ledger.ErrAccountNotFound
		}
		if account.Version != mut.Version {
			return ledger.ErrConcurrentModification
		}
		if mut.Balance.IsNegative() {
			return ledger.ErrInsufficientFunds
		}
		for _, entry := range mut.Appended {
			if m.references[entry.Reference] || seen[entry.Reference] {
				return ledger.ErrDuplicateReference
			}
			seen[entry.Reference] = true
		}
	}
	return nil
}

func (m *Memory) applyLocked(muts []ledger.Mutation) {
	for _, mut := range muts {
		account := m.accounts[mut.Owner]
		account.Balance = mut.Balance
		account.Version++
		account.Entries = append(account.Entries, mut.Appended...)
		for _, entry := range mut.Appended {
			m.references[entry.Reference] = true
		}
	}
}

// =============================================================================
// TRANSFERS
// =============================================================================

func (m *Memory) SaveTransfer(_ context.Context, t *wallet.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *t
	m.transfers[t.ID] = &stored
	return nil
}

func (m *Memory) RecordTransferSend(_ context.Context, t *wallet.Transfer, muts ...ledger.Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateLocked(muts); err != nil {
		return err
	}
	m.applyLocked(muts)
	stored := *t
	m.transfers[t.ID] = &stored
	return nil
}

func (m *Memory) FinalizeTransfer(_ context.Context, id string, state wallet.TransferState, completedAt time.Time, muts ...ledger.Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transfers[id]
	if !ok {
		return wallet.ErrTransferNotFound
	}
	if t.State != wallet.TransferPending {
		return wallet.ErrTransferNotPending
	}
	if err := m.validateLocked(muts); err != nil {
		return err
	}
	m.applyLocked(muts)
	t.State = state
	if state == wallet.TransferCompleted {
		at := completedAt
		t.CompletedAt = &at
	}
	return nil
}

func (m *Memory) Transfer(_ context.Context, id string) (*wallet.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transfers[id]
	if !ok {
		return nil, wallet.ErrTransferNotFound
	}
	stored := *t
	return &stored, nil
}

func (m *Memory) TransfersFor(_ context.Context, owner ledger.OwnerID) ([]wallet.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []wallet.Transfer
	for _, t := range m.transfers {
		if t.Sender == owner || t.Recipient == owner {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// =============================================================================
// BILLS
// =============================================================================

func (m *Memory) SaveBill(_ context.Context, b *wallet.Bill, muts ...ledger.Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateLocked(muts); err != nil {
		return err
	}
	m.applyLocked(muts)
	m.bills[b.Owner] = append([]wallet.Bill{*b}, m.bills[b.Owner]...)
	return nil
}

func (m *Memory) BillsFor(_ context.Context, owner ledger.OwnerID) ([]wallet.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]wallet.Bill, len(m.bills[owner]))
	copy(result, m.bills[owner])
	return result, nil
}

// =============================================================================
// QR INTENTS
// =============================================================================

func (m *Memory) SaveQRIntent(_ context.Context, qi *wallet.QRIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.qrIntents[qi.Owner] = append([]wallet.QRIntent{*qi}, m.qrIntents[qi.Owner]...)
	return nil
}

func (m *Memory) RecordQRScan(_ context.Context, qi *wallet.QRIntent, generatedPayload string, muts ...ledger.Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateLocked(muts); err != nil {
		return err
	}
	m.applyLocked(muts)
	m.qrIntents[qi.Owner] = append([]wallet.QRIntent{*qi}, m.qrIntents[qi.Owner]...)

	if generatedPayload != "" {
		for owner, intents := range m.qrIntents {
			for i := range intents {
				if intents[i].Kind == wallet.QRGenerate &&
					intents[i].Payload == generatedPayload &&
					intents[i].Status == wallet.QRPending {
					intents[i].Status = wallet.QRCompleted
					at := *qi.CompletedAt
					intents[i].CompletedAt = &at
					m.qrIntents[owner] = intents
				}
			}
		}
	}
	return nil
}

func (m *Memory) QRIntentsFor(_ context.Context, owner ledger.OwnerID) ([]wallet.QRIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]wallet.QRIntent, len(m.qrIntents[owner]))
	copy(result, m.qrIntents[owner])
	return result, nil
}

// =============================================================================
// MERCHANTS
// =============================================================================

func (m *Memory) SaveMerchant(_ context.Context, merchant *wallet.Merchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.merchants {
		if existing.Email == merchant.Email || existing.BusinessID == merchant.BusinessID {
			return wallet.ErrMerchantExists
		}
	}
	stored := *merchant
	m.merchants[merchant.BusinessID] = &stored
	return nil
}

func (m *Memory) MerchantByBusinessID(_ context.Context, businessID string) (*wallet.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	merchant, ok := m.merchants[businessID]
	if !ok {
		return nil, wallet.ErrMerchantNotFound
	}
	stored := *merchant
	return &stored, nil
}

func (m *Memory) UpdateMerchantQR(_ context.Context, businessID, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merchant, ok := m.merchants[businessID]
	if !ok {
		return wallet.ErrMerchantNotFound
	}
	merchant.QRPayload = payload
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func copyAccount(a *ledger.Account) *ledger.Account {
	entries := make([]ledger.Entry, len(a.Entries))
	copy(entries, a.Entries)
	return &ledger.Account{
		Owner:     a.Owner,
		Balance:   a.Balance,
		Entries:   entries,
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
	}
}
