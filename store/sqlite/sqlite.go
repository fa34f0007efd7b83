/*
Package sqlite provides the SQLite-backed implementation of the storage
contracts.

PURPOSE:
  Implements wallet.Store (which embeds ledger.Store) plus the identity
  collaborators (wallet.Directory, wallet.AuthGate) on a single SQLite
  file. The same patterns apply to PostgreSQL - only dialect differences.

ATOMIC COMMITS:
  Every mutation set lands in one database transaction. Account rows are
  updated with a version guard:

      UPDATE accounts SET balance=?, version=version+1
       WHERE owner_id=? AND version=?

  Zero rows affected means the account moved since it was read - the
  commit fails with ErrConcurrentModification and nothing is applied.
  The combined writes (transfer finalization, bill, QR scan) run their
  domain INSERT/UPDATE in the same transaction as the balance commit.

REFERENCE UNIQUENESS:
  entries.reference carries a UNIQUE index. A reference collision - or a
  redelivered gateway confirmation racing past the exists-check -
  surfaces as ErrDuplicateReference instead of silently overwriting.

ENTRY ORDER:
  entries.seq (AUTOINCREMENT) preserves insertion order, which is the
  ledger's chronological order. Entries are never updated or deleted.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single
  writer, better crash recovery. A sync.RWMutex guards the connection
  so write transactions never contend for SQLite's single writer slot.

USAGE:
  store, err := sqlite.New("./data/wallet.db")   // or ":memory:"
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kobo/wallet-engine/ledger"
	"github.com/kobo/wallet-engine/wallet"
)

// Store implements wallet.Store, wallet.Directory, and wallet.AuthGate.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Users (identity glue: directory + KYC gate + limits)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		kyc_verified BOOLEAN NOT NULL DEFAULT FALSE,
		limit_min TEXT NOT NULL,
		limit_max TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Accounts (one per user, version-guarded)
	CREATE TABLE IF NOT EXISTS accounts (
		owner_id TEXT PRIMARY KEY,
		balance TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Entries (append-only ledger; seq preserves insertion order)
	CREATE TABLE IF NOT EXISTS entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		fee TEXT,
		reference TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_owner ON entries(owner_id);

	-- CRITICAL: one reference, one entry. Collisions and redelivered
	-- gateway confirmations die here instead of double-applying.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_reference ON entries(reference);

	-- Transfers (peer intents)
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		amount TEXT NOT NULL,
		fee TEXT NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		reference TEXT NOT NULL,
		created_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_sender ON transfers(sender);
	CREATE INDEX IF NOT EXISTS idx_transfers_recipient ON transfers(recipient);

	-- Bills
	CREATE TABLE IF NOT EXISTS bills (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		category TEXT NOT NULL,
		provider TEXT NOT NULL,
		bill_reference TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		reference TEXT NOT NULL,
		created_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_bills_owner ON bills(owner_id);

	-- QR intents
	CREATE TABLE IF NOT EXISTS qr_intents (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT,
		amount TEXT NOT NULL,
		counterparty TEXT,
		status TEXT NOT NULL,
		reference TEXT NOT NULL,
		created_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_qr_intents_owner ON qr_intents(owner_id);
	CREATE INDEX IF NOT EXISTS idx_qr_intents_payload ON qr_intents(payload);

	-- Merchants
	CREATE TABLE IF NOT EXISTS merchants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		business_id TEXT NOT NULL UNIQUE,
		qr_payload TEXT,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// Account returns the account with its full entry history.
func (s *Store) Account(ctx context.Context, owner ledger.OwnerID) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadAccount(ctx, s.db, owner)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) loadAccount(ctx context.Context, db querier, owner ledger.OwnerID) (*ledger.Account, error) {
	var (
		balance   string
		version   int64
		createdAt string
	)
	err := db.QueryRowContext(ctx,
		"SELECT balance, version, created_at FROM accounts WHERE owner_id = ?",
		owner,
	).Scan(&balance, &version, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	account := &ledger.Account{
		Owner:     owner,
		Balance:   mustMoney(balance),
		Version:   version,
		CreatedAt: parseTime(createdAt),
	}

	rows, err := db.QueryContext(ctx, `
		SELECT kind, amount, fee, reference, status, created_at
		FROM entries WHERE owner_id = ? ORDER BY seq ASC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry   ledger.Entry
			amount  string
			fee     sql.NullString
			created string
		)
		if err := rows.Scan(&entry.Kind, &amount, &fee, &entry.Reference, &entry.Status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entry.Amount = mustMoney(amount)
		if fee.Valid {
			f := mustMoney(fee.String)
			entry.Fee = &f
		}
		entry.CreatedAt = parseTime(created)
		account.Entries = append(account.Entries, entry)
	}
	return account, rows.Err()
}

// GetOrCreate returns the owner's account, creating one at version 0 on
// first funding.
func (s *Store) GetOrCreate(ctx context.Context, owner ledger.OwnerID) (*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (owner_id, balance, version, created_at)
		VALUES (?, '0', 0, ?)
		ON CONFLICT(owner_id) DO NOTHING
	`, owner, now())
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return s.loadAccount(ctx, s.db, owner)
}

// Commit atomically persists all mutations or none.
func (s *Store) Commit(ctx context.Context, muts ...ledger.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrCommitFailed, err)
	}
	defer tx.Rollback()

	if err := s.commitTx(ctx, tx, muts); err != nil {
		return err
	}
	return tx.Commit()
}

// commitTx applies the mutations inside an open transaction so domain
// writes can share it.
func (s *Store) commitTx(ctx context.Context, tx *sql.Tx, muts []ledger.Mutation) error {
	for _, mut := range muts {
		res, err := tx.ExecContext(ctx, `
			UPDATE accounts SET balance = ?, version = version + 1
			WHERE owner_id = ? AND version = ?
		`, mut.Balance.String(), mut.Owner, mut.Version)
		if err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrCommitFailed, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrCommitFailed, err)
		}
		if affected == 0 {
			// Missing account and stale version both land here; tell
			// them apart for the caller.
			var exists bool
			if err := tx.QueryRowContext(ctx,
				"SELECT EXISTS(SELECT 1 FROM accounts WHERE owner_id = ?)", mut.Owner,
			).Scan(&exists); err != nil {
				return fmt.Errorf("%w: %v", ledger.ErrCommitFailed, err)
			}
			if !exists {
				return ledger.ErrAccountNotFound
			}
			return ledger.ErrConcurrentModification
		}

		for _, entry := range mut.Appended {
			var fee any
			if entry.Fee != nil {
				fee = entry.Fee.String()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO entries (owner_id, kind, amount, fee, reference, status, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, mut.Owner, entry.Kind, entry.Amount.String(), fee, entry.Reference, entry.Status,
				entry.CreatedAt.UTC().Format(time.RFC3339Nano))
			if err != nil {
				if isUniqueConstraintError(err) {
					return ledger.ErrDuplicateReference
				}
				return fmt.Errorf("%w: %v", ledger.ErrCommitFailed, err)
			}
		}
	}
	return nil
}

// ReferenceExists reports whether any entry carries the reference.
func (s *Store) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM entries WHERE reference = ?)", reference,
	).Scan(&exists)
	return exists, err
}

// =============================================================================
// TRANSFERS (wallet.Store interface)
// =============================================================================

// SaveTransfer inserts a transfer record.
func (s *Store) SaveTransfer(ctx context.Context, t *wallet.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, insertTransferSQL, transferArgs(t)...)
	if err != nil {
		return fmt.Errorf("failed to save transfer: %w", err)
	}
	return nil
}

const insertTransferSQL = `
	INSERT INTO transfers (id, sender, recipient, amount, fee, kind, status, reference, created_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func transferArgs(t *wallet.Transfer) []any {
	var completedAt any
	if t.CompletedAt != nil {
		completedAt = t.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	return []any{
		t.ID, t.Sender, t.Recipient, t.Amount.String(), t.Fee.String(),
		t.Kind, t.State, t.Reference,
		t.CreatedAt.UTC().Format(time.RFC3339Nano), completedAt,
	}
}

// RecordTransferSend inserts a completed send with its two legs.
func (s *Store) RecordTransferSend(ctx context.Context, t *wallet.Transfer, muts ...ledger.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrCommitFailed, err)
	}
	defer tx.Rollback()

	if err := s.commitTx(ctx, tx, muts); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, insertTransferSQL, transferArgs(t)...); err != nil {
		return fmt.Errorf("failed to save transfer: %w", err)
	}
	return tx.Commit()
}

// FinalizeTransfer flips a pending transfer to a terminal state together
// with its ledger mutations. The state guard in the UPDATE is the
// compare-and-swap that makes double-accept lose cleanly.
func (s *Store) FinalizeTransfer(ctx context.Context, id string, state wallet.TransferState, completedAt time.Time, muts ...ledger.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrCommitFailed, err)
	}
	defer tx.Rollback()

	var completed any
	if state == wallet.TransferCompleted {
		completed = completedAt.UTC().Format(time.RFC3339Nano)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE transfers SET status = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`, state, completed, id, wallet.TransferPending)
	if err != nil {
		return fmt.Errorf("failed to finalize transfer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finalize transfer: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM transfers WHERE id = ?)", id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to finalize transfer: %w", err)
		}
		if !exists {
			return wallet.ErrTransferNotFound
		}
		return wallet.ErrTransferNotPending
	}

	if err := s.commitTx(ctx, tx, muts); err != nil {
		return err
	}
	return tx.Commit()
}

// Transfer returns a transfer by id.
func (s *Store) Transfer(ctx context.Context, id string) (*wallet.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender, recipient, amount, fee, kind, status, reference, created_at, completed_at
		FROM transfers WHERE id = ?
	`, id)
	t, err := scanTransfer(row)
	if err == sql.ErrNoRows {
		return nil, wallet.ErrTransferNotFound
	}
	return t, err
}

// TransfersFor returns transfers where the owner is either party.
func (s *Store) TransfersFor(ctx context.Context, owner ledger.OwnerID) ([]wallet.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, recipient, amount, fee, kind, status, reference, created_at, completed_at
		FROM transfers WHERE sender = ? OR recipient = ?
		ORDER BY created_at DESC
	`, owner, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []wallet.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, *t)
	}
	return transfers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (*wallet.Transfer, error) {
	var (
		t           wallet.Transfer
		amount, fee string
		createdAt   string
		completedAt sql.NullString
	)
	err := row.Scan(&t.ID, &t.Sender, &t.Recipient, &amount, &fee,
		&t.Kind, &t.State, &t.Reference, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}
	t.Amount = mustMoney(amount)
	t.Fee = mustMoney(fee)
	t.CreatedAt = parseTime(createdAt)
	if completedAt.Valid {
		at := parseTime(completedAt.String)
		t.CompletedAt = &at
	}
	return &t, nil
}

// =============================================================================
// BILLS
// =============================================================================

// SaveBill inserts a bill with its debit leg.
func (s *Store) SaveBill(ctx context.Context, b *wallet.Bill, muts ...ledger.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrCommitFailed, err)
	}
	defer tx.Rollback()

	if err := s.commitTx(ctx, tx, muts); err != nil {
		return err
	}

	var completedAt any
	if b.CompletedAt != nil {
		completedAt = b.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO bills (id, owner_id, category, provider, bill_reference, amount, status, reference, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.Owner, b.Category, b.Provider, b.BillReference, b.Amount.String(),
		b.Status, b.Reference, b.CreatedAt.UTC().Format(time.RFC3339Nano), completedAt)
	if err != nil {
		return fmt.Errorf("failed to save bill: %w", err)
	}
	return tx.Commit()
}

// BillsFor returns the owner's bills, newest first.
func (s *Store) BillsFor(ctx context.Context, owner ledger.OwnerID) ([]wallet.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, category, provider, bill_reference, amount, status, reference, created_at, completed_at
		FROM bills WHERE owner_id = ? ORDER BY created_at DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var bills []wallet.Bill
	for rows.Next() {
		var (
			b           wallet.Bill
			amount      string
			createdAt   string
			completedAt sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Owner, &b.Category, &b.Provider, &b.BillReference,
			&amount, &b.Status, &b.Reference, &createdAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		b.Amount = mustMoney(amount)
		b.CreatedAt = parseTime(createdAt)
		if completedAt.Valid {
			at := parseTime(completedAt.String)
			b.CompletedAt = &at
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// =============================================================================
// QR INTENTS
// =============================================================================

const insertQRIntentSQL = `
	INSERT INTO qr_intents (id, owner_id, kind, payload, amount, counterparty, status, reference, created_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func qrIntentArgs(qi *wallet.QRIntent) []any {
	var completedAt any
	if qi.CompletedAt != nil {
		completedAt = qi.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	return []any{
		qi.ID, qi.Owner, qi.Kind, nullString(qi.Payload), qi.Amount.String(),
		nullString(string(qi.Counterparty)), qi.Status, qi.Reference,
		qi.CreatedAt.UTC().Format(time.RFC3339Nano), completedAt,
	}
}

// SaveQRIntent inserts a generated QR intent.
func (s *Store) SaveQRIntent(ctx context.Context, qi *wallet.QRIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, insertQRIntentSQL, qrIntentArgs(qi)...); err != nil {
		return fmt.Errorf("failed to save qr intent: %w", err)
	}
	return nil
}

// RecordQRScan inserts a scan intent with its mutations and completes
// the matching generated intent, all in one transaction.
func (s *Store) RecordQRScan(ctx context.Context, qi *wallet.QRIntent, generatedPayload string, muts ...ledger.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrCommitFailed, err)
	}
	defer tx.Rollback()

	if err := s.commitTx(ctx, tx, muts); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, insertQRIntentSQL, qrIntentArgs(qi)...); err != nil {
		return fmt.Errorf("failed to save qr intent: %w", err)
	}

	if generatedPayload != "" {
		var completedAt any
		if qi.CompletedAt != nil {
			completedAt = qi.CompletedAt.UTC().Format(time.RFC3339Nano)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE qr_intents SET status = ?, completed_at = ?
			WHERE payload = ? AND kind = ? AND status = ?
		`, wallet.QRCompleted, completedAt, generatedPayload, wallet.QRGenerate, wallet.QRPending)
		if err != nil {
			return fmt.Errorf("failed to complete qr intent: %w", err)
		}
	}
	return tx.Commit()
}

// QRIntentsFor returns the owner's QR history, newest first.
func (s *Store) QRIntentsFor(ctx context.Context, owner ledger.OwnerID) ([]wallet.QRIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, payload, amount, counterparty, status, reference, created_at, completed_at
		FROM qr_intents WHERE owner_id = ? ORDER BY created_at DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query qr intents: %w", err)
	}
	defer rows.Close()

	var intents []wallet.QRIntent
	for rows.Next() {
		var (
			qi                    wallet.QRIntent
			payload, counterparty sql.NullString
			amount, createdAt     string
			completedAt           sql.NullString
		)
		if err := rows.Scan(&qi.ID, &qi.Owner, &qi.Kind, &payload, &amount,
			&counterparty, &qi.Status, &qi.Reference, &createdAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan qr intent: %w", err)
		}
		qi.Payload = payload.String
		qi.Counterparty = ledger.OwnerID(counterparty.String)
		qi.Amount = mustMoney(amount)
		qi.CreatedAt = parseTime(createdAt)
		if completedAt.Valid {
			at := parseTime(completedAt.String)
			qi.CompletedAt = &at
		}
		intents = append(intents, qi)
	}
	return intents, rows.Err()
}

// =============================================================================
// MERCHANTS
// =============================================================================

// SaveMerchant registers a merchant.
func (s *Store) SaveMerchant(ctx context.Context, m *wallet.Merchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchants (id, name, email, business_id, qr_payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.Name, m.Email, m.BusinessID, nullString(m.QRPayload),
		m.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueConstraintError(err) {
			return wallet.ErrMerchantExists
		}
		return fmt.Errorf("failed to save merchant: %w", err)
	}
	return nil
}

// MerchantByBusinessID returns a merchant by business id.
func (s *Store) MerchantByBusinessID(ctx context.Context, businessID string) (*wallet.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		m         wallet.Merchant
		payload   sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, business_id, qr_payload, created_at
		FROM merchants WHERE business_id = ?
	`, businessID).Scan(&m.ID, &m.Name, &m.Email, &m.BusinessID, &payload, &createdAt)
	if err == sql.ErrNoRows {
		return nil, wallet.ErrMerchantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load merchant: %w", err)
	}
	m.QRPayload = payload.String
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}

// UpdateMerchantQR stores a regenerated QR payload.
func (s *Store) UpdateMerchantQR(ctx context.Context, businessID, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE merchants SET qr_payload = ? WHERE business_id = ?", payload, businessID)
	if err != nil {
		return fmt.Errorf("failed to update merchant qr: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return wallet.ErrMerchantNotFound
	}
	return nil
}

// =============================================================================
// USERS (wallet.Directory + wallet.AuthGate)
// =============================================================================

// User is a stored directory record.
type User struct {
	ID          ledger.OwnerID
	Email       string
	KYCVerified bool
	Limits      ledger.Limits
	CreatedAt   time.Time
}

// SaveUser inserts or updates a user. New users get the default transfer
// limits when none are set.
func (s *Store) SaveUser(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	limits := u.Limits
	if limits.Min.IsZero() && limits.Max.IsZero() {
		limits = ledger.DefaultLimits()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, kyc_verified, limit_min, limit_max, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			kyc_verified = excluded.kyc_verified
	`, u.ID, u.Email, u.KYCVerified, limits.Min.String(), limits.Max.String(), now())
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// FindByEmail resolves an email to an owner id.
func (s *Store) FindByEmail(ctx context.Context, email string) (ledger.OwnerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id ledger.OwnerID
	err := s.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", email).Scan(&id)
	if err == sql.ErrNoRows {
		return "", wallet.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	return id, nil
}

// FindByID returns the user record.
func (s *Store) FindByID(ctx context.Context, owner ledger.OwnerID) (*wallet.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		email    string
		min, max string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT email, limit_min, limit_max FROM users WHERE id = ?", owner,
	).Scan(&email, &min, &max)
	if err == sql.ErrNoRows {
		return nil, wallet.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &wallet.UserRecord{
		ID:             owner,
		Email:          email,
		TransferLimits: ledger.Limits{Min: mustMoney(min), Max: mustMoney(max)},
	}, nil
}

// UpdateLimits persists new transfer limits for the user.
func (s *Store) UpdateLimits(ctx context.Context, owner ledger.OwnerID, limits ledger.Limits) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET limit_min = ?, limit_max = ? WHERE id = ?",
		limits.Min.String(), limits.Max.String(), owner)
	if err != nil {
		return fmt.Errorf("failed to update limits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return wallet.ErrUserNotFound
	}
	return nil
}

// IsKYCVerified answers the KYC gate from the users table.
func (s *Store) IsKYCVerified(ctx context.Context, owner ledger.OwnerID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var verified bool
	err := s.db.QueryRowContext(ctx,
		"SELECT kyc_verified FROM users WHERE id = ?", owner).Scan(&verified)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check kyc: %w", err)
	}
	return verified, nil
}

// SetKYCVerified flips the KYC flag (admin/KYC-workflow glue).
func (s *Store) SetKYCVerified(ctx context.Context, owner ledger.OwnerID, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET kyc_verified = ? WHERE id = ?", verified, owner)
	if err != nil {
		return fmt.Errorf("failed to set kyc: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return wallet.ErrUserNotFound
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func mustMoney(s string) ledger.Money {
	m, err := ledger.ParseMoney(s)
	if err != nil {
		return ledger.Zero()
	}
	return m
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
