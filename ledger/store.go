/*
store.go - Persistence contract for accounts and entries

PURPOSE:
  Defines the interface between the ledger engine and the database.
  Implementations must make Commit atomic and version-checked: either
  every listed account mutation lands or none does, and a mutation built
  against a stale account version is rejected.

WHY VERSIONED COMMITS?
  The engine already serializes same-account operations with owner-keyed
  locks, but the store is the last line of defense: a writer bypassing the
  engine (or a second process) must not be able to overwrite a balance it
  never read. Load-mutate-save without a version check is exactly the
  lost-update bug this design exists to rule out.

REFERENCE UNIQUENESS:
  Appended entries carry globally unique references. Implementations
  enforce this with a uniqueness constraint and surface violations as
  ErrDuplicateReference - never by silently overwriting.

IMPLEMENTATIONS:
  - store/sqlite: durable, single-file, WAL mode
  - ledger/store: in-memory, for tests and development
*/
package ledger

import "context"

// =============================================================================
// MUTATION - The unit of commit
// =============================================================================

// Mutation is the proposed new state of one account: the resulting
// balance plus the entries this operation appends. Version is the version
// the account had when it was read; Commit fails with
// ErrConcurrentModification if it moved since.
type Mutation struct {
	Owner    OwnerID
	Balance  Money
	Version  int64
	Appended []Entry
}

// =============================================================================
// STORE
// =============================================================================

// Store persists accounts and their entries.
type Store interface {
	// Account returns the account for the owner, or ErrAccountNotFound.
	Account(ctx context.Context, owner OwnerID) (*Account, error)

	// GetOrCreate returns the owner's account, creating an empty one at
	// version 0 if absent. Accounts are created lazily on first funding.
	GetOrCreate(ctx context.Context, owner OwnerID) (*Account, error)

	// Commit atomically persists all mutations or none.
	// Fails with ErrConcurrentModification on a stale version and
	// ErrDuplicateReference on entry reference reuse.
	Commit(ctx context.Context, muts ...Mutation) error

	// ReferenceExists reports whether any entry carries the reference.
	// Used for idempotent ingestion of gateway confirmations.
	ReferenceExists(ctx context.Context, reference string) (bool, error)
}
