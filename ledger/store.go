/*
store.go - Persistence interfaces for the ledger core

PURPOSE:
  Defines the interface between the ledger domain logic and the database.
  Different implementations can use SQLite, PostgreSQL, or in-memory
  storage; the domain code never sees SQL.

KEY INTERFACES:
  Store:       Record persistence plus the two conditional writes the
               concurrency model depends on (UpdateDetentionIf and
               BulkTransition)
  AtomicStore: Store plus RunAtomic, with an explicit capability flag

OFFSET CONTRACT:
  Offsets are append-only. There is no UpdateOffset and no DeleteOffset,
  and there never will be - the offset table is the audit trail.

CONDITIONAL WRITES:
  UpdateDetentionIf persists a detention only if the stored row still has
  the remaining-minutes value the caller read and an eligible status. This
  is the optimistic check that keeps two concurrent reward allocations
  from double-counting the same detention. BulkTransition applies one
  status change to many rows in a single set-based update whose status
  filter provides the same protection for free.

ATOMICITY:
  The allocator wraps each award in RunAtomic. Stores that cannot provide
  multi-record transactions (the in-memory store) run the function
  directly and report AtomicSupported() == false so the degradation is an
  explicit capability, not a silent one.

IMPLEMENTATIONS:
  - store/sqlite:     Production SQLite (transactional)
  - ledger/store:     In-memory, for tests and the documented fallback
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Record persistence
// =============================================================================

type Store interface {
	// InsertDetention persists a new detention.
	InsertDetention(ctx context.Context, d Detention) error

	// GetDetention returns the detention, or nil if the id does not exist
	// within the tenant. Ids belonging to other tenants are nil too.
	GetDetention(ctx context.Context, tenantID TenantID, id DetentionID) (*Detention, error)

	// UpdateDetention persists the full detention row unconditionally.
	// Domain writes go through UpdateDetentionIf; this remains for
	// fixtures and direct administrative repair.
	UpdateDetention(ctx context.Context, d Detention) error

	// UpdateDetentionIf persists d only if the stored row still has
	// expectedRemaining minutes and a status in fromStatuses. Returns
	// false (and writes nothing) when the row changed underneath us.
	UpdateDetentionIf(ctx context.Context, d Detention, expectedRemaining int, fromStatuses []DetentionStatus) (bool, error)

	// ListOpenDetentions returns the student's detentions with
	// status = pending and remaining > 0, ordered created_at ASC then
	// id ASC. This ordering is the FIFO allocation order.
	ListOpenDetentions(ctx context.Context, tenantID TenantID, studentID StudentID) ([]Detention, error)

	// BulkTransition applies one status change to every listed detention
	// that belongs to the tenant and matches upd.EligibleFrom, in a single
	// set-based update. Returns the number of rows actually updated.
	BulkTransition(ctx context.Context, tenantID TenantID, ids []DetentionID, upd BulkUpdate) (int, error)

	// InsertReward persists a new reward. Rewards are immutable afterwards.
	InsertReward(ctx context.Context, r Reward) error

	// InsertOffset appends to the offset audit trail.
	InsertOffset(ctx context.Context, o DetentionOffset) error

	// ListOffsetsByDetention returns a detention's offsets, applied_at ASC.
	ListOffsetsByDetention(ctx context.Context, tenantID TenantID, id DetentionID) ([]DetentionOffset, error)

	// InsertIncident persists a behaviour incident record.
	InsertIncident(ctx context.Context, in Incident) error

	// InsertStudent persists the minimal student record backing
	// tenant-membership checks.
	InsertStudent(ctx context.Context, s Student) error

	// InsertAssignment links a teacher to a student for scope checks.
	InsertAssignment(ctx context.Context, a TeacherAssignment) error
}

// BulkUpdate describes one bulk status change.
type BulkUpdate struct {
	Target       DetentionStatus
	EligibleFrom []DetentionStatus

	// ScheduledFor is set only for schedule updates (already validated as
	// strictly future by the executor).
	ScheduledFor *time.Time

	Actor UserID
	At    time.Time
}

// =============================================================================
// ATOMIC STORE - Transaction capability
// =============================================================================

// AtomicStore wraps Store with transaction support. AtomicSupported is a
// startup capability check: callers decide once whether they are running
// with real transactions or the best-effort sequential fallback, rather
// than sniffing error text per call.
type AtomicStore interface {
	Store

	// RunAtomic executes fn so that either every write inside commits or
	// none do. Non-transactional stores run fn directly.
	RunAtomic(ctx context.Context, fn func(Store) error) error

	// AtomicSupported reports whether RunAtomic gives real atomicity.
	AtomicSupported() bool
}
