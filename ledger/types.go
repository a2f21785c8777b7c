/*
Package ledger implements the detention minute-ledger core.

PURPOSE:
  This package contains the domain model and algorithms that keep a
  school's disciplinary "debt" (detention minutes) and "credit" (reward
  minutes) in permanent, auditable balance: the detention status state
  machine, the oldest-debt-first reward offset allocator, and the bulk
  status-transition executor.

KEY CONCEPTS IN THIS FILE (types.go):
  - Detention:       One unit of assigned discipline time for one student
  - Reward:          One unit of positive-behaviour minutes for one student
  - DetentionOffset: Immutable record that N minutes of a reward were
                     applied against a specific detention (the audit trail)
  - Incident:        The behaviour event that may trigger a detention
  - Typed IDs:       Strong typing prevents mixing tenant/student/record ids

DESIGN PRINCIPLES:
  1. Tenant first: every record carries a TenantID and every store access
     filters on it before anything else
  2. Immutability: offsets and rewards are never updated or deleted;
     corrections happen by voiding detentions, not editing history
  3. Monotonicity: a detention's remaining minutes only ever decrease
  4. Explicit context: operations take tenant and actor ids as arguments,
     never from ambient state

SEE ALSO:
  - machine.go:   Status transitions for a single detention
  - allocator.go: FIFO reward-to-detention offset allocation
  - bulk.go:      Batch transitions with skip accounting
  - store.go:     Persistence interfaces
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TenantID string
type StudentID string
type TeacherID string
type CategoryID string
type UserID string

type DetentionID string
type RewardID string
type OffsetID string
type IncidentID string

// NewID returns a fresh random identifier for any record kind.
func NewID() string { return uuid.NewString() }

// =============================================================================
// DETENTION STATUS
// =============================================================================

type DetentionStatus string

const (
	StatusPending   DetentionStatus = "pending"
	StatusScheduled DetentionStatus = "scheduled"
	StatusServed    DetentionStatus = "served"
	StatusVoided    DetentionStatus = "voided"
)

// Terminal reports whether no further transitions are allowed from s.
func (s DetentionStatus) Terminal() bool {
	return s == StatusServed || s == StatusVoided
}

// OpenStatuses are the statuses a detention can still be acted on from.
func OpenStatuses() []DetentionStatus {
	return []DetentionStatus{StatusPending, StatusScheduled}
}

// =============================================================================
// DETENTION - One unit of assigned discipline time
// =============================================================================

type Detention struct {
	ID        DetentionID
	TenantID  TenantID
	StudentID StudentID

	// IncidentID links back to the originating incident, if any.
	IncidentID IncidentID
	CreatedBy  UserID

	// MinutesAssigned is immutable once set. MinutesRemaining starts equal
	// to it and only ever decreases; 0 <= remaining <= assigned always.
	MinutesAssigned  int
	MinutesRemaining int

	Status       DetentionStatus
	ScheduledFor *time.Time
	ServedAt     *time.Time
	ServedBy     UserID
	VoidedAt     *time.Time
	VoidedBy     UserID

	CreatedAt time.Time
}

// MinutesServed is the portion of the assigned minutes already worked off,
// either by reward offsets or by an administrative serve.
func (d Detention) MinutesServed() int {
	return d.MinutesAssigned - d.MinutesRemaining
}

// Open reports whether the detention can still receive transitions.
func (d Detention) Open() bool { return !d.Status.Terminal() }

// =============================================================================
// REWARD - Positive-behaviour minutes awarded to a student
// =============================================================================

// Reward is immutable after creation. It is never re-opened or edited;
// unused minutes are not banked (they exist only as the funding source for
// offsets applied at award time).
type Reward struct {
	ID         RewardID
	TenantID   TenantID
	StudentID  StudentID
	CategoryID CategoryID
	AwardedBy  UserID

	MinutesAwarded int
	AwardedAt      time.Time
	CreatedAt      time.Time
}

// =============================================================================
// DETENTION OFFSET - The audit trail connecting rewards to detentions
// =============================================================================

// DetentionOffset records that MinutesApplied minutes of one reward were
// applied against one detention. Offsets are append-only: never updated,
// never deleted. For any detention,
// sum(offset minutes) == assigned - remaining (unless voided).
type DetentionOffset struct {
	ID          OffsetID
	TenantID    TenantID
	RewardID    RewardID
	DetentionID DetentionID
	StudentID   StudentID

	MinutesApplied int
	AppliedAt      time.Time
	AppliedBy      UserID
}

// =============================================================================
// INCIDENT - Behaviour event read by the aggregator
// =============================================================================

// Incident is written by incident processing (which may create a detention
// alongside it) and read by the aggregator. The ledger never mutates one.
type Incident struct {
	ID         IncidentID
	TenantID   TenantID
	StudentID  StudentID
	CategoryID CategoryID
	ReportedBy UserID

	Description string
	OccurredAt  time.Time
	CreatedAt   time.Time
}

// =============================================================================
// STUDENT & TEACHER SCOPE - Minimal records backing visibility checks
// =============================================================================

// Student exists so tenant-membership checks are answerable. Full student
// CRUD lives outside this core.
type Student struct {
	ID        StudentID
	TenantID  TenantID
	Name      string
	CreatedAt time.Time
}

// TeacherAssignment links a teacher to a student they are responsible for.
// Profile and timeline reads scoped to a teacher only see assigned students.
type TeacherAssignment struct {
	TenantID  TenantID
	TeacherID TeacherID
	StudentID StudentID
	CreatedAt time.Time
}
