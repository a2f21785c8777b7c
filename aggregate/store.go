/*
store.go - Read-only query interface for the aggregator

PURPOSE:
  Everything the aggregator can observe, expressed as tenant-scoped reads.
  The aggregator never mutates the ledger; this interface has no write
  methods at all, which makes that structural rather than conventional.

SCOPING RULES:
  - tenantID is the mandatory first predicate on every query.
  - student narrows a query to one student when non-nil.
  - since is an inclusive lower bound on the record's own domain timestamp
    (occurred_at / created_at / awarded_at / applied_at), nil = all time.

CONSISTENCY:
  Reads may observe state mid-allocation (a decremented detention not yet
  auto-served). The aggregator requires nothing stronger than "the store
  at a recent point in time".
*/
package aggregate

import (
	"context"
	"time"

	"github.com/kofiarhin/detention-desk-sub000/ledger"
)

// StudentMinutes is one top-N row: a student and their summed remaining
// minutes across pending and scheduled detentions.
type StudentMinutes struct {
	StudentID      ledger.StudentID
	PendingMinutes int
}

// CategoryCount is one top-N row: a behaviour category and its incident count.
type CategoryCount struct {
	CategoryID ledger.CategoryID
	Count      int
}

// Store is the aggregator's read-only view of the ledger.
type Store interface {
	// CountIncidents counts incidents by occurred_at >= since.
	CountIncidents(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, since *time.Time) (int, error)

	// CountDetentions counts detentions by created_at >= since.
	CountDetentions(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, since *time.Time) (int, error)

	// DetentionStatusCounts returns all-time counts per status.
	DetentionStatusCounts(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID) (map[ledger.DetentionStatus]int, error)

	// MinuteTotals returns all-time assigned and remaining minute sums
	// across all statuses.
	MinuteTotals(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID) (assigned, remaining int, err error)

	// RewardMinutes sums minutes_awarded by awarded_at >= since.
	RewardMinutes(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, since *time.Time) (int, error)

	// OffsetMinutes sums minutes_applied by applied_at >= since.
	OffsetMinutes(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, since *time.Time) (int, error)

	// TopPendingStudents ranks students by summed remaining minutes over
	// detentions with status in {pending, scheduled} and remaining > 0:
	// sum DESC, student id ASC.
	TopPendingStudents(ctx context.Context, tenantID ledger.TenantID, limit int) ([]StudentMinutes, error)

	// TopCategories ranks behaviour categories by all-time incident count:
	// count DESC, category id ASC.
	TopCategories(ctx context.Context, tenantID ledger.TenantID, limit int) ([]CategoryCount, error)

	// Recent* return one newest-first page (domain timestamp DESC, id DESC)
	// plus the unpaginated total.
	RecentIncidents(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, offset, limit int) ([]ledger.Incident, int, error)
	RecentDetentions(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, offset, limit int) ([]ledger.Detention, int, error)
	RecentRewards(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, offset, limit int) ([]ledger.Reward, int, error)
	RecentOffsets(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, offset, limit int) ([]ledger.DetentionOffset, int, error)

	// CountOverdueScheduled counts scheduled detentions with
	// scheduled_for < asOf and remaining > 0.
	CountOverdueScheduled(ctx context.Context, tenantID ledger.TenantID, student ledger.StudentID, asOf time.Time) (int, error)

	// StudentInTenant reports tenant membership.
	StudentInTenant(ctx context.Context, tenantID ledger.TenantID, student ledger.StudentID) (bool, error)

	// StudentAssignedTo reports whether the teacher owns the student.
	StudentAssignedTo(ctx context.Context, tenantID ledger.TenantID, teacher ledger.TeacherID, student ledger.StudentID) (bool, error)
}
