package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kofiarhin/detention-desk-sub000/ledger"
)

// =============================================================================
// BULK SERVE
// =============================================================================

func TestBulkServe_UpdatesEligibleSkipsTerminal(t *testing.T) {
	// GIVEN: A pending, a scheduled, and a voided detention
	// WHEN: Bulk serving all three
	// THEN: Pending and scheduled are served, voided is skipped

	store := newTestStore(t)
	exec := ledger.NewBulkExecutor(store, nil)
	ctx := context.Background()
	base := testNow().Add(-24 * time.Hour)

	insertPending(t, store, "det-pending", 30, base)

	scheduled := insertPending(t, store, "det-scheduled", 20, base)
	future := testNow().Add(24 * time.Hour)
	require.NoError(t, ledger.Transition(&scheduled, ledger.StatusScheduled,
		ledger.TransitionOptions{ScheduledFor: &future, Now: testNow()}))
	require.NoError(t, store.UpdateDetention(ctx, scheduled))

	voided := insertPending(t, store, "det-voided", 10, base)
	require.NoError(t, ledger.Transition(&voided, ledger.StatusVoided,
		ledger.TransitionOptions{Actor: "head-1", Now: testNow()}))
	require.NoError(t, store.UpdateDetention(ctx, voided))

	result, err := exec.Serve(ctx, "tenant-1",
		[]ledger.DetentionID{"det-pending", "det-scheduled", "det-voided"}, "admin-1")

	require.NoError(t, err)
	assert.Equal(t, ledger.BulkResult{TotalRequested: 3, Updated: 2, Skipped: 1}, result)

	served, err := store.GetDetention(ctx, "tenant-1", "det-pending")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusServed, served.Status)
	assert.Equal(t, 0, served.MinutesRemaining)
	assert.Equal(t, ledger.UserID("admin-1"), served.ServedBy)

	wasScheduled, err := store.GetDetention(ctx, "tenant-1", "det-scheduled")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusServed, wasScheduled.Status)
	assert.Nil(t, wasScheduled.ScheduledFor, "serve clears the schedule")

	untouched, err := store.GetDetention(ctx, "tenant-1", "det-voided")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusVoided, untouched.Status)
	assert.Equal(t, 10, untouched.MinutesRemaining)
}

func TestBulkServe_Idempotent(t *testing.T) {
	// GIVEN: A bulk serve already ran
	// WHEN: The identical call runs again
	// THEN: Zero rows update; already-served rows fail the eligibility filter

	store := newTestStore(t)
	exec := ledger.NewBulkExecutor(store, nil)
	ctx := context.Background()

	insertPending(t, store, "det-1", 15, testNow().Add(-time.Hour))
	ids := []ledger.DetentionID{"det-1"}

	first, err := exec.Serve(ctx, "tenant-1", ids, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Updated)

	second, err := exec.Serve(ctx, "tenant-1", ids, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.BulkResult{TotalRequested: 1, Updated: 0, Skipped: 1}, second)
}

func TestBulk_DuplicateIDsCountOnce(t *testing.T) {
	store := newTestStore(t)
	exec := ledger.NewBulkExecutor(store, nil)

	insertPending(t, store, "det-1", 15, testNow().Add(-time.Hour))

	result, err := exec.Serve(context.Background(), "tenant-1",
		[]ledger.DetentionID{"det-1", "det-1", "det-1"}, "admin-1")

	require.NoError(t, err)
	assert.Equal(t, ledger.BulkResult{TotalRequested: 1, Updated: 1, Skipped: 0}, result)
}

func TestBulk_EmptyAndUnknownInput(t *testing.T) {
	store := newTestStore(t)
	exec := ledger.NewBulkExecutor(store, nil)
	ctx := context.Background()

	empty, err := exec.Serve(ctx, "tenant-1", nil, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.BulkResult{}, empty)

	unknown, err := exec.Serve(ctx, "tenant-1", []ledger.DetentionID{"no-such-id"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.BulkResult{TotalRequested: 1, Updated: 0, Skipped: 1}, unknown)
}

func TestBulk_ForeignTenantIDsAreSkipped(t *testing.T) {
	// GIVEN: A detention belonging to tenant-2
	// WHEN: Tenant-1 bulk serves it
	// THEN: Skipped, and the response reveals nothing beyond the count

	store := newTestStore(t)
	exec := ledger.NewBulkExecutor(store, nil)
	ctx := context.Background()

	foreign := ledger.Detention{
		ID: "det-foreign", TenantID: "tenant-2", StudentID: "student-9",
		MinutesAssigned: 30, MinutesRemaining: 30,
		Status: ledger.StatusPending, CreatedAt: testNow().Add(-time.Hour),
	}
	require.NoError(t, store.InsertDetention(ctx, foreign))

	result, err := exec.Serve(ctx, "tenant-1", []ledger.DetentionID{"det-foreign"}, "admin-1")

	require.NoError(t, err)
	assert.Equal(t, ledger.BulkResult{TotalRequested: 1, Updated: 0, Skipped: 1}, result)

	unchanged, err := store.GetDetention(ctx, "tenant-2", "det-foreign")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, unchanged.Status)
}

// =============================================================================
// BULK VOID
// =============================================================================

func TestBulkVoid_KeepsRemainingMinutes(t *testing.T) {
	store := newTestStore(t)
	exec := ledger.NewBulkExecutor(store, nil)
	ctx := context.Background()

	insertPending(t, store, "det-1", 25, testNow().Add(-time.Hour))

	result, err := exec.Void(ctx, "tenant-1", []ledger.DetentionID{"det-1"}, "head-1")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	d, err := store.GetDetention(ctx, "tenant-1", "det-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusVoided, d.Status)
	assert.Equal(t, 25, d.MinutesRemaining, "bulk void must not zero the debt")
	require.NotNil(t, d.VoidedAt)
	assert.Equal(t, ledger.UserID("head-1"), d.VoidedBy)
}

// =============================================================================
// BULK SCHEDULE
// =============================================================================

func TestBulkSchedule_PendingOnly(t *testing.T) {
	// GIVEN: A pending and an already-scheduled detention
	// WHEN: Bulk scheduling both to a new date
	// THEN: Only the pending one picks up the date; re-scheduling is a skip

	store := newTestStore(t)
	exec := ledger.NewBulkExecutor(store, nil)
	ctx := context.Background()
	base := testNow().Add(-24 * time.Hour)

	insertPending(t, store, "det-pending", 30, base)

	already := insertPending(t, store, "det-scheduled", 20, base)
	original := testNow().Add(24 * time.Hour)
	require.NoError(t, ledger.Transition(&already, ledger.StatusScheduled,
		ledger.TransitionOptions{ScheduledFor: &original, Now: testNow()}))
	require.NoError(t, store.UpdateDetention(ctx, already))

	newDate := testNow().Add(96 * time.Hour)
	result, err := exec.Schedule(ctx, "tenant-1",
		[]ledger.DetentionID{"det-pending", "det-scheduled"}, newDate, "admin-1")

	require.NoError(t, err)
	assert.Equal(t, ledger.BulkResult{TotalRequested: 2, Updated: 1, Skipped: 1}, result)

	scheduled, err := store.GetDetention(ctx, "tenant-1", "det-pending")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusScheduled, scheduled.Status)
	require.NotNil(t, scheduled.ScheduledFor)
	assert.Equal(t, newDate.Unix(), scheduled.ScheduledFor.Unix())

	kept, err := store.GetDetention(ctx, "tenant-1", "det-scheduled")
	require.NoError(t, err)
	require.NotNil(t, kept.ScheduledFor)
	assert.Equal(t, original.Unix(), kept.ScheduledFor.Unix(), "existing schedule survives")
}

func TestBulkSchedule_PastDateFailsWholeBatch(t *testing.T) {
	// GIVEN: Two pending detentions
	// WHEN: Bulk scheduling to a past date
	// THEN: ValidationError before any write; both stay pending

	store := newTestStore(t)
	exec := ledger.NewBulkExecutor(store, nil)
	ctx := context.Background()

	insertPending(t, store, "det-1", 10, testNow().Add(-time.Hour))
	insertPending(t, store, "det-2", 10, testNow().Add(-time.Hour))

	past := time.Now().UTC().Add(-time.Hour)
	_, err := exec.Schedule(ctx, "tenant-1",
		[]ledger.DetentionID{"det-1", "det-2"}, past, "admin-1")

	assert.ErrorIs(t, err, ledger.ErrValidation)

	for _, id := range []ledger.DetentionID{"det-1", "det-2"} {
		d, err := store.GetDetention(ctx, "tenant-1", id)
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusPending, d.Status)
	}
}
