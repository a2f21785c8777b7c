package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kofiarhin/detention-desk-sub000/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newPending(t *testing.T, minutes int) ledger.Detention {
	t.Helper()
	d, err := ledger.NewDetention("tenant-1", "student-1", minutes, "", "teacher-1", testNow())
	require.NoError(t, err)
	return d
}

// testNow is wall-clock based so dates derived from it stay on the right
// side of "the future" for components that consult the real clock.
// Truncated to seconds to round-trip through RFC3339 storage.
func testNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func futureTime() time.Time {
	return testNow().Add(48 * time.Hour)
}

// =============================================================================
// CREATION TESTS
// =============================================================================

func TestNewDetention_StartsPendingWithFullDebt(t *testing.T) {
	d := newPending(t, 45)

	assert.Equal(t, ledger.StatusPending, d.Status)
	assert.Equal(t, 45, d.MinutesAssigned)
	assert.Equal(t, 45, d.MinutesRemaining)
	assert.NotEmpty(t, d.ID)
}

func TestNewDetention_RejectsNonPositiveMinutes(t *testing.T) {
	for _, minutes := range []int{0, -5} {
		_, err := ledger.NewDetention("tenant-1", "student-1", minutes, "", "teacher-1", testNow())

		assert.Error(t, err)
		assert.ErrorIs(t, err, ledger.ErrValidation)
	}
}

// =============================================================================
// TRANSITION TABLE TESTS
// =============================================================================

func TestCanTransition_Table(t *testing.T) {
	cases := []struct {
		from    ledger.DetentionStatus
		to      ledger.DetentionStatus
		allowed bool
	}{
		{ledger.StatusPending, ledger.StatusScheduled, true},
		{ledger.StatusPending, ledger.StatusServed, true},
		{ledger.StatusPending, ledger.StatusVoided, true},
		{ledger.StatusScheduled, ledger.StatusServed, true},
		{ledger.StatusScheduled, ledger.StatusVoided, true},
		{ledger.StatusScheduled, ledger.StatusPending, false},
		{ledger.StatusScheduled, ledger.StatusScheduled, false},
		{ledger.StatusServed, ledger.StatusVoided, false},
		{ledger.StatusServed, ledger.StatusPending, false},
		{ledger.StatusVoided, ledger.StatusServed, false},
		{ledger.StatusVoided, ledger.StatusPending, false},
		{ledger.StatusPending, ledger.StatusPending, false},
	}

	for _, tc := range cases {
		got := ledger.CanTransition(tc.from, tc.to)
		assert.Equal(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestTransition_TerminalStatesRejectEverything(t *testing.T) {
	// GIVEN: A served detention
	// WHEN: Trying any further transition
	// THEN: InvalidTransitionError, record unchanged

	d := newPending(t, 30)
	require.NoError(t, ledger.Transition(&d, ledger.StatusServed, ledger.TransitionOptions{Actor: "admin", Now: testNow()}))

	for _, target := range []ledger.DetentionStatus{ledger.StatusPending, ledger.StatusScheduled, ledger.StatusVoided} {
		err := ledger.Transition(&d, target, ledger.TransitionOptions{Now: testNow()})

		assert.Error(t, err)
		var invErr *ledger.InvalidTransitionError
		assert.ErrorAs(t, err, &invErr)
		assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
	}
	assert.Equal(t, ledger.StatusServed, d.Status)
}

// =============================================================================
// SERVE SIDE EFFECTS
// =============================================================================

func TestServe_ZeroesRemainingAndStamps(t *testing.T) {
	// GIVEN: A pending detention with 30 minutes outstanding
	// WHEN: An admin serves it directly
	// THEN: Remaining drops to 0, served_at/by are stamped

	d := newPending(t, 30)
	now := testNow()

	err := ledger.Transition(&d, ledger.StatusServed, ledger.TransitionOptions{Actor: "admin-1", Now: now})

	require.NoError(t, err)
	assert.Equal(t, ledger.StatusServed, d.Status)
	assert.Equal(t, 0, d.MinutesRemaining)
	assert.Equal(t, 30, d.MinutesAssigned, "assigned minutes are the historical record and never change")
	require.NotNil(t, d.ServedAt)
	assert.Equal(t, now, *d.ServedAt)
	assert.Equal(t, ledger.UserID("admin-1"), d.ServedBy)
}

func TestServe_FromScheduled_ClearsScheduleMetadata(t *testing.T) {
	d := newPending(t, 20)
	future := futureTime()
	require.NoError(t, ledger.Transition(&d, ledger.StatusScheduled, ledger.TransitionOptions{ScheduledFor: &future, Now: testNow()}))

	err := ledger.Transition(&d, ledger.StatusServed, ledger.TransitionOptions{Actor: "admin-1", Now: testNow()})

	require.NoError(t, err)
	assert.Nil(t, d.ScheduledFor, "serve clears the schedule")
	assert.Equal(t, 0, d.MinutesRemaining)
}

// =============================================================================
// VOID SIDE EFFECTS
// =============================================================================

func TestVoid_KeepsRemainingMinutes(t *testing.T) {
	// GIVEN: A pending detention with 25 minutes outstanding
	// WHEN: Voided
	// THEN: Remaining stays at 25 - the written-off debt stays visible

	d := newPending(t, 25)
	now := testNow()

	err := ledger.Transition(&d, ledger.StatusVoided, ledger.TransitionOptions{Actor: "head-1", Now: now})

	require.NoError(t, err)
	assert.Equal(t, ledger.StatusVoided, d.Status)
	assert.Equal(t, 25, d.MinutesRemaining, "void must not zero the debt")
	require.NotNil(t, d.VoidedAt)
	assert.Equal(t, ledger.UserID("head-1"), d.VoidedBy)
	assert.Nil(t, d.ServedAt)
}

// =============================================================================
// SCHEDULE SIDE EFFECTS
// =============================================================================

func TestSchedule_RequiresStrictlyFutureDate(t *testing.T) {
	now := testNow()
	past := now.Add(-time.Hour)
	exactlyNow := now

	cases := []struct {
		name string
		when *time.Time
	}{
		{"missing date", nil},
		{"past date", &past},
		{"exactly now", &exactlyNow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newPending(t, 15)

			err := ledger.Transition(&d, ledger.StatusScheduled, ledger.TransitionOptions{ScheduledFor: tc.when, Now: now})

			assert.ErrorIs(t, err, ledger.ErrValidation)
			assert.Equal(t, ledger.StatusPending, d.Status, "failed schedule must not change the record")
		})
	}
}

func TestSchedule_SetsDateAndKeepsRemaining(t *testing.T) {
	d := newPending(t, 40)
	future := futureTime()

	err := ledger.Transition(&d, ledger.StatusScheduled, ledger.TransitionOptions{ScheduledFor: &future, Now: testNow()})

	require.NoError(t, err)
	assert.Equal(t, ledger.StatusScheduled, d.Status)
	require.NotNil(t, d.ScheduledFor)
	assert.Equal(t, future, *d.ScheduledFor)
	assert.Equal(t, 40, d.MinutesRemaining, "scheduling does not touch the debt")
}

// =============================================================================
// DERIVED HELPERS
// =============================================================================

func TestMinutesServed_IsAssignedMinusRemaining(t *testing.T) {
	d := newPending(t, 60)
	assert.Equal(t, 0, d.MinutesServed())

	d.MinutesRemaining = 15
	assert.Equal(t, 45, d.MinutesServed())
}

func TestOpen_OnlyPendingAndScheduled(t *testing.T) {
	d := newPending(t, 10)
	assert.True(t, d.Open())

	future := futureTime()
	require.NoError(t, ledger.Transition(&d, ledger.StatusScheduled, ledger.TransitionOptions{ScheduledFor: &future, Now: testNow()}))
	assert.True(t, d.Open())

	require.NoError(t, ledger.Transition(&d, ledger.StatusVoided, ledger.TransitionOptions{Now: testNow()}))
	assert.False(t, d.Open())
}
