package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kofiarhin/detention-desk-sub000/ledger"
	memstore "github.com/kofiarhin/detention-desk-sub000/ledger/store"
)

// =============================================================================
// SINGLE-RECORD TRANSITION CONCURRENCY
// =============================================================================

func TestTransitionDetention_StaleWriteLosesToRivalServe(t *testing.T) {
	// GIVEN: A pending detention that a rival serves between our read and
	//        our write
	// WHEN: Transitioning it to voided off the stale read
	// THEN: The conditional write misses and the served row stays served

	mem := memstore.NewMemory()
	ctx := context.Background()
	insertPending(t, mem, "det-1", 20, testNow().Add(-time.Hour))

	store := &contendedStore{Memory: mem, misses: 1}
	store.onMiss = func() {
		d, err := mem.GetDetention(ctx, "tenant-1", "det-1")
		require.NoError(t, err)
		require.NoError(t, ledger.Transition(d, ledger.StatusServed,
			ledger.TransitionOptions{Actor: "rival-teacher", Now: testNow()}))
		require.NoError(t, mem.UpdateDetention(ctx, *d))
	}

	svc := ledger.NewService(store, nil)
	_, err := svc.TransitionDetention(ctx, "tenant-1", "det-1",
		ledger.StatusVoided, ledger.TransitionOptions{}, "teacher-1")

	assert.ErrorIs(t, err, ledger.ErrConcurrentModification)

	d, err := mem.GetDetention(ctx, "tenant-1", "det-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusServed, d.Status, "the rival's serve survives")
	assert.Nil(t, d.VoidedAt)
	assert.Equal(t, 0, d.MinutesRemaining)
}

func TestTransitionDetention_ConditionalWritePersists(t *testing.T) {
	// GIVEN: An uncontended pending detention
	// WHEN: Transitioning it to served
	// THEN: The conditional write lands and the row carries the stamps

	mem := memstore.NewMemory()
	ctx := context.Background()
	insertPending(t, mem, "det-1", 20, testNow().Add(-time.Hour))

	svc := ledger.NewService(mem, nil)
	d, err := svc.TransitionDetention(ctx, "tenant-1", "det-1",
		ledger.StatusServed, ledger.TransitionOptions{}, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusServed, d.Status)

	stored, err := mem.GetDetention(ctx, "tenant-1", "det-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusServed, stored.Status)
	assert.Equal(t, 0, stored.MinutesRemaining)
	assert.Equal(t, ledger.UserID("teacher-1"), stored.ServedBy)
}
