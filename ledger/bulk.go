/*
bulk.go - Bulk detention transitions with skip accounting

PURPOSE:
  Applies one target transition (serve / void / schedule) to a batch of
  detention ids in a single set-based update. Ineligible detentions are
  silently skipped, never errors: the result triple
  {TotalRequested, Updated, Skipped} is the complete contract, and callers
  needing to know WHICH ids were skipped must re-query.

ELIGIBILITY:
  serve, void:  from pending or scheduled
  schedule:     from pending only - an already-scheduled or terminal
                detention is skipped, not re-scheduled

PARAMETER FAILURES:
  A non-future schedule date fails the whole call with a ValidationError
  before any write. That is the one whole-batch failure mode; everything
  per-record is a skip.

IDEMPOTENCE:
  Running the same bulk serve twice updates N rows the first time and 0
  the second: already-served rows no longer match the eligibility filter.
  The same filter is what protects against a concurrent reward allocation
  touching the same detention.
*/
package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kofiarhin/detention-desk-sub000/metrics"
)

// BulkExecutor applies batch transitions.
type BulkExecutor struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewBulkExecutor creates a bulk executor on the given store.
func NewBulkExecutor(store Store, log *zap.Logger) *BulkExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	return &BulkExecutor{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// BulkResult is the exact accounting of one bulk call.
type BulkResult struct {
	TotalRequested int
	Updated        int
	Skipped        int
}

// Serve marks every eligible detention served: remaining forced to zero,
// served_at/by stamped, schedule and void metadata cleared.
func (e *BulkExecutor) Serve(ctx context.Context, tenantID TenantID, ids []DetentionID, actor UserID) (BulkResult, error) {
	return e.run(ctx, "serve", tenantID, ids, BulkUpdate{
		Target:       StatusServed,
		EligibleFrom: OpenStatuses(),
		Actor:        actor,
		At:           e.now(),
	})
}

// Void marks every eligible detention voided. Remaining minutes are left
// untouched: voided debt stays visible as what was written off.
func (e *BulkExecutor) Void(ctx context.Context, tenantID TenantID, ids []DetentionID, actor UserID) (BulkResult, error) {
	return e.run(ctx, "void", tenantID, ids, BulkUpdate{
		Target:       StatusVoided,
		EligibleFrom: OpenStatuses(),
		Actor:        actor,
		At:           e.now(),
	})
}

// Schedule sets one shared future date on every eligible pending detention.
// Fails the entire call, before any write, if the date is not strictly in
// the future.
func (e *BulkExecutor) Schedule(ctx context.Context, tenantID TenantID, ids []DetentionID, scheduledFor time.Time, actor UserID) (BulkResult, error) {
	if !scheduledFor.After(e.now()) {
		return BulkResult{}, &ValidationError{Field: "scheduledFor", Message: "must be in the future"}
	}
	return e.run(ctx, "schedule", tenantID, ids, BulkUpdate{
		Target:       StatusScheduled,
		EligibleFrom: []DetentionStatus{StatusPending},
		ScheduledFor: &scheduledFor,
		Actor:        actor,
		At:           e.now(),
	})
}

func (e *BulkExecutor) run(ctx context.Context, op string, tenantID TenantID, ids []DetentionID, upd BulkUpdate) (BulkResult, error) {
	unique := dedupe(ids)
	result := BulkResult{TotalRequested: len(unique)}
	if len(unique) == 0 {
		return result, nil
	}

	updated, err := e.store.BulkTransition(ctx, tenantID, unique, upd)
	if err != nil {
		return BulkResult{}, err
	}
	result.Updated = updated
	result.Skipped = result.TotalRequested - updated

	metrics.BulkOperations.WithLabelValues(op).Inc()
	metrics.BulkDetentionsUpdated.WithLabelValues(op).Add(float64(updated))
	e.log.Info("bulk transition",
		zap.String("op", op),
		zap.String("tenant", string(tenantID)),
		zap.Int("requested", result.TotalRequested),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// dedupe preserves first-seen order.
func dedupe(ids []DetentionID) []DetentionID {
	seen := make(map[DetentionID]struct{}, len(ids))
	out := make([]DetentionID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
