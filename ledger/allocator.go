/*
allocator.go - FIFO reward-to-detention offset allocation

PURPOSE:
  Converts a reward's minutes into debt relief, oldest debt first. Awarding
  a reward persists the reward, decrements the student's outstanding
  detentions in creation order, auto-serves any detention that reaches
  zero, and appends one immutable offset per touched detention.

ALGORITHM:
  1. Load the student's detentions with status = pending and remaining > 0,
     ordered created_at ASC, id ASC (deterministic FIFO).
  2. For each: applied = min(budget, remaining). Decrement, auto-serve at
     zero (stamped with the reward's awarded_at/awarded_by), append one
     offset, shrink the budget.
  3. Stop at budget 0 or end of list. Unused budget is not recorded
     anywhere: rewards do not bank minutes.

ELIGIBILITY:
  Only pending detentions receive offsets. A scheduled detention is out of
  the running even if its date is still in the future - that is the
  product's offset policy, not an oversight.

CONCURRENCY:
  Every decrement is a conditional write: persist only if the row still
  has the remaining value we read and is still pending. A lost race
  triggers a re-read and a recomputed (possibly smaller) application for
  that one detention, bounded by maxRetries; remaining minutes can never
  go negative. The whole award runs inside RunAtomic so the reward, its
  offsets, and the touched detentions commit together - or, on a store
  without transaction support, in a documented best-effort sequence.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kofiarhin/detention-desk-sub000/metrics"
)

// maxAllocationRetries bounds per-detention conditional-update retries.
const maxAllocationRetries = 3

// Allocator distributes reward minutes across outstanding detentions.
type Allocator struct {
	store AtomicStore
	log   *zap.Logger
}

// NewAllocator creates an allocator on the given store. If the store
// cannot provide multi-record transactions the narrower consistency
// guarantee is logged once, here, rather than discovered per call.
func NewAllocator(store AtomicStore, log *zap.Logger) *Allocator {
	if log == nil {
		log = zap.NewNop()
	}
	if !store.AtomicSupported() {
		log.Warn("store has no transaction support; reward allocation degrades to best-effort sequential writes")
	}
	return &Allocator{store: store, log: log}
}

// AllocationResult reports what one award did.
type AllocationResult struct {
	Reward         Reward
	Offsets        []DetentionOffset
	MinutesApplied int
}

// AwardInput carries the inputs for one reward award.
type AwardInput struct {
	TenantID   TenantID
	StudentID  StudentID
	CategoryID CategoryID
	Minutes    int
	Actor      UserID

	// AwardedAt defaults to now. It is both the reward's domain timestamp
	// and the serve stamp for any detention the award closes out.
	AwardedAt time.Time
}

// Award persists the reward and applies its minutes oldest-debt-first.
// A reward with no eligible detentions (or zero minutes) is persisted
// with zero offsets; that is a valid outcome, not an error.
func (a *Allocator) Award(ctx context.Context, in AwardInput) (*AllocationResult, error) {
	if in.Minutes < 0 {
		return nil, &ValidationError{Field: "minutes", Message: "must not be negative"}
	}
	if in.AwardedAt.IsZero() {
		in.AwardedAt = time.Now().UTC()
	}

	reward := Reward{
		ID:             RewardID(NewID()),
		TenantID:       in.TenantID,
		StudentID:      in.StudentID,
		CategoryID:     in.CategoryID,
		AwardedBy:      in.Actor,
		MinutesAwarded: in.Minutes,
		AwardedAt:      in.AwardedAt,
		CreatedAt:      time.Now().UTC(),
	}

	result := &AllocationResult{Reward: reward}
	err := a.store.RunAtomic(ctx, func(s Store) error {
		if err := s.InsertReward(ctx, reward); err != nil {
			return fmt.Errorf("persist reward: %w", err)
		}
		offsets, err := a.allocate(ctx, s, reward)
		if err != nil {
			return err
		}
		result.Offsets = offsets
		for _, o := range offsets {
			result.MinutesApplied += o.MinutesApplied
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RewardsAwarded.Inc()
	metrics.OffsetMinutesApplied.Add(float64(result.MinutesApplied))
	a.log.Info("reward allocated",
		zap.String("tenant", string(in.TenantID)),
		zap.String("student", string(in.StudentID)),
		zap.Int("minutes_awarded", in.Minutes),
		zap.Int("minutes_applied", result.MinutesApplied),
		zap.Int("offsets", len(result.Offsets)),
	)
	return result, nil
}

// allocate walks the FIFO list and spends the reward budget.
func (a *Allocator) allocate(ctx context.Context, s Store, reward Reward) ([]DetentionOffset, error) {
	budget := reward.MinutesAwarded
	if budget == 0 {
		return nil, nil
	}

	open, err := s.ListOpenDetentions(ctx, reward.TenantID, reward.StudentID)
	if err != nil {
		return nil, fmt.Errorf("load open detentions: %w", err)
	}

	var offsets []DetentionOffset
	for i := range open {
		if budget == 0 {
			break
		}
		applied, err := a.applyToDetention(ctx, s, reward, open[i], budget)
		if err != nil {
			return nil, err
		}
		if applied == 0 {
			// Raced away entirely (served or voided by another path).
			continue
		}
		offsets = append(offsets, DetentionOffset{
			ID:             OffsetID(NewID()),
			TenantID:       reward.TenantID,
			RewardID:       reward.ID,
			DetentionID:    open[i].ID,
			StudentID:      reward.StudentID,
			MinutesApplied: applied,
			AppliedAt:      reward.AwardedAt,
			AppliedBy:      reward.AwardedBy,
		})
		budget -= applied
	}

	for _, o := range offsets {
		if err := s.InsertOffset(ctx, o); err != nil {
			return nil, fmt.Errorf("persist offset: %w", err)
		}
	}
	return offsets, nil
}

// applyToDetention decrements one detention with an optimistic check,
// re-reading and retrying on conflict. Returns the minutes actually
// applied, which may be less than requested (or zero) if the row moved.
func (a *Allocator) applyToDetention(ctx context.Context, s Store, reward Reward, d Detention, budget int) (int, error) {
	for attempt := 0; attempt <= maxAllocationRetries; attempt++ {
		if attempt > 0 {
			metrics.AllocationRetries.Inc()
			fresh, err := s.GetDetention(ctx, reward.TenantID, d.ID)
			if err != nil {
				return 0, fmt.Errorf("re-read detention %s: %w", d.ID, err)
			}
			if fresh == nil || fresh.Status != StatusPending || fresh.MinutesRemaining == 0 {
				return 0, nil
			}
			d = *fresh
		}

		applied := budget
		if d.MinutesRemaining < applied {
			applied = d.MinutesRemaining
		}

		expected := d.MinutesRemaining
		d.MinutesRemaining -= applied
		if d.MinutesRemaining == 0 {
			// Allocator-internal auto-serve: pending -> served is always
			// legal, stamped with the reward as the serve metadata.
			applyServe(&d, reward.AwardedAt, reward.AwardedBy)
		}

		ok, err := s.UpdateDetentionIf(ctx, d, expected, []DetentionStatus{StatusPending})
		if err != nil {
			return 0, fmt.Errorf("update detention %s: %w", d.ID, err)
		}
		if ok {
			return applied, nil
		}

		a.log.Debug("allocation conflict, retrying",
			zap.String("detention", string(d.ID)),
			zap.Int("attempt", attempt+1),
		)
	}
	return 0, fmt.Errorf("detention %s: %w", d.ID, ErrConcurrentModification)
}
