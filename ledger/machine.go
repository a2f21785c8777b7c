/*
machine.go - Detention status state machine

PURPOSE:
  Validates and applies status transitions for a single detention record.
  This is the only place that knows which transitions are legal and what
  side effects each one carries.

TRANSITION TABLE:
  pending   -> scheduled, served, voided
  scheduled -> served, voided
  served    -> (terminal)
  voided    -> (terminal)

SIDE EFFECTS:
  serve:    remaining forced to 0, served_at/by stamped, schedule and void
            metadata cleared. An administrator serving a detention manually
            closes out any remaining debt.
  void:     voided_at/by stamped, remaining left untouched. Voided minutes
            stay visible as "what was written off" - the asymmetry with
            serve is intentional, do not symmetrize it.
  schedule: requires a strictly-future timestamp; scheduled_for set, serve
            and void metadata cleared.

No store access here: everything operates on a single Detention value.
The allocator reuses the serve effect directly (applyServe) for its
auto-serve, which is always legal because pending -> served is allowed.
*/
package ledger

import (
	"time"
)

// transitions maps each status to the set of statuses it may move to.
var transitions = map[DetentionStatus][]DetentionStatus{
	StatusPending:   {StatusScheduled, StatusServed, StatusVoided},
	StatusScheduled: {StatusServed, StatusVoided},
	StatusServed:    {},
	StatusVoided:    {},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to DetentionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionOptions carries the per-transition inputs.
type TransitionOptions struct {
	// ScheduledFor is required for transitions to StatusScheduled and must
	// be strictly in the future relative to Now.
	ScheduledFor *time.Time

	// Actor is stamped into served_by / voided_by.
	Actor UserID

	// Now anchors "the future" and the serve/void timestamps. Zero means
	// time.Now().UTC().
	Now time.Time
}

func (o TransitionOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().UTC()
	}
	return o.Now
}

// =============================================================================
// CREATE
// =============================================================================

// NewDetention produces a new pending detention with remaining == assigned.
// Fails with a ValidationError if minutes is not positive.
func NewDetention(tenantID TenantID, studentID StudentID, minutes int, incidentID IncidentID, actor UserID, now time.Time) (Detention, error) {
	if minutes <= 0 {
		return Detention{}, &ValidationError{Field: "minutes", Message: "must be greater than zero"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Detention{
		ID:               DetentionID(NewID()),
		TenantID:         tenantID,
		StudentID:        studentID,
		IncidentID:       incidentID,
		CreatedBy:        actor,
		MinutesAssigned:  minutes,
		MinutesRemaining: minutes,
		Status:           StatusPending,
		CreatedAt:        now,
	}, nil
}

// =============================================================================
// TRANSITION
// =============================================================================

// Transition validates target against the transition table and applies the
// status change plus its side effects to d in place.
func Transition(d *Detention, target DetentionStatus, opts TransitionOptions) error {
	if !CanTransition(d.Status, target) {
		return &InvalidTransitionError{From: d.Status, To: target}
	}

	switch target {
	case StatusScheduled:
		if opts.ScheduledFor == nil {
			return &ValidationError{Field: "scheduledFor", Message: "required when scheduling"}
		}
		if !opts.ScheduledFor.After(opts.now()) {
			return &ValidationError{Field: "scheduledFor", Message: "must be in the future"}
		}
		applySchedule(d, *opts.ScheduledFor)
	case StatusServed:
		applyServe(d, opts.now(), opts.Actor)
	case StatusVoided:
		applyVoid(d, opts.now(), opts.Actor)
	default:
		return &ValidationError{Field: "status", Message: "unknown target status"}
	}
	return nil
}

// applyServe closes out the detention: any remaining debt is written down
// to zero. Used by Transition and by the allocator's auto-serve (which
// stamps the reward's awarded_at/awarded_by instead of a request time).
func applyServe(d *Detention, at time.Time, actor UserID) {
	d.Status = StatusServed
	d.MinutesRemaining = 0
	d.ServedAt = &at
	d.ServedBy = actor
	d.ScheduledFor = nil
	d.VoidedAt = nil
	d.VoidedBy = ""
}

// applyVoid abandons the detention. MinutesRemaining is deliberately left
// as-is: voided debt is written off, not zeroed, so the audit trail shows
// how much was outstanding at void time.
func applyVoid(d *Detention, at time.Time, actor UserID) {
	d.Status = StatusVoided
	d.VoidedAt = &at
	d.VoidedBy = actor
}

func applySchedule(d *Detention, at time.Time) {
	d.Status = StatusScheduled
	d.ScheduledFor = &at
	d.ServedAt = nil
	d.ServedBy = ""
	d.VoidedAt = nil
	d.VoidedBy = ""
}
