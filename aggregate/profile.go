/*
profile.go - Per-student summaries and timelines

PURPOSE:
  The same shape of aggregation as the dashboard, narrowed to one student,
  plus the derived profile flags and the four-list activity timeline.

VISIBILITY:
  A student outside the caller's tenant, or (when teacher-scoped) outside
  the teacher's assignment, yields nil - deliberately indistinguishable
  from "does not exist", so neither existence nor ownership leaks.
*/
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/kofiarhin/detention-desk-sub000/ledger"
)

// =============================================================================
// PROFILE
// =============================================================================

// StudentSummary mirrors the dashboard metric shape for one student.
type StudentSummary struct {
	Incidents7d   int
	Incidents30d  int
	IncidentsAll  int
	DetentionsAll int

	DetentionsByStatus map[ledger.DetentionStatus]int

	MinutesAssigned  int
	MinutesRemaining int

	RewardMinutes7d  int
	RewardMinutes30d int
	RewardMinutesAll int
	OffsetMinutesAll int
}

// ProfileFlags are the derived booleans the profile view renders.
type ProfileFlags struct {
	// HasPendingDetentions: any pending or scheduled detention exists.
	HasPendingDetentions bool

	// HasOverdueScheduledDetentions: any scheduled detention whose
	// scheduled_for is in the past with minutes still remaining.
	HasOverdueScheduledDetentions bool
}

// StudentProfile is the per-student aggregation payload.
type StudentProfile struct {
	StudentID ledger.StudentID
	Summary   StudentSummary
	Flags     ProfileFlags
}

// StudentProfile computes one student's summary, or nil when the student
// is not visible in the caller's scope.
func (s *Service) StudentProfile(ctx context.Context, tenantID ledger.TenantID, studentID ledger.StudentID, scopeTeacher *ledger.TeacherID) (*StudentProfile, error) {
	visible, err := s.visible(ctx, tenantID, studentID, scopeTeacher)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, nil
	}

	now := s.now()
	since7 := now.Add(-7 * 24 * time.Hour)
	since30 := now.Add(-30 * 24 * time.Hour)
	student := &studentID

	var sum StudentSummary
	if sum.Incidents7d, err = s.store.CountIncidents(ctx, tenantID, student, &since7); err != nil {
		return nil, fmt.Errorf("incidents 7d: %w", err)
	}
	if sum.Incidents30d, err = s.store.CountIncidents(ctx, tenantID, student, &since30); err != nil {
		return nil, fmt.Errorf("incidents 30d: %w", err)
	}
	if sum.IncidentsAll, err = s.store.CountIncidents(ctx, tenantID, student, nil); err != nil {
		return nil, fmt.Errorf("incidents all: %w", err)
	}
	if sum.DetentionsAll, err = s.store.CountDetentions(ctx, tenantID, student, nil); err != nil {
		return nil, fmt.Errorf("detentions all: %w", err)
	}
	if sum.DetentionsByStatus, err = s.store.DetentionStatusCounts(ctx, tenantID, student); err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	if sum.MinutesAssigned, sum.MinutesRemaining, err = s.store.MinuteTotals(ctx, tenantID, student); err != nil {
		return nil, fmt.Errorf("minute totals: %w", err)
	}
	if sum.RewardMinutes7d, err = s.store.RewardMinutes(ctx, tenantID, student, &since7); err != nil {
		return nil, fmt.Errorf("reward minutes 7d: %w", err)
	}
	if sum.RewardMinutes30d, err = s.store.RewardMinutes(ctx, tenantID, student, &since30); err != nil {
		return nil, fmt.Errorf("reward minutes 30d: %w", err)
	}
	if sum.RewardMinutesAll, err = s.store.RewardMinutes(ctx, tenantID, student, nil); err != nil {
		return nil, fmt.Errorf("reward minutes all: %w", err)
	}
	if sum.OffsetMinutesAll, err = s.store.OffsetMinutes(ctx, tenantID, student, nil); err != nil {
		return nil, fmt.Errorf("offset minutes all: %w", err)
	}

	open := sum.DetentionsByStatus[ledger.StatusPending] + sum.DetentionsByStatus[ledger.StatusScheduled]
	overdue, err := s.store.CountOverdueScheduled(ctx, tenantID, studentID, now)
	if err != nil {
		return nil, fmt.Errorf("overdue scheduled: %w", err)
	}

	return &StudentProfile{
		StudentID: studentID,
		Summary:   sum,
		Flags: ProfileFlags{
			HasPendingDetentions:          open > 0,
			HasOverdueScheduledDetentions: overdue > 0,
		},
	}, nil
}

// =============================================================================
// TIMELINE
// =============================================================================

// TimelineOptions paginate each list independently.
type TimelineOptions struct {
	Incidents  Page
	Detentions Page
	Rewards    Page
	Offsets    Page
}

// StudentTimeline is four independently paginated newest-first lists.
type StudentTimeline struct {
	Incidents  Paginated[ledger.Incident]
	Detentions Paginated[ledger.Detention]
	Rewards    Paginated[ledger.Reward]
	Offsets    Paginated[ledger.DetentionOffset]
}

// StudentTimeline returns one student's activity, or nil when the student
// is not visible in the caller's scope.
func (s *Service) StudentTimeline(ctx context.Context, tenantID ledger.TenantID, studentID ledger.StudentID, scopeTeacher *ledger.TeacherID, opts TimelineOptions) (*StudentTimeline, error) {
	visible, err := s.visible(ctx, tenantID, studentID, scopeTeacher)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, nil
	}

	student := &studentID
	incPage := opts.Incidents.Normalize()
	detPage := opts.Detentions.Normalize()
	rewPage := opts.Rewards.Normalize()
	offPage := opts.Offsets.Normalize()

	incidents, incidentTotal, err := s.store.RecentIncidents(ctx, tenantID, student, incPage.Offset(), incPage.Limit)
	if err != nil {
		return nil, fmt.Errorf("timeline incidents: %w", err)
	}
	detentions, detentionTotal, err := s.store.RecentDetentions(ctx, tenantID, student, detPage.Offset(), detPage.Limit)
	if err != nil {
		return nil, fmt.Errorf("timeline detentions: %w", err)
	}
	rewards, rewardTotal, err := s.store.RecentRewards(ctx, tenantID, student, rewPage.Offset(), rewPage.Limit)
	if err != nil {
		return nil, fmt.Errorf("timeline rewards: %w", err)
	}
	offsets, offsetTotal, err := s.store.RecentOffsets(ctx, tenantID, student, offPage.Offset(), offPage.Limit)
	if err != nil {
		return nil, fmt.Errorf("timeline offsets: %w", err)
	}

	return &StudentTimeline{
		Incidents:  newPaginated(incidents, incPage, incidentTotal),
		Detentions: newPaginated(detentions, detPage, detentionTotal),
		Rewards:    newPaginated(rewards, rewPage, rewardTotal),
		Offsets:    newPaginated(offsets, offPage, offsetTotal),
	}, nil
}

// visible decides whether the student exists in the tenant and, when
// scoped, belongs to the teacher. Both failures look identical to callers.
func (s *Service) visible(ctx context.Context, tenantID ledger.TenantID, studentID ledger.StudentID, scopeTeacher *ledger.TeacherID) (bool, error) {
	inTenant, err := s.store.StudentInTenant(ctx, tenantID, studentID)
	if err != nil {
		return false, fmt.Errorf("membership check: %w", err)
	}
	if !inTenant {
		return false, nil
	}
	if scopeTeacher == nil {
		return true, nil
	}
	assigned, err := s.store.StudentAssignedTo(ctx, tenantID, *scopeTeacher, studentID)
	if err != nil {
		return false, fmt.Errorf("assignment check: %w", err)
	}
	return assigned, nil
}
