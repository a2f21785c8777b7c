/*
dto.go - Request and response data structures

PURPOSE:
  Defines the JSON shapes the API accepts and returns. DTOs are separate
  from domain types so the wire format can stay stable while internals
  change.

CONVENTIONS:
  - snake_case JSON field names
  - Timestamps as RFC3339 strings, date-only fields as YYYY-MM-DD
  - Nullable timestamps are pointers and omitted when unset
*/
package api

import (
	"time"

	"github.com/kofiarhin/detention-desk-sub000/aggregate"
	"github.com/kofiarhin/detention-desk-sub000/ledger"
)

// =============================================================================
// REQUESTS
// =============================================================================

// CreateStudentRequest creates a student record in the tenant.
type CreateStudentRequest struct {
	Name string `json:"name"`
}

// CreateIncidentRequest records a disciplinary incident. When
// detention_minutes > 0 a pending detention is opened with it.
type CreateIncidentRequest struct {
	StudentID        string `json:"student_id"`
	CategoryID       string `json:"category_id"`
	Description      string `json:"description,omitempty"`
	OccurredAt       string `json:"occurred_at"`
	ReportedBy       string `json:"reported_by,omitempty"`
	DetentionMinutes int    `json:"detention_minutes,omitempty"`
}

// CreateDetentionRequest opens a pending detention directly.
type CreateDetentionRequest struct {
	StudentID  string `json:"student_id"`
	Minutes    int    `json:"minutes"`
	IncidentID string `json:"incident_id,omitempty"`
	CreatedBy  string `json:"created_by,omitempty"`
}

// TransitionRequest moves one detention to a new status.
type TransitionRequest struct {
	Target       string `json:"target"`
	ScheduledFor string `json:"scheduled_for,omitempty"`
	Actor        string `json:"actor,omitempty"`
}

// BulkRequest applies one transition to many detentions.
type BulkRequest struct {
	IDs          []string `json:"ids"`
	ScheduledFor string   `json:"scheduled_for,omitempty"`
	Actor        string   `json:"actor,omitempty"`
}

// CreateRewardRequest awards reward minutes to a student.
type CreateRewardRequest struct {
	StudentID  string `json:"student_id"`
	CategoryID string `json:"category_id,omitempty"`
	Minutes    int    `json:"minutes"`
	AwardedBy  string `json:"awarded_by,omitempty"`
	AwardedAt  string `json:"awarded_at,omitempty"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// ErrorResponse is the JSON body for every non-2xx status.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StudentDTO is the wire form of a student.
type StudentDTO struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// DetentionDTO is the wire form of a detention.
type DetentionDTO struct {
	ID               string  `json:"id"`
	TenantID         string  `json:"tenant_id"`
	StudentID        string  `json:"student_id"`
	IncidentID       string  `json:"incident_id,omitempty"`
	CreatedBy        string  `json:"created_by,omitempty"`
	MinutesAssigned  int     `json:"minutes_assigned"`
	MinutesRemaining int     `json:"minutes_remaining"`
	Status           string  `json:"status"`
	ScheduledFor     *string `json:"scheduled_for,omitempty"`
	ServedAt         *string `json:"served_at,omitempty"`
	ServedBy         string  `json:"served_by,omitempty"`
	VoidedAt         *string `json:"voided_at,omitempty"`
	VoidedBy         string  `json:"voided_by,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// IncidentDTO is the wire form of an incident.
type IncidentDTO struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	StudentID   string `json:"student_id"`
	CategoryID  string `json:"category_id"`
	ReportedBy  string `json:"reported_by,omitempty"`
	Description string `json:"description,omitempty"`
	OccurredAt  string `json:"occurred_at"`
	CreatedAt   string `json:"created_at"`
}

// IncidentResultDTO pairs the incident with the detention it opened.
type IncidentResultDTO struct {
	Incident  IncidentDTO   `json:"incident"`
	Detention *DetentionDTO `json:"detention,omitempty"`
}

// RewardDTO is the wire form of a reward.
type RewardDTO struct {
	ID             string `json:"id"`
	TenantID       string `json:"tenant_id"`
	StudentID      string `json:"student_id"`
	CategoryID     string `json:"category_id,omitempty"`
	AwardedBy      string `json:"awarded_by,omitempty"`
	MinutesAwarded int    `json:"minutes_awarded"`
	AwardedAt      string `json:"awarded_at"`
	CreatedAt      string `json:"created_at"`
}

// OffsetDTO is the wire form of one reward-to-detention application.
type OffsetDTO struct {
	ID             string `json:"id"`
	TenantID       string `json:"tenant_id"`
	RewardID       string `json:"reward_id"`
	DetentionID    string `json:"detention_id"`
	StudentID      string `json:"student_id"`
	MinutesApplied int    `json:"minutes_applied"`
	AppliedAt      string `json:"applied_at"`
	AppliedBy      string `json:"applied_by,omitempty"`
}

// AwardResultDTO reports a reward plus everything it paid down.
type AwardResultDTO struct {
	Reward         RewardDTO   `json:"reward"`
	Offsets        []OffsetDTO `json:"offsets"`
	MinutesApplied int         `json:"minutes_applied"`
}

// BulkResultDTO summarizes a bulk transition.
type BulkResultDTO struct {
	TotalRequested int `json:"total_requested"`
	Updated        int `json:"updated"`
	Skipped        int `json:"skipped"`
}

// PageDTO is one page of items plus pagination bookkeeping.
type PageDTO[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// DashboardDTO is the full dashboard payload.
type DashboardDTO struct {
	Metrics            DashboardMetricsDTO   `json:"metrics"`
	TopPendingStudents []StudentMinutesDTO   `json:"top_pending_students"`
	TopCategories      []CategoryCountDTO    `json:"top_categories"`
	RecentIncidents    PageDTO[IncidentDTO]  `json:"recent_incidents"`
	RecentDetentions   PageDTO[DetentionDTO] `json:"recent_detentions"`
	RecentRewards      PageDTO[RewardDTO]    `json:"recent_rewards"`
}

// DashboardMetricsDTO carries the tenant-wide numbers. Window fields
// count domain timestamps inside the trailing 7 or 30 days.
type DashboardMetricsDTO struct {
	Incidents7d   int `json:"incidents_7d"`
	Incidents30d  int `json:"incidents_30d"`
	Detentions7d  int `json:"detentions_7d"`
	Detentions30d int `json:"detentions_30d"`

	DetentionsByStatus map[string]int `json:"detentions_by_status"`

	MinutesAssigned  int `json:"minutes_assigned"`
	MinutesRemaining int `json:"minutes_remaining"`

	RewardMinutes7d  int `json:"reward_minutes_7d"`
	RewardMinutes30d int `json:"reward_minutes_30d"`
	OffsetMinutes7d  int `json:"offset_minutes_7d"`
	OffsetMinutes30d int `json:"offset_minutes_30d"`

	AvgMinutesPerDetention string `json:"avg_minutes_per_detention"`
	RewardCoverage30d      string `json:"reward_coverage_30d"`
}

// StudentMinutesDTO is one row of the pending-minutes ranking.
type StudentMinutesDTO struct {
	StudentID      string `json:"student_id"`
	PendingMinutes int    `json:"pending_minutes"`
}

// CategoryCountDTO is one row of the category ranking.
type CategoryCountDTO struct {
	CategoryID string `json:"category_id"`
	Count      int    `json:"count"`
}

// ProfileDTO is one student's summary and flags.
type ProfileDTO struct {
	StudentID string            `json:"student_id"`
	Summary   ProfileSummaryDTO `json:"summary"`
	Flags     ProfileFlagsDTO   `json:"flags"`
}

type ProfileSummaryDTO struct {
	Incidents7d        int            `json:"incidents_7d"`
	Incidents30d       int            `json:"incidents_30d"`
	IncidentsAll       int            `json:"incidents_all"`
	DetentionsAll      int            `json:"detentions_all"`
	DetentionsByStatus map[string]int `json:"detentions_by_status"`
	MinutesAssigned    int            `json:"minutes_assigned"`
	MinutesRemaining   int            `json:"minutes_remaining"`
	RewardMinutes7d    int            `json:"reward_minutes_7d"`
	RewardMinutes30d   int            `json:"reward_minutes_30d"`
	RewardMinutesAll   int            `json:"reward_minutes_all"`
	OffsetMinutesAll   int            `json:"offset_minutes_all"`
}

type ProfileFlagsDTO struct {
	HasPendingDetentions          bool `json:"has_pending_detentions"`
	HasOverdueScheduledDetentions bool `json:"has_overdue_scheduled_detentions"`
}

// TimelineDTO is four independently paginated newest-first lists.
type TimelineDTO struct {
	Incidents  PageDTO[IncidentDTO]  `json:"incidents"`
	Detentions PageDTO[DetentionDTO] `json:"detentions"`
	Rewards    PageDTO[RewardDTO]    `json:"rewards"`
	Offsets    PageDTO[OffsetDTO]    `json:"offsets"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toStudentDTO(s ledger.Student) StudentDTO {
	return StudentDTO{
		ID:        string(s.ID),
		TenantID:  string(s.TenantID),
		Name:      s.Name,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

func toDetentionDTO(d ledger.Detention) DetentionDTO {
	return DetentionDTO{
		ID:               string(d.ID),
		TenantID:         string(d.TenantID),
		StudentID:        string(d.StudentID),
		IncidentID:       string(d.IncidentID),
		CreatedBy:        string(d.CreatedBy),
		MinutesAssigned:  d.MinutesAssigned,
		MinutesRemaining: d.MinutesRemaining,
		Status:           string(d.Status),
		ScheduledFor:     timePtr(d.ScheduledFor),
		ServedAt:         timePtr(d.ServedAt),
		ServedBy:         string(d.ServedBy),
		VoidedAt:         timePtr(d.VoidedAt),
		VoidedBy:         string(d.VoidedBy),
		CreatedAt:        d.CreatedAt.Format(time.RFC3339),
	}
}

func toIncidentDTO(in ledger.Incident) IncidentDTO {
	return IncidentDTO{
		ID:          string(in.ID),
		TenantID:    string(in.TenantID),
		StudentID:   string(in.StudentID),
		CategoryID:  string(in.CategoryID),
		ReportedBy:  string(in.ReportedBy),
		Description: in.Description,
		OccurredAt:  in.OccurredAt.Format(time.RFC3339),
		CreatedAt:   in.CreatedAt.Format(time.RFC3339),
	}
}

func toRewardDTO(r ledger.Reward) RewardDTO {
	return RewardDTO{
		ID:             string(r.ID),
		TenantID:       string(r.TenantID),
		StudentID:      string(r.StudentID),
		CategoryID:     string(r.CategoryID),
		AwardedBy:      string(r.AwardedBy),
		MinutesAwarded: r.MinutesAwarded,
		AwardedAt:      r.AwardedAt.Format(time.RFC3339),
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
}

func toOffsetDTO(o ledger.DetentionOffset) OffsetDTO {
	return OffsetDTO{
		ID:             string(o.ID),
		TenantID:       string(o.TenantID),
		RewardID:       string(o.RewardID),
		DetentionID:    string(o.DetentionID),
		StudentID:      string(o.StudentID),
		MinutesApplied: o.MinutesApplied,
		AppliedAt:      o.AppliedAt.Format(time.RFC3339),
		AppliedBy:      string(o.AppliedBy),
	}
}

func toPageDTO[T, U any](p aggregate.Paginated[T], conv func(T) U) PageDTO[U] {
	items := make([]U, len(p.Items))
	for i, it := range p.Items {
		items[i] = conv(it)
	}
	return PageDTO[U]{
		Items: items,
		Page:  p.Page,
		Limit: p.Limit,
		Total: p.Total,
		Pages: p.Pages,
	}
}

func toDashboardDTO(d *aggregate.Dashboard) DashboardDTO {
	top := make([]StudentMinutesDTO, len(d.TopPendingStudents))
	for i, row := range d.TopPendingStudents {
		top[i] = StudentMinutesDTO{
			StudentID:      string(row.StudentID),
			PendingMinutes: row.PendingMinutes,
		}
	}
	cats := make([]CategoryCountDTO, len(d.TopCategories))
	for i, row := range d.TopCategories {
		cats[i] = CategoryCountDTO{
			CategoryID: string(row.CategoryID),
			Count:      row.Count,
		}
	}
	return DashboardDTO{
		Metrics: DashboardMetricsDTO{
			Incidents7d:            d.Metrics.Incidents7d,
			Incidents30d:           d.Metrics.Incidents30d,
			Detentions7d:           d.Metrics.Detentions7d,
			Detentions30d:          d.Metrics.Detentions30d,
			DetentionsByStatus:     statusCounts(d.Metrics.DetentionsByStatus),
			MinutesAssigned:        d.Metrics.MinutesAssigned,
			MinutesRemaining:       d.Metrics.MinutesRemaining,
			RewardMinutes7d:        d.Metrics.RewardMinutes7d,
			RewardMinutes30d:       d.Metrics.RewardMinutes30d,
			OffsetMinutes7d:        d.Metrics.OffsetMinutes7d,
			OffsetMinutes30d:       d.Metrics.OffsetMinutes30d,
			AvgMinutesPerDetention: d.Metrics.AvgMinutesPerDetention.String(),
			RewardCoverage30d:      d.Metrics.RewardCoverage30d.String(),
		},
		TopPendingStudents: top,
		TopCategories:      cats,
		RecentIncidents:    toPageDTO(d.RecentIncidents, toIncidentDTO),
		RecentDetentions:   toPageDTO(d.RecentDetentions, toDetentionDTO),
		RecentRewards:      toPageDTO(d.RecentRewards, toRewardDTO),
	}
}

func toProfileDTO(p *aggregate.StudentProfile) ProfileDTO {
	return ProfileDTO{
		StudentID: string(p.StudentID),
		Summary: ProfileSummaryDTO{
			Incidents7d:        p.Summary.Incidents7d,
			Incidents30d:       p.Summary.Incidents30d,
			IncidentsAll:       p.Summary.IncidentsAll,
			DetentionsAll:      p.Summary.DetentionsAll,
			DetentionsByStatus: statusCounts(p.Summary.DetentionsByStatus),
			MinutesAssigned:    p.Summary.MinutesAssigned,
			MinutesRemaining:   p.Summary.MinutesRemaining,
			RewardMinutes7d:    p.Summary.RewardMinutes7d,
			RewardMinutes30d:   p.Summary.RewardMinutes30d,
			RewardMinutesAll:   p.Summary.RewardMinutesAll,
			OffsetMinutesAll:   p.Summary.OffsetMinutesAll,
		},
		Flags: ProfileFlagsDTO{
			HasPendingDetentions:          p.Flags.HasPendingDetentions,
			HasOverdueScheduledDetentions: p.Flags.HasOverdueScheduledDetentions,
		},
	}
}

func toTimelineDTO(t *aggregate.StudentTimeline) TimelineDTO {
	return TimelineDTO{
		Incidents:  toPageDTO(t.Incidents, toIncidentDTO),
		Detentions: toPageDTO(t.Detentions, toDetentionDTO),
		Rewards:    toPageDTO(t.Rewards, toRewardDTO),
		Offsets:    toPageDTO(t.Offsets, toOffsetDTO),
	}
}

func statusCounts(m map[ledger.DetentionStatus]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
