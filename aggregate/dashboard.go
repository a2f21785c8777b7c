/*
Package aggregate computes tenant-scoped metrics over the minute ledger.

PURPOSE:
  Read-only aggregation for dashboards and student profiles: rolling
  7-/30-day windows, top-N rankings, and paginated recent-activity lists.
  All computation is a pure function of (tenant id, optional scope,
  clock) plus the store - no ambient tenant context, no caches.

TIME WINDOWS:
  "7d" and "30d" mean domain timestamp >= now - 7*24h (resp. 30*24h).
  The window compares the event's own timestamp (occurred_at for
  incidents, created_at for detentions, awarded_at for rewards,
  applied_at for offsets), never storage-insertion time.

TENANT ISOLATION:
  Every store query is tenant-scoped; no input can make the aggregator
  observe another tenant's records. An empty or unknown tenant yields
  zeroed metrics and empty lists, never an error.

SEE ALSO:
  - store.go:   The read-only query interface
  - profile.go: Per-student summaries and timelines
*/
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kofiarhin/detention-desk-sub000/ledger"
	"github.com/kofiarhin/detention-desk-sub000/metrics"
)

const (
	defaultTopLimit = 5
	maxTopLimit     = 20
)

// Service computes tenant- and student-scoped aggregations.
type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates an aggregation service on the given read-only store.
func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// =============================================================================
// DASHBOARD
// =============================================================================

// DashboardOptions tune the widget sizes. Zero values mean defaults.
type DashboardOptions struct {
	TopLimit int
	Recent   Page
}

// Metrics are the tenant-wide dashboard numbers.
type Metrics struct {
	Incidents7d   int
	Incidents30d  int
	Detentions7d  int
	Detentions30d int

	DetentionsByStatus map[ledger.DetentionStatus]int

	MinutesAssigned  int
	MinutesRemaining int

	RewardMinutes7d  int
	RewardMinutes30d int
	OffsetMinutes7d  int
	OffsetMinutes30d int

	// AvgMinutesPerDetention is assigned minutes / detention count,
	// all-time, exact.
	AvgMinutesPerDetention decimal.Decimal

	// RewardCoverage30d is offset minutes applied / reward minutes awarded
	// over the 30-day window; zero when nothing was awarded.
	RewardCoverage30d decimal.Decimal
}

// Dashboard is the full tenant dashboard payload.
type Dashboard struct {
	Metrics            Metrics
	TopPendingStudents []StudentMinutes
	TopCategories      []CategoryCount
	RecentIncidents    Paginated[ledger.Incident]
	RecentDetentions   Paginated[ledger.Detention]
	RecentRewards      Paginated[ledger.Reward]
}

// TenantDashboard computes the dashboard for one tenant.
func (s *Service) TenantDashboard(ctx context.Context, tenantID ledger.TenantID, opts DashboardOptions) (*Dashboard, error) {
	started := s.now()
	defer func() { metrics.DashboardQueries.Observe(time.Since(started).Seconds()) }()

	now := s.now()
	since7 := now.Add(-7 * 24 * time.Hour)
	since30 := now.Add(-30 * 24 * time.Hour)

	topLimit := opts.TopLimit
	if topLimit < 1 {
		topLimit = defaultTopLimit
	}
	if topLimit > maxTopLimit {
		topLimit = maxTopLimit
	}
	page := opts.Recent.Normalize()

	m, err := s.tenantMetrics(ctx, tenantID, since7, since30)
	if err != nil {
		return nil, err
	}

	topStudents, err := s.store.TopPendingStudents(ctx, tenantID, topLimit)
	if err != nil {
		return nil, fmt.Errorf("top pending students: %w", err)
	}
	topCategories, err := s.store.TopCategories(ctx, tenantID, topLimit)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}

	incidents, incidentTotal, err := s.store.RecentIncidents(ctx, tenantID, nil, page.Offset(), page.Limit)
	if err != nil {
		return nil, fmt.Errorf("recent incidents: %w", err)
	}
	detentions, detentionTotal, err := s.store.RecentDetentions(ctx, tenantID, nil, page.Offset(), page.Limit)
	if err != nil {
		return nil, fmt.Errorf("recent detentions: %w", err)
	}
	rewards, rewardTotal, err := s.store.RecentRewards(ctx, tenantID, nil, page.Offset(), page.Limit)
	if err != nil {
		return nil, fmt.Errorf("recent rewards: %w", err)
	}

	if topStudents == nil {
		topStudents = []StudentMinutes{}
	}
	if topCategories == nil {
		topCategories = []CategoryCount{}
	}

	return &Dashboard{
		Metrics:            *m,
		TopPendingStudents: topStudents,
		TopCategories:      topCategories,
		RecentIncidents:    newPaginated(incidents, page, incidentTotal),
		RecentDetentions:   newPaginated(detentions, page, detentionTotal),
		RecentRewards:      newPaginated(rewards, page, rewardTotal),
	}, nil
}

func (s *Service) tenantMetrics(ctx context.Context, tenantID ledger.TenantID, since7, since30 time.Time) (*Metrics, error) {
	var m Metrics
	var err error

	if m.Incidents7d, err = s.store.CountIncidents(ctx, tenantID, nil, &since7); err != nil {
		return nil, fmt.Errorf("incidents 7d: %w", err)
	}
	if m.Incidents30d, err = s.store.CountIncidents(ctx, tenantID, nil, &since30); err != nil {
		return nil, fmt.Errorf("incidents 30d: %w", err)
	}
	if m.Detentions7d, err = s.store.CountDetentions(ctx, tenantID, nil, &since7); err != nil {
		return nil, fmt.Errorf("detentions 7d: %w", err)
	}
	if m.Detentions30d, err = s.store.CountDetentions(ctx, tenantID, nil, &since30); err != nil {
		return nil, fmt.Errorf("detentions 30d: %w", err)
	}
	if m.DetentionsByStatus, err = s.store.DetentionStatusCounts(ctx, tenantID, nil); err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	if m.MinutesAssigned, m.MinutesRemaining, err = s.store.MinuteTotals(ctx, tenantID, nil); err != nil {
		return nil, fmt.Errorf("minute totals: %w", err)
	}
	if m.RewardMinutes7d, err = s.store.RewardMinutes(ctx, tenantID, nil, &since7); err != nil {
		return nil, fmt.Errorf("reward minutes 7d: %w", err)
	}
	if m.RewardMinutes30d, err = s.store.RewardMinutes(ctx, tenantID, nil, &since30); err != nil {
		return nil, fmt.Errorf("reward minutes 30d: %w", err)
	}
	if m.OffsetMinutes7d, err = s.store.OffsetMinutes(ctx, tenantID, nil, &since7); err != nil {
		return nil, fmt.Errorf("offset minutes 7d: %w", err)
	}
	if m.OffsetMinutes30d, err = s.store.OffsetMinutes(ctx, tenantID, nil, &since30); err != nil {
		return nil, fmt.Errorf("offset minutes 30d: %w", err)
	}

	totalDetentions := 0
	for _, n := range m.DetentionsByStatus {
		totalDetentions += n
	}
	m.AvgMinutesPerDetention = ratio(m.MinutesAssigned, totalDetentions)
	m.RewardCoverage30d = ratio(m.OffsetMinutes30d, m.RewardMinutes30d)
	return &m, nil
}

// ratio is an exact decimal a/b, zero when b is zero.
func ratio(a, b int) decimal.Decimal {
	if b == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(a)).DivRound(decimal.NewFromInt(int64(b)), 4)
}
