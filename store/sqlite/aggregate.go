/*
aggregate.go - Tenant-scoped aggregation queries (aggregate.Store)

PURPOSE:
  The read side of the store: windowed counts, minute sums, top-N
  rankings, and newest-first pages. Every query starts from tenant_id;
  optional student and window predicates are appended after it. Window
  bounds compare against the record's own domain timestamp column
  (occurred_at / created_at / awarded_at / applied_at), never an
  insertion time.

ORDERING:
  Recent pages order by domain timestamp DESC, id DESC. Top-N rankings
  order by the measure DESC with the id ASC as a deterministic tie-break.
  RFC3339 UTC strings compare lexicographically, so the TEXT timestamp
  columns sort correctly.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kofiarhin/detention-desk-sub000/aggregate"
	"github.com/kofiarhin/detention-desk-sub000/ledger"
)

// =============================================================================
// COUNTS & SUMS
// =============================================================================

func (s *Store) CountIncidents(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, since *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM incidents WHERE tenant_id = ?`
	args := []any{tenantID}
	query, args = withStudent(query, args, student)
	query, args = withWindow(query, args, "occurred_at", since)
	return s.countQuery(ctx, query, args...)
}

func (s *Store) CountDetentions(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, since *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM detentions WHERE tenant_id = ?`
	args := []any{tenantID}
	query, args = withStudent(query, args, student)
	query, args = withWindow(query, args, "created_at", since)
	return s.countQuery(ctx, query, args...)
}

func (s *Store) DetentionStatusCounts(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID) (map[ledger.DetentionStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT status, COUNT(*) FROM detentions WHERE tenant_id = ?`
	args := []any{tenantID}
	query, args = withStudent(query, args, student)
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count detention statuses: %w", err)
	}
	defer rows.Close()

	counts := map[ledger.DetentionStatus]int{
		ledger.StatusPending:   0,
		ledger.StatusScheduled: 0,
		ledger.StatusServed:    0,
		ledger.StatusVoided:    0,
	}
	for rows.Next() {
		var status ledger.DetentionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *Store) MinuteTotals(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COALESCE(SUM(minutes_assigned), 0), COALESCE(SUM(minutes_remaining), 0)
		FROM detentions WHERE tenant_id = ?`
	args := []any{tenantID}
	query, args = withStudent(query, args, student)

	var assigned, remaining int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&assigned, &remaining); err != nil {
		return 0, 0, fmt.Errorf("failed to sum minutes: %w", err)
	}
	return assigned, remaining, nil
}

func (s *Store) RewardMinutes(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, since *time.Time) (int, error) {
	query := `SELECT COALESCE(SUM(minutes_awarded), 0) FROM rewards WHERE tenant_id = ?`
	args := []any{tenantID}
	query, args = withStudent(query, args, student)
	query, args = withWindow(query, args, "awarded_at", since)
	return s.countQuery(ctx, query, args...)
}

func (s *Store) OffsetMinutes(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, since *time.Time) (int, error) {
	query := `SELECT COALESCE(SUM(minutes_applied), 0) FROM detention_offsets WHERE tenant_id = ?`
	args := []any{tenantID}
	query, args = withStudent(query, args, student)
	query, args = withWindow(query, args, "applied_at", since)
	return s.countQuery(ctx, query, args...)
}

// =============================================================================
// TOP-N RANKINGS
// =============================================================================

func (s *Store) TopPendingStudents(ctx context.Context, tenantID ledger.TenantID, limit int) ([]aggregate.StudentMinutes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT student_id, SUM(minutes_remaining) AS pending
		FROM detentions
		WHERE tenant_id = ? AND status IN (?, ?) AND minutes_remaining > 0
		GROUP BY student_id
		ORDER BY pending DESC, student_id ASC
		LIMIT ?
	`, tenantID, ledger.StatusPending, ledger.StatusScheduled, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank pending minutes: %w", err)
	}
	defer rows.Close()

	var out []aggregate.StudentMinutes
	for rows.Next() {
		var row aggregate.StudentMinutes
		if err := rows.Scan(&row.StudentID, &row.PendingMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan pending minutes: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) TopCategories(ctx context.Context, tenantID ledger.TenantID, limit int) ([]aggregate.CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, COUNT(*) AS n
		FROM incidents
		WHERE tenant_id = ?
		GROUP BY category_id
		ORDER BY n DESC, category_id ASC
		LIMIT ?
	`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank categories: %w", err)
	}
	defer rows.Close()

	var out []aggregate.CategoryCount
	for rows.Next() {
		var row aggregate.CategoryCount
		if err := rows.Scan(&row.CategoryID, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// =============================================================================
// RECENT PAGES
// =============================================================================

func (s *Store) RecentIncidents(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, offset, limit int) ([]ledger.Incident, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total, err := s.countLocked(ctx, `SELECT COUNT(*) FROM incidents WHERE tenant_id = ?`, tenantID, student)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, tenant_id, student_id, category_id, reported_by,
		       description, occurred_at, created_at
		FROM incidents WHERE tenant_id = ?`
	args := []any{tenantID}
	query, args = withStudent(query, args, student)
	query += ` ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	var items []ledger.Incident
	for rows.Next() {
		var (
			in          ledger.Incident
			reportedBy  sql.NullString
			description sql.NullString
			occurredAt  string
			createdAt   string
		)
		if err := rows.Scan(&in.ID, &in.TenantID, &in.StudentID, &in.CategoryID,
			&reportedBy, &description, &occurredAt, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan incident: %w", err)
		}
		in.ReportedBy = ledger.UserID(reportedBy.String)
		in.Description = description.String
		in.OccurredAt = parseTime(occurredAt)
		in.CreatedAt = parseTime(createdAt)
		items = append(items, in)
	}
	return items, total, rows.Err()
}

func (s *Store) RecentDetentions(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, offset, limit int) ([]ledger.Detention, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total, err := s.countLocked(ctx, `SELECT COUNT(*) FROM detentions WHERE tenant_id = ?`, tenantID, student)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + detentionColumns + ` FROM detentions WHERE tenant_id = ?`
	args := []any{tenantID}
	query, args = withStudent(query, args, student)
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list detentions: %w", err)
	}
	defer rows.Close()

	var items []ledger.Detention
	for rows.Next() {
		d, err := scanDetention(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (s *Store) RecentRewards(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, offset, limit int) ([]ledger.Reward, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total, err := s.countLocked(ctx, `SELECT COUNT(*) FROM rewards WHERE tenant_id = ?`, tenantID, student)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, tenant_id, student_id, category_id, awarded_by,
		       minutes_awarded, awarded_at, created_at
		FROM rewards WHERE tenant_id = ?`
	args := []any{tenantID}
	query, args = withStudent(query, args, student)
	query += ` ORDER BY awarded_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var items []ledger.Reward
	for rows.Next() {
		var (
			r         ledger.Reward
			awardedBy sql.NullString
			awardedAt string
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.TenantID, &r.StudentID, &r.CategoryID,
			&awardedBy, &r.MinutesAwarded, &awardedAt, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan reward: %w", err)
		}
		r.AwardedBy = ledger.UserID(awardedBy.String)
		r.AwardedAt = parseTime(awardedAt)
		r.CreatedAt = parseTime(createdAt)
		items = append(items, r)
	}
	return items, total, rows.Err()
}

func (s *Store) RecentOffsets(ctx context.Context, tenantID ledger.TenantID, student *ledger.StudentID, offset, limit int) ([]ledger.DetentionOffset, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total, err := s.countLocked(ctx, `SELECT COUNT(*) FROM detention_offsets WHERE tenant_id = ?`, tenantID, student)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, tenant_id, reward_id, detention_id, student_id,
		       minutes_applied, applied_at, applied_by
		FROM detention_offsets WHERE tenant_id = ?`
	args := []any{tenantID}
	query, args = withStudent(query, args, student)
	query += ` ORDER BY applied_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list offsets: %w", err)
	}
	defer rows.Close()

	var items []ledger.DetentionOffset
	for rows.Next() {
		o, err := scanOffset(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

// =============================================================================
// PROFILE CHECKS
// =============================================================================

func (s *Store) CountOverdueScheduled(ctx context.Context, tenantID ledger.TenantID, student ledger.StudentID, asOf time.Time) (int, error) {
	return s.countQuery(ctx, `
		SELECT COUNT(*) FROM detentions
		WHERE tenant_id = ? AND student_id = ? AND status = ?
		  AND minutes_remaining > 0
		  AND scheduled_for IS NOT NULL AND scheduled_for < ?
	`, tenantID, student, ledger.StatusScheduled, formatTime(asOf))
}

func (s *Store) StudentInTenant(ctx context.Context, tenantID ledger.TenantID, student ledger.StudentID) (bool, error) {
	n, err := s.countQuery(ctx,
		`SELECT COUNT(*) FROM students WHERE tenant_id = ? AND id = ?`,
		tenantID, student)
	return n > 0, err
}

func (s *Store) StudentAssignedTo(ctx context.Context, tenantID ledger.TenantID, teacher ledger.TeacherID, student ledger.StudentID) (bool, error) {
	n, err := s.countQuery(ctx, `
		SELECT COUNT(*) FROM teacher_students
		WHERE tenant_id = ? AND teacher_id = ? AND student_id = ?
	`, tenantID, teacher, student)
	return n > 0, err
}

// =============================================================================
// QUERY HELPERS
// =============================================================================

func (s *Store) countQuery(ctx context.Context, query string, args ...any) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to run count query: %w", err)
	}
	return n, nil
}

// countLocked is countQuery for callers already holding the read lock.
func (s *Store) countLocked(ctx context.Context, query string, tenantID ledger.TenantID, student *ledger.StudentID) (int, error) {
	args := []any{tenantID}
	query, args = withStudent(query, args, student)

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to run count query: %w", err)
	}
	return n, nil
}

func withStudent(query string, args []any, student *ledger.StudentID) (string, []any) {
	if student == nil {
		return query, args
	}
	return query + ` AND student_id = ?`, append(args, *student)
}

func withWindow(query string, args []any, column string, since *time.Time) (string, []any) {
	if since == nil {
		return query, args
	}
	return query + ` AND ` + column + ` >= ?`, append(args, formatTime(*since))
}
