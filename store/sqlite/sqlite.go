/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.AtomicStore (writes, conditional writes, transactions)
  and aggregate.Store (tenant-scoped read aggregation) on one database.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  detentions:        The mutable debt records (status machine state)
  rewards:           Immutable credit records
  detention_offsets: Append-only audit trail connecting the two
  incidents:         Behaviour events, read-only for this core
  students:          Minimal membership records for scope checks
  teacher_students:  Teacher-to-student assignments for scoped reads

OFFSET ENFORCEMENT:
  detention_offsets has no UPDATE or DELETE statements anywhere in this
  package, and minutes columns carry CHECK constraints so a bug cannot
  drive remaining minutes negative even past the optimistic checks.

CONDITIONAL WRITES:
  UpdateDetentionIf compares the stored remaining value and status inside
  the UPDATE's WHERE clause; BulkTransition filters on eligible statuses
  the same way. Rows-affected counts are the contract.

WAL MODE:
  SQLite is opened with WAL and foreign keys on, so readers do not block
  the single writer and crash recovery is sane.

SEE ALSO:
  - ledger/store.go:    Write-side interface definitions
  - aggregate/store.go: Read-side interface definition
  - aggregate.go:       The aggregation queries
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kofiarhin/detention-desk-sub000/ledger"
)

// Store implements ledger.AtomicStore and aggregate.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_students_tenant
		ON students(tenant_id);

	CREATE TABLE IF NOT EXISTS teacher_students (
		tenant_id TEXT NOT NULL,
		teacher_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (tenant_id, teacher_id, student_id)
	);

	CREATE TABLE IF NOT EXISTS incidents (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		reported_by TEXT,
		description TEXT,
		occurred_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_incidents_tenant_occurred
		ON incidents(tenant_id, occurred_at DESC);
	CREATE INDEX IF NOT EXISTS idx_incidents_tenant_student
		ON incidents(tenant_id, student_id);
	CREATE INDEX IF NOT EXISTS idx_incidents_tenant_category
		ON incidents(tenant_id, category_id);

	-- Detentions: the mutable side of the ledger. Remaining minutes are
	-- monotonically decreasing; the CHECKs are the last line of defence
	-- behind the optimistic update path.
	CREATE TABLE IF NOT EXISTS detentions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		incident_id TEXT,
		created_by TEXT,
		minutes_assigned INTEGER NOT NULL CHECK (minutes_assigned >= 0),
		minutes_remaining INTEGER NOT NULL CHECK (minutes_remaining >= 0),
		status TEXT NOT NULL,
		scheduled_for TEXT,
		served_at TEXT,
		served_by TEXT,
		voided_at TEXT,
		voided_by TEXT,
		created_at TEXT NOT NULL,
		CHECK (minutes_remaining <= minutes_assigned)
	);

	-- FIFO allocation scans (hot path)
	CREATE INDEX IF NOT EXISTS idx_detentions_tenant_student_status
		ON detentions(tenant_id, student_id, status, created_at);
	CREATE INDEX IF NOT EXISTS idx_detentions_tenant_created
		ON detentions(tenant_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_detentions_tenant_status
		ON detentions(tenant_id, status);

	CREATE TABLE IF NOT EXISTS rewards (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		awarded_by TEXT,
		minutes_awarded INTEGER NOT NULL CHECK (minutes_awarded >= 0),
		awarded_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rewards_tenant_awarded
		ON rewards(tenant_id, awarded_at DESC);
	CREATE INDEX IF NOT EXISTS idx_rewards_tenant_student
		ON rewards(tenant_id, student_id);

	-- Offsets: the append-only audit trail. No UPDATE, no DELETE. Ever.
	CREATE TABLE IF NOT EXISTS detention_offsets (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		reward_id TEXT NOT NULL,
		detention_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		minutes_applied INTEGER NOT NULL CHECK (minutes_applied > 0),
		applied_at TEXT NOT NULL,
		applied_by TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_offsets_tenant_detention
		ON detention_offsets(tenant_id, detention_id);
	CREATE INDEX IF NOT EXISTS idx_offsets_tenant_student_applied
		ON detention_offsets(tenant_id, student_id, applied_at DESC);
	CREATE INDEX IF NOT EXISTS idx_offsets_tenant_reward
		ON detention_offsets(tenant_id, reward_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query can run
// inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ATOMIC STORE (ledger.AtomicStore interface)
// =============================================================================

// AtomicSupported reports true: SQLite gives us real transactions.
func (s *Store) AtomicSupported() bool { return true }

// RunAtomic executes fn within one database transaction.
func (s *Store) RunAtomic(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// txStore is the transaction-backed view handed to RunAtomic callbacks.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) InsertDetention(ctx context.Context, d ledger.Detention) error {
	return insertDetention(ctx, t.tx, d)
}

func (t *txStore) GetDetention(ctx context.Context, tenantID ledger.TenantID, id ledger.DetentionID) (*ledger.Detention, error) {
	return getDetention(ctx, t.tx, tenantID, id)
}

func (t *txStore) UpdateDetention(ctx context.Context, d ledger.Detention) error {
	return updateDetention(ctx, t.tx, d)
}

func (t *txStore) UpdateDetentionIf(ctx context.Context, d ledger.Detention, expectedRemaining int, fromStatuses []ledger.DetentionStatus) (bool, error) {
	return updateDetentionIf(ctx, t.tx, d, expectedRemaining, fromStatuses)
}

func (t *txStore) ListOpenDetentions(ctx context.Context, tenantID ledger.TenantID, studentID ledger.StudentID) ([]ledger.Detention, error) {
	return listOpenDetentions(ctx, t.tx, tenantID, studentID)
}

func (t *txStore) BulkTransition(ctx context.Context, tenantID ledger.TenantID, ids []ledger.DetentionID, upd ledger.BulkUpdate) (int, error) {
	return bulkTransition(ctx, t.tx, tenantID, ids, upd)
}

func (t *txStore) InsertReward(ctx context.Context, r ledger.Reward) error {
	return insertReward(ctx, t.tx, r)
}

func (t *txStore) InsertOffset(ctx context.Context, o ledger.DetentionOffset) error {
	return insertOffset(ctx, t.tx, o)
}

func (t *txStore) ListOffsetsByDetention(ctx context.Context, tenantID ledger.TenantID, id ledger.DetentionID) ([]ledger.DetentionOffset, error) {
	return listOffsetsByDetention(ctx, t.tx, tenantID, id)
}

func (t *txStore) InsertIncident(ctx context.Context, in ledger.Incident) error {
	return insertIncident(ctx, t.tx, in)
}

func (t *txStore) InsertStudent(ctx context.Context, st ledger.Student) error {
	return insertStudent(ctx, t.tx, st)
}

func (t *txStore) InsertAssignment(ctx context.Context, a ledger.TeacherAssignment) error {
	return insertAssignment(ctx, t.tx, a)
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

func (s *Store) InsertDetention(ctx context.Context, d ledger.Detention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertDetention(ctx, s.db, d)
}

func (s *Store) GetDetention(ctx context.Context, tenantID ledger.TenantID, id ledger.DetentionID) (*ledger.Detention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getDetention(ctx, s.db, tenantID, id)
}

func (s *Store) UpdateDetention(ctx context.Context, d ledger.Detention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateDetention(ctx, s.db, d)
}

func (s *Store) UpdateDetentionIf(ctx context.Context, d ledger.Detention, expectedRemaining int, fromStatuses []ledger.DetentionStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateDetentionIf(ctx, s.db, d, expectedRemaining, fromStatuses)
}

func (s *Store) ListOpenDetentions(ctx context.Context, tenantID ledger.TenantID, studentID ledger.StudentID) ([]ledger.Detention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listOpenDetentions(ctx, s.db, tenantID, studentID)
}

func (s *Store) BulkTransition(ctx context.Context, tenantID ledger.TenantID, ids []ledger.DetentionID, upd ledger.BulkUpdate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bulkTransition(ctx, s.db, tenantID, ids, upd)
}

func (s *Store) InsertReward(ctx context.Context, r ledger.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertReward(ctx, s.db, r)
}

func (s *Store) InsertOffset(ctx context.Context, o ledger.DetentionOffset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertOffset(ctx, s.db, o)
}

func (s *Store) ListOffsetsByDetention(ctx context.Context, tenantID ledger.TenantID, id ledger.DetentionID) ([]ledger.DetentionOffset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listOffsetsByDetention(ctx, s.db, tenantID, id)
}

func (s *Store) InsertIncident(ctx context.Context, in ledger.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertIncident(ctx, s.db, in)
}

func (s *Store) InsertStudent(ctx context.Context, st ledger.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertStudent(ctx, s.db, st)
}

func (s *Store) InsertAssignment(ctx context.Context, a ledger.TeacherAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertAssignment(ctx, s.db, a)
}

// =============================================================================
// DETENTION QUERIES
// =============================================================================

func insertDetention(ctx context.Context, db dbtx, d ledger.Detention) error {
	query := `
		INSERT INTO detentions
		(id, tenant_id, student_id, incident_id, created_by,
		 minutes_assigned, minutes_remaining, status, scheduled_for,
		 served_at, served_by, voided_at, voided_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		d.ID, d.TenantID, d.StudentID, nullString(string(d.IncidentID)), d.CreatedBy,
		d.MinutesAssigned, d.MinutesRemaining, d.Status, nullTime(d.ScheduledFor),
		nullTime(d.ServedAt), d.ServedBy, nullTime(d.VoidedAt), d.VoidedBy,
		formatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert detention: %w", err)
	}
	return nil
}

func getDetention(ctx context.Context, db dbtx, tenantID ledger.TenantID, id ledger.DetentionID) (*ledger.Detention, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+detentionColumns+`
		FROM detentions
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id)

	d, err := scanDetentionRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get detention: %w", err)
	}
	return &d, nil
}

func updateDetention(ctx context.Context, db dbtx, d ledger.Detention) error {
	query := `
		UPDATE detentions SET
			minutes_remaining = ?, status = ?, scheduled_for = ?,
			served_at = ?, served_by = ?, voided_at = ?, voided_by = ?
		WHERE tenant_id = ? AND id = ?
	`
	_, err := db.ExecContext(ctx, query,
		d.MinutesRemaining, d.Status, nullTime(d.ScheduledFor),
		nullTime(d.ServedAt), d.ServedBy, nullTime(d.VoidedAt), d.VoidedBy,
		d.TenantID, d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update detention: %w", err)
	}
	return nil
}

func updateDetentionIf(ctx context.Context, db dbtx, d ledger.Detention, expectedRemaining int, fromStatuses []ledger.DetentionStatus) (bool, error) {
	query := `
		UPDATE detentions SET
			minutes_remaining = ?, status = ?, scheduled_for = ?,
			served_at = ?, served_by = ?, voided_at = ?, voided_by = ?
		WHERE tenant_id = ? AND id = ?
		  AND minutes_remaining = ? AND status IN (` + placeholders(len(fromStatuses)) + `)
	`
	args := []any{
		d.MinutesRemaining, d.Status, nullTime(d.ScheduledFor),
		nullTime(d.ServedAt), d.ServedBy, nullTime(d.VoidedAt), d.VoidedBy,
		d.TenantID, d.ID, expectedRemaining,
	}
	for _, st := range fromStatuses {
		args = append(args, st)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to conditionally update detention: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func listOpenDetentions(ctx context.Context, db dbtx, tenantID ledger.TenantID, studentID ledger.StudentID) ([]ledger.Detention, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+detentionColumns+`
		FROM detentions
		WHERE tenant_id = ? AND student_id = ?
		  AND status = ? AND minutes_remaining > 0
		ORDER BY created_at ASC, id ASC
	`, tenantID, studentID, ledger.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list open detentions: %w", err)
	}
	defer rows.Close()

	var detentions []ledger.Detention
	for rows.Next() {
		d, err := scanDetention(rows)
		if err != nil {
			return nil, err
		}
		detentions = append(detentions, d)
	}
	return detentions, rows.Err()
}

func bulkTransition(ctx context.Context, db dbtx, tenantID ledger.TenantID, ids []ledger.DetentionID, upd ledger.BulkUpdate) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var set string
	var args []any
	switch upd.Target {
	case ledger.StatusServed:
		set = `status = ?, minutes_remaining = 0, served_at = ?, served_by = ?,
		       scheduled_for = NULL, voided_at = NULL, voided_by = ''`
		args = []any{ledger.StatusServed, formatTime(upd.At), upd.Actor}
	case ledger.StatusVoided:
		// Remaining minutes stay untouched: voided debt is written off,
		// not zeroed.
		set = `status = ?, voided_at = ?, voided_by = ?`
		args = []any{ledger.StatusVoided, formatTime(upd.At), upd.Actor}
	case ledger.StatusScheduled:
		set = `status = ?, scheduled_for = ?, served_at = NULL, served_by = '',
		       voided_at = NULL, voided_by = ''`
		args = []any{ledger.StatusScheduled, nullTime(upd.ScheduledFor)}
	default:
		return 0, fmt.Errorf("unsupported bulk target %q", upd.Target)
	}

	query := `
		UPDATE detentions SET ` + set + `
		WHERE tenant_id = ?
		  AND id IN (` + placeholders(len(ids)) + `)
		  AND status IN (` + placeholders(len(upd.EligibleFrom)) + `)
	`
	args = append(args, tenantID)
	for _, id := range ids {
		args = append(args, id)
	}
	for _, st := range upd.EligibleFrom {
		args = append(args, st)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// =============================================================================
// REWARD, OFFSET, INCIDENT, SCOPE QUERIES
// =============================================================================

func insertReward(ctx context.Context, db dbtx, r ledger.Reward) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO rewards
		(id, tenant_id, student_id, category_id, awarded_by,
		 minutes_awarded, awarded_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.TenantID, r.StudentID, r.CategoryID, r.AwardedBy,
		r.MinutesAwarded, formatTime(r.AwardedAt), formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert reward: %w", err)
	}
	return nil
}

func insertOffset(ctx context.Context, db dbtx, o ledger.DetentionOffset) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO detention_offsets
		(id, tenant_id, reward_id, detention_id, student_id,
		 minutes_applied, applied_at, applied_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.TenantID, o.RewardID, o.DetentionID, o.StudentID,
		o.MinutesApplied, formatTime(o.AppliedAt), o.AppliedBy)
	if err != nil {
		return fmt.Errorf("failed to insert offset: %w", err)
	}
	return nil
}

func listOffsetsByDetention(ctx context.Context, db dbtx, tenantID ledger.TenantID, id ledger.DetentionID) ([]ledger.DetentionOffset, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, tenant_id, reward_id, detention_id, student_id,
		       minutes_applied, applied_at, applied_by
		FROM detention_offsets
		WHERE tenant_id = ? AND detention_id = ?
		ORDER BY applied_at ASC, id ASC
	`, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list offsets: %w", err)
	}
	defer rows.Close()

	var offsets []ledger.DetentionOffset
	for rows.Next() {
		o, err := scanOffset(rows)
		if err != nil {
			return nil, err
		}
		offsets = append(offsets, o)
	}
	return offsets, rows.Err()
}

func insertIncident(ctx context.Context, db dbtx, in ledger.Incident) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO incidents
		(id, tenant_id, student_id, category_id, reported_by,
		 description, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, in.ID, in.TenantID, in.StudentID, in.CategoryID, in.ReportedBy,
		in.Description, formatTime(in.OccurredAt), formatTime(in.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}
	return nil
}

func insertStudent(ctx context.Context, db dbtx, st ledger.Student) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO students (id, tenant_id, name, created_at)
		VALUES (?, ?, ?, ?)
	`, st.ID, st.TenantID, st.Name, formatTime(st.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert student: %w", err)
	}
	return nil
}

func insertAssignment(ctx context.Context, db dbtx, a ledger.TeacherAssignment) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO teacher_students (tenant_id, teacher_id, student_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, teacher_id, student_id) DO NOTHING
	`, a.TenantID, a.TeacherID, a.StudentID, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

// =============================================================================
// SCANNING & HELPERS
// =============================================================================

const detentionColumns = `id, tenant_id, student_id, incident_id, created_by,
	minutes_assigned, minutes_remaining, status, scheduled_for,
	served_at, served_by, voided_at, voided_by, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDetentionRow(row rowScanner) (ledger.Detention, error) {
	var (
		d            ledger.Detention
		incidentID   sql.NullString
		createdBy    sql.NullString
		scheduledFor sql.NullString
		servedAt     sql.NullString
		servedBy     sql.NullString
		voidedAt     sql.NullString
		voidedBy     sql.NullString
		createdAt    string
	)

	err := row.Scan(
		&d.ID, &d.TenantID, &d.StudentID, &incidentID, &createdBy,
		&d.MinutesAssigned, &d.MinutesRemaining, &d.Status, &scheduledFor,
		&servedAt, &servedBy, &voidedAt, &voidedBy, &createdAt,
	)
	if err != nil {
		return d, err
	}

	d.IncidentID = ledger.IncidentID(incidentID.String)
	d.CreatedBy = ledger.UserID(createdBy.String)
	d.ScheduledFor = parseNullTime(scheduledFor)
	d.ServedAt = parseNullTime(servedAt)
	d.ServedBy = ledger.UserID(servedBy.String)
	d.VoidedAt = parseNullTime(voidedAt)
	d.VoidedBy = ledger.UserID(voidedBy.String)
	d.CreatedAt = parseTime(createdAt)
	return d, nil
}

func scanDetention(rows *sql.Rows) (ledger.Detention, error) {
	d, err := scanDetentionRow(rows)
	if err != nil {
		return d, fmt.Errorf("failed to scan detention: %w", err)
	}
	return d, nil
}

func scanOffset(rows *sql.Rows) (ledger.DetentionOffset, error) {
	var (
		o         ledger.DetentionOffset
		appliedAt string
		appliedBy sql.NullString
	)
	err := rows.Scan(
		&o.ID, &o.TenantID, &o.RewardID, &o.DetentionID, &o.StudentID,
		&o.MinutesApplied, &appliedAt, &appliedBy,
	)
	if err != nil {
		return o, fmt.Errorf("failed to scan offset: %w", err)
	}
	o.AppliedAt = parseTime(appliedAt)
	o.AppliedBy = ledger.UserID(appliedBy.String)
	return o, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
