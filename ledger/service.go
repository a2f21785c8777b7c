/*
service.go - Single-record ledger operations

PURPOSE:
  The thin orchestration layer between the API surface and the state
  machine: load, validate via machine.go, persist. Also owns the
  incident -> detention creation flow, which is the normal way detentions
  enter the ledger.

NOT-FOUND OPACITY:
  TransitionDetention returns ErrNotFound both for ids that do not exist
  and for ids that belong to another tenant. Callers cannot tell which,
  so existence never leaks across tenants.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kofiarhin/detention-desk-sub000/metrics"
)

// Service implements the single-record operations of the ledger.
type Service struct {
	store AtomicStore
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a ledger service on the given store.
func NewService(store AtomicStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// =============================================================================
// DETENTIONS
// =============================================================================

// CreateDetention produces and persists a new pending detention.
func (s *Service) CreateDetention(ctx context.Context, tenantID TenantID, studentID StudentID, minutes int, incidentID IncidentID, actor UserID) (*Detention, error) {
	d, err := NewDetention(tenantID, studentID, minutes, incidentID, actor, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertDetention(ctx, d); err != nil {
		return nil, fmt.Errorf("persist detention: %w", err)
	}
	s.log.Info("detention created",
		zap.String("tenant", string(tenantID)),
		zap.String("student", string(studentID)),
		zap.Int("minutes", minutes),
	)
	return &d, nil
}

// TransitionDetention applies one state machine transition to a stored
// detention and persists the result.
func (s *Service) TransitionDetention(ctx context.Context, tenantID TenantID, id DetentionID, target DetentionStatus, opts TransitionOptions, actor UserID) (*Detention, error) {
	d, err := s.store.GetDetention(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load detention: %w", err)
	}
	if d == nil {
		return nil, ErrNotFound
	}

	opts.Actor = actor
	if opts.Now.IsZero() {
		opts.Now = s.now()
	}
	prevRemaining := d.MinutesRemaining
	prevStatus := d.Status
	if err := Transition(d, target, opts); err != nil {
		return nil, err
	}

	// Conditional on the row we just read, so a stale write cannot clobber
	// a concurrent allocator auto-serve or bulk transition.
	ok, err := s.store.UpdateDetentionIf(ctx, *d, prevRemaining, []DetentionStatus{prevStatus})
	if err != nil {
		return nil, fmt.Errorf("persist detention: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("detention %s: %w", id, ErrConcurrentModification)
	}

	metrics.DetentionTransitions.WithLabelValues(string(target)).Inc()
	s.log.Info("detention transitioned",
		zap.String("tenant", string(tenantID)),
		zap.String("detention", string(id)),
		zap.String("status", string(target)),
	)
	return d, nil
}

// =============================================================================
// INCIDENTS
// =============================================================================

// IncidentInput carries the inputs for one incident report.
type IncidentInput struct {
	TenantID    TenantID
	StudentID   StudentID
	CategoryID  CategoryID
	Description string
	OccurredAt  time.Time
	Actor       UserID

	// DetentionMinutes > 0 creates a pending detention alongside the
	// incident, atomically with it. Zero records the incident alone.
	DetentionMinutes int
}

// IncidentResult is the incident plus the detention it triggered, if any.
type IncidentResult struct {
	Incident  Incident
	Detention *Detention
}

// RecordIncident persists an incident and, when minutes are attached, the
// detention it triggers. Both commit together.
func (s *Service) RecordIncident(ctx context.Context, in IncidentInput) (*IncidentResult, error) {
	if in.DetentionMinutes < 0 {
		return nil, &ValidationError{Field: "detentionMinutes", Message: "must not be negative"}
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = s.now()
	}

	incident := Incident{
		ID:          IncidentID(NewID()),
		TenantID:    in.TenantID,
		StudentID:   in.StudentID,
		CategoryID:  in.CategoryID,
		ReportedBy:  in.Actor,
		Description: in.Description,
		OccurredAt:  in.OccurredAt,
		CreatedAt:   s.now(),
	}

	result := &IncidentResult{Incident: incident}
	err := s.store.RunAtomic(ctx, func(st Store) error {
		if err := st.InsertIncident(ctx, incident); err != nil {
			return fmt.Errorf("persist incident: %w", err)
		}
		if in.DetentionMinutes == 0 {
			return nil
		}
		d, err := NewDetention(in.TenantID, in.StudentID, in.DetentionMinutes, incident.ID, in.Actor, s.now())
		if err != nil {
			return err
		}
		if err := st.InsertDetention(ctx, d); err != nil {
			return fmt.Errorf("persist detention: %w", err)
		}
		result.Detention = &d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("incident recorded",
		zap.String("tenant", string(in.TenantID)),
		zap.String("student", string(in.StudentID)),
		zap.Bool("detention", result.Detention != nil),
	)
	return result, nil
}

// =============================================================================
// SCOPE RECORDS
// =============================================================================

// AddStudent persists the minimal student record used by visibility checks.
func (s *Service) AddStudent(ctx context.Context, tenantID TenantID, name string) (*Student, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	st := Student{
		ID:        StudentID(NewID()),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertStudent(ctx, st); err != nil {
		return nil, fmt.Errorf("persist student: %w", err)
	}
	return &st, nil
}

// AssignStudent links a teacher to a student for scoped profile reads.
func (s *Service) AssignStudent(ctx context.Context, tenantID TenantID, teacherID TeacherID, studentID StudentID) error {
	a := TeacherAssignment{
		TenantID:  tenantID,
		TeacherID: teacherID,
		StudentID: studentID,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertAssignment(ctx, a); err != nil {
		return fmt.Errorf("persist assignment: %w", err)
	}
	return nil
}
