// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/kofiarhin/detention-desk-sub000/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (tests and single-node fallback)
// =============================================================================

// Memory holds all ledger records in maps guarded by one RWMutex. It has
// no multi-record transaction support: RunAtomic executes sequentially and
// AtomicSupported reports false, which is the documented degradation the
// allocator logs at construction.
type Memory struct {
	mu          sync.RWMutex
	detentions  map[ledger.DetentionID]ledger.Detention
	rewards     map[ledger.RewardID]ledger.Reward
	offsets     []ledger.DetentionOffset
	incidents   []ledger.Incident
	students    map[ledger.StudentID]ledger.Student
	assignments []ledger.TeacherAssignment
}

func NewMemory() *Memory {
	return &Memory{
		detentions: make(map[ledger.DetentionID]ledger.Detention),
		rewards:    make(map[ledger.RewardID]ledger.Reward),
		students:   make(map[ledger.StudentID]ledger.Student),
	}
}

// AtomicSupported reports false: writes here are best-effort sequential.
func (m *Memory) AtomicSupported() bool { return false }

// RunAtomic executes fn directly, without rollback on failure.
func (m *Memory) RunAtomic(ctx context.Context, fn func(ledger.Store) error) error {
	return fn(m)
}

// =============================================================================
// DETENTIONS
// =============================================================================

func (m *Memory) InsertDetention(_ context.Context, d ledger.Detention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detentions[d.ID] = d
	return nil
}

func (m *Memory) GetDetention(_ context.Context, tenantID ledger.TenantID, id ledger.DetentionID) (*ledger.Detention, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.detentions[id]
	if !ok || d.TenantID != tenantID {
		return nil, nil
	}
	out := d
	return &out, nil
}

func (m *Memory) UpdateDetention(_ context.Context, d ledger.Detention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detentions[d.ID] = d
	return nil
}

func (m *Memory) UpdateDetentionIf(_ context.Context, d ledger.Detention, expectedRemaining int, fromStatuses []ledger.DetentionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.detentions[d.ID]
	if !ok || current.TenantID != d.TenantID {
		return false, nil
	}
	if current.MinutesRemaining != expectedRemaining || !statusIn(current.Status, fromStatuses) {
		return false, nil
	}
	m.detentions[d.ID] = d
	return true, nil
}

func (m *Memory) ListOpenDetentions(_ context.Context, tenantID ledger.TenantID, studentID ledger.StudentID) ([]ledger.Detention, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Detention
	for _, d := range m.detentions {
		if d.TenantID == tenantID && d.StudentID == studentID &&
			d.Status == ledger.StatusPending && d.MinutesRemaining > 0 {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) BulkTransition(_ context.Context, tenantID ledger.TenantID, ids []ledger.DetentionID, upd ledger.BulkUpdate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := 0
	for _, id := range ids {
		d, ok := m.detentions[id]
		if !ok || d.TenantID != tenantID || !statusIn(d.Status, upd.EligibleFrom) {
			continue
		}
		switch upd.Target {
		case ledger.StatusServed:
			d.Status = ledger.StatusServed
			d.MinutesRemaining = 0
			at := upd.At
			d.ServedAt = &at
			d.ServedBy = upd.Actor
			d.ScheduledFor = nil
			d.VoidedAt = nil
			d.VoidedBy = ""
		case ledger.StatusVoided:
			d.Status = ledger.StatusVoided
			at := upd.At
			d.VoidedAt = &at
			d.VoidedBy = upd.Actor
		case ledger.StatusScheduled:
			d.Status = ledger.StatusScheduled
			d.ScheduledFor = upd.ScheduledFor
			d.ServedAt = nil
			d.ServedBy = ""
			d.VoidedAt = nil
			d.VoidedBy = ""
		}
		m.detentions[id] = d
		updated++
	}
	return updated, nil
}

// =============================================================================
// REWARDS, OFFSETS, INCIDENTS, SCOPE RECORDS
// =============================================================================

func (m *Memory) InsertReward(_ context.Context, r ledger.Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rewards[r.ID] = r
	return nil
}

func (m *Memory) InsertOffset(_ context.Context, o ledger.DetentionOffset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offsets = append(m.offsets, o)
	return nil
}

func (m *Memory) ListOffsetsByDetention(_ context.Context, tenantID ledger.TenantID, id ledger.DetentionID) ([]ledger.DetentionOffset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.DetentionOffset
	for _, o := range m.offsets {
		if o.TenantID == tenantID && o.DetentionID == id {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.Before(out[j].AppliedAt) })
	return out, nil
}

func (m *Memory) InsertIncident(_ context.Context, in ledger.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incidents = append(m.incidents, in)
	return nil
}

func (m *Memory) InsertStudent(_ context.Context, s ledger.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.ID] = s
	return nil
}

func (m *Memory) InsertAssignment(_ context.Context, a ledger.TeacherAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments = append(m.assignments, a)
	return nil
}

func statusIn(s ledger.DetentionStatus, set []ledger.DetentionStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}
