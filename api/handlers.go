/*
handlers.go - HTTP API handlers for the detention ledger

PURPOSE:
  Exposes the detention ledger via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Students:
    POST /api/tenants/{tenantID}/students                          Create student
    POST /api/tenants/{tenantID}/teachers/{teacherID}/students/{studentID}  Assign student
    GET  /api/tenants/{tenantID}/students/{id}/profile             Profile (optional ?teacher=)
    GET  /api/tenants/{tenantID}/students/{id}/timeline            Activity timeline

  Incidents & detentions:
    POST /api/tenants/{tenantID}/incidents                         Record incident
    POST /api/tenants/{tenantID}/detentions                        Open detention
    POST /api/tenants/{tenantID}/detentions/{id}/transition        Move to new status
    POST /api/tenants/{tenantID}/detentions/bulk/{serve|void|schedule}

  Rewards:
    POST /api/tenants/{tenantID}/rewards                           Award + auto-offset

  Aggregation:
    GET  /api/tenants/{tenantID}/dashboard                         Tenant dashboard

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (ledger service, allocator, bulk executor, aggregator)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found (also out-of-scope students - the response
         never reveals whether the record exists in another tenant)
  - 409: Invalid transition, concurrent modification
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. Tenant scoping is taken
  from the URL and trusted.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kofiarhin/detention-desk-sub000/aggregate"
	"github.com/kofiarhin/detention-desk-sub000/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger    *ledger.Service
	Allocator *ledger.Allocator
	Bulk      *ledger.BulkExecutor
	Aggregate *aggregate.Service
}

// NewHandler wires the domain services into one handler set.
func NewHandler(svc *ledger.Service, alloc *ledger.Allocator, bulk *ledger.BulkExecutor, agg *aggregate.Service) *Handler {
	return &Handler{
		Ledger:    svc,
		Allocator: alloc,
		Bulk:      bulk,
		Aggregate: agg,
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// CreateStudent creates a student record in the tenant.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	tenantID := ledger.TenantID(chi.URLParam(r, "tenantID"))

	var req CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	student, err := h.Ledger.AddStudent(r.Context(), tenantID, req.Name)
	if err != nil {
		writeDomainError(w, "Failed to create student", err)
		return
	}

	writeJSON(w, http.StatusCreated, toStudentDTO(*student))
}

// AssignStudent puts a student in a teacher's scope.
func (h *Handler) AssignStudent(w http.ResponseWriter, r *http.Request) {
	tenantID := ledger.TenantID(chi.URLParam(r, "tenantID"))
	teacherID := ledger.TeacherID(chi.URLParam(r, "teacherID"))
	studentID := ledger.StudentID(chi.URLParam(r, "studentID"))

	if err := h.Ledger.AssignStudent(r.Context(), tenantID, teacherID, studentID); err != nil {
		writeDomainError(w, "Failed to assign student", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// INCIDENT & DETENTION HANDLERS
// =============================================================================

// CreateIncident records an incident, optionally opening a detention.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	tenantID := ledger.TenantID(chi.URLParam(r, "tenantID"))

	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	occurredAt, err := time.Parse(time.RFC3339, req.OccurredAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid occurred_at (use RFC3339)", err)
		return
	}

	result, err := h.Ledger.RecordIncident(r.Context(), ledger.IncidentInput{
		TenantID:         tenantID,
		StudentID:        ledger.StudentID(req.StudentID),
		CategoryID:       ledger.CategoryID(req.CategoryID),
		Description:      req.Description,
		OccurredAt:       occurredAt,
		Actor:            ledger.UserID(req.ReportedBy),
		DetentionMinutes: req.DetentionMinutes,
	})
	if err != nil {
		writeDomainError(w, "Failed to record incident", err)
		return
	}

	resp := IncidentResultDTO{Incident: toIncidentDTO(result.Incident)}
	if result.Detention != nil {
		dto := toDetentionDTO(*result.Detention)
		resp.Detention = &dto
	}
	writeJSON(w, http.StatusCreated, resp)
}

// CreateDetention opens a pending detention directly.
func (h *Handler) CreateDetention(w http.ResponseWriter, r *http.Request) {
	tenantID := ledger.TenantID(chi.URLParam(r, "tenantID"))

	var req CreateDetentionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	d, err := h.Ledger.CreateDetention(r.Context(), tenantID,
		ledger.StudentID(req.StudentID), req.Minutes,
		ledger.IncidentID(req.IncidentID), ledger.UserID(req.CreatedBy))
	if err != nil {
		writeDomainError(w, "Failed to create detention", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDetentionDTO(*d))
}

// TransitionDetention moves one detention to a new status.
func (h *Handler) TransitionDetention(w http.ResponseWriter, r *http.Request) {
	tenantID := ledger.TenantID(chi.URLParam(r, "tenantID"))
	id := ledger.DetentionID(chi.URLParam(r, "id"))

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	target := ledger.DetentionStatus(req.Target)
	opts := ledger.TransitionOptions{}
	if req.ScheduledFor != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledFor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid scheduled_for (use RFC3339)", err)
			return
		}
		opts.ScheduledFor = &t
	}

	d, err := h.Ledger.TransitionDetention(r.Context(), tenantID, id, target, opts, ledger.UserID(req.Actor))
	if err != nil {
		writeDomainError(w, "Failed to transition detention", err)
		return
	}

	writeJSON(w, http.StatusOK, toDetentionDTO(*d))
}

// BulkServe marks a batch of detentions served.
func (h *Handler) BulkServe(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(req BulkRequest, tenantID ledger.TenantID, ids []ledger.DetentionID) (ledger.BulkResult, error) {
		return h.Bulk.Serve(r.Context(), tenantID, ids, ledger.UserID(req.Actor))
	})
}

// BulkVoid voids a batch of detentions.
func (h *Handler) BulkVoid(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(req BulkRequest, tenantID ledger.TenantID, ids []ledger.DetentionID) (ledger.BulkResult, error) {
		return h.Bulk.Void(r.Context(), tenantID, ids, ledger.UserID(req.Actor))
	})
}

// BulkSchedule schedules a batch of pending detentions.
func (h *Handler) BulkSchedule(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(req BulkRequest, tenantID ledger.TenantID, ids []ledger.DetentionID) (ledger.BulkResult, error) {
		if req.ScheduledFor == "" {
			return ledger.BulkResult{}, &ledger.ValidationError{Field: "scheduled_for", Message: "is required"}
		}
		t, err := time.Parse(time.RFC3339, req.ScheduledFor)
		if err != nil {
			return ledger.BulkResult{}, &ledger.ValidationError{Field: "scheduled_for", Message: "must be RFC3339"}
		}
		return h.Bulk.Schedule(r.Context(), tenantID, ids, t, ledger.UserID(req.Actor))
	})
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request, run func(BulkRequest, ledger.TenantID, []ledger.DetentionID) (ledger.BulkResult, error)) {
	tenantID := ledger.TenantID(chi.URLParam(r, "tenantID"))

	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ids := make([]ledger.DetentionID, len(req.IDs))
	for i, id := range req.IDs {
		ids[i] = ledger.DetentionID(id)
	}

	result, err := run(req, tenantID, ids)
	if err != nil {
		writeDomainError(w, "Bulk operation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, BulkResultDTO{
		TotalRequested: result.TotalRequested,
		Updated:        result.Updated,
		Skipped:        result.Skipped,
	})
}

// =============================================================================
// REWARD HANDLERS
// =============================================================================

// CreateReward awards minutes and applies them oldest-debt-first.
func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request) {
	tenantID := ledger.TenantID(chi.URLParam(r, "tenantID"))

	var req CreateRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := ledger.AwardInput{
		TenantID:   tenantID,
		StudentID:  ledger.StudentID(req.StudentID),
		CategoryID: ledger.CategoryID(req.CategoryID),
		Minutes:    req.Minutes,
		Actor:      ledger.UserID(req.AwardedBy),
	}
	if req.AwardedAt != "" {
		t, err := time.Parse(time.RFC3339, req.AwardedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid awarded_at (use RFC3339)", err)
			return
		}
		in.AwardedAt = t
	}

	result, err := h.Allocator.Award(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to award reward", err)
		return
	}

	offsets := make([]OffsetDTO, len(result.Offsets))
	for i, o := range result.Offsets {
		offsets[i] = toOffsetDTO(o)
	}
	writeJSON(w, http.StatusCreated, AwardResultDTO{
		Reward:         toRewardDTO(result.Reward),
		Offsets:        offsets,
		MinutesApplied: result.MinutesApplied,
	})
}

// =============================================================================
// AGGREGATION HANDLERS
// =============================================================================

// GetDashboard returns the tenant-wide dashboard.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	tenantID := ledger.TenantID(chi.URLParam(r, "tenantID"))

	opts := aggregate.DashboardOptions{
		TopLimit: queryInt(r, "top", 0),
		Recent: aggregate.Page{
			Page:  queryInt(r, "page", 0),
			Limit: queryInt(r, "limit", 0),
		},
	}

	dash, err := h.Aggregate.TenantDashboard(r.Context(), tenantID, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, toDashboardDTO(dash))
}

// GetStudentProfile returns one student's summary and flags. The optional
// ?teacher= parameter restricts visibility to that teacher's roster.
func (h *Handler) GetStudentProfile(w http.ResponseWriter, r *http.Request) {
	tenantID := ledger.TenantID(chi.URLParam(r, "tenantID"))
	studentID := ledger.StudentID(chi.URLParam(r, "id"))
	scope := teacherScope(r)

	profile, err := h.Aggregate.StudentProfile(r.Context(), tenantID, studentID, scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build profile", err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toProfileDTO(profile))
}

// GetStudentTimeline returns one student's paginated activity lists. Each
// list pages independently: ?detentions_page / ?detentions_limit (and the
// equivalents for incidents, rewards, offsets) override the shared
// ?page / ?limit pair.
func (h *Handler) GetStudentTimeline(w http.ResponseWriter, r *http.Request) {
	tenantID := ledger.TenantID(chi.URLParam(r, "tenantID"))
	studentID := ledger.StudentID(chi.URLParam(r, "id"))
	scope := teacherScope(r)

	shared := aggregate.Page{
		Page:  queryInt(r, "page", 0),
		Limit: queryInt(r, "limit", 0),
	}
	opts := aggregate.TimelineOptions{
		Incidents:  listPage(r, "incidents", shared),
		Detentions: listPage(r, "detentions", shared),
		Rewards:    listPage(r, "rewards", shared),
		Offsets:    listPage(r, "offsets", shared),
	}

	timeline, err := h.Aggregate.StudentTimeline(r.Context(), tenantID, studentID, scope, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build timeline", err)
		return
	}
	if timeline == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toTimelineDTO(timeline))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain error kinds to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrInvalidTransition), ledger.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func teacherScope(r *http.Request) *ledger.TeacherID {
	raw := r.URL.Query().Get("teacher")
	if raw == "" {
		return nil
	}
	id := ledger.TeacherID(raw)
	return &id
}

// listPage resolves one timeline list's pagination, preferring the
// list-specific query pair over the shared one.
func listPage(r *http.Request, list string, shared aggregate.Page) aggregate.Page {
	return aggregate.Page{
		Page:  queryInt(r, list+"_page", shared.Page),
		Limit: queryInt(r, list+"_limit", shared.Limit),
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
