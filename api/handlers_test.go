package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kofiarhin/detention-desk-sub000/aggregate"
	"github.com/kofiarhin/detention-desk-sub000/api"
	"github.com/kofiarhin/detention-desk-sub000/ledger"
	"github.com/kofiarhin/detention-desk-sub000/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(
		ledger.NewService(store, nil),
		ledger.NewAllocator(store, nil),
		ledger.NewBulkExecutor(store, nil),
		aggregate.NewService(store, nil),
	)
	return api.NewRouter(handler, api.RouterOptions{Metrics: true})
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func createDetention(t *testing.T, srv http.Handler, tenant, student string, minutes int) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/tenants/"+tenant+"/detentions", map[string]any{
		"student_id": student,
		"minutes":    minutes,
		"created_by": "teacher-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	decode(t, rec, &resp)
	return resp.ID
}

// =============================================================================
// DETENTION LIFECYCLE OVER HTTP
// =============================================================================

func TestCreateDetention_ReturnsPendingRecord(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/tenants/tenant-1/detentions", map[string]any{
		"student_id": "student-1",
		"minutes":    30,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	decode(t, rec, &resp)
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, float64(30), resp["minutes_remaining"])
	assert.Equal(t, "tenant-1", resp["tenant_id"])
}

func TestCreateDetention_ZeroMinutes_400(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/tenants/tenant-1/detentions", map[string]any{
		"student_id": "student-1",
		"minutes":    0,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransition_ServeFlow(t *testing.T) {
	srv := newTestServer(t)
	id := createDetention(t, srv, "tenant-1", "student-1", 25)

	rec := doJSON(t, srv, http.MethodPost,
		"/api/tenants/tenant-1/detentions/"+id+"/transition",
		map[string]any{"target": "served", "actor": "admin-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	decode(t, rec, &resp)
	assert.Equal(t, "served", resp["status"])
	assert.Equal(t, float64(0), resp["minutes_remaining"])
	assert.Equal(t, "admin-1", resp["served_by"])
}

func TestTransition_ServedIsTerminal_409(t *testing.T) {
	srv := newTestServer(t)
	id := createDetention(t, srv, "tenant-1", "student-1", 25)

	first := doJSON(t, srv, http.MethodPost,
		"/api/tenants/tenant-1/detentions/"+id+"/transition",
		map[string]any{"target": "served"})
	require.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, srv, http.MethodPost,
		"/api/tenants/tenant-1/detentions/"+id+"/transition",
		map[string]any{"target": "voided"})

	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestTransition_UnknownID_404(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost,
		"/api/tenants/tenant-1/detentions/no-such-id/transition",
		map[string]any{"target": "served"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransition_ForeignTenant_404(t *testing.T) {
	// The detention exists in tenant-1; tenant-2 must get the same 404 as
	// for a nonexistent id.

	srv := newTestServer(t)
	id := createDetention(t, srv, "tenant-1", "student-1", 25)

	rec := doJSON(t, srv, http.MethodPost,
		"/api/tenants/tenant-2/detentions/"+id+"/transition",
		map[string]any{"target": "served"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransition_SchedulePastDate_400(t *testing.T) {
	srv := newTestServer(t)
	id := createDetention(t, srv, "tenant-1", "student-1", 25)

	past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	rec := doJSON(t, srv, http.MethodPost,
		"/api/tenants/tenant-1/detentions/"+id+"/transition",
		map[string]any{"target": "scheduled", "scheduled_for": past})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// INCIDENTS
// =============================================================================

func TestCreateIncident_WithDetention(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/tenants/tenant-1/incidents", map[string]any{
		"student_id":        "student-1",
		"category_id":       "lateness",
		"occurred_at":       time.Now().UTC().Format(time.RFC3339),
		"reported_by":       "teacher-1",
		"detention_minutes": 20,
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Incident  map[string]any `json:"incident"`
		Detention map[string]any `json:"detention"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "lateness", resp.Incident["category_id"])
	require.NotNil(t, resp.Detention)
	assert.Equal(t, "pending", resp.Detention["status"])
	assert.Equal(t, resp.Incident["id"], resp.Detention["incident_id"])
}

func TestCreateIncident_WithoutDetention(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/tenants/tenant-1/incidents", map[string]any{
		"student_id":  "student-1",
		"category_id": "talking",
		"occurred_at": time.Now().UTC().Format(time.RFC3339),
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Detention *map[string]any `json:"detention"`
	}
	decode(t, rec, &resp)
	assert.Nil(t, resp.Detention)
}

// =============================================================================
// BULK ENDPOINTS
// =============================================================================

func TestBulkServe_ReportsCounts(t *testing.T) {
	srv := newTestServer(t)
	id1 := createDetention(t, srv, "tenant-1", "student-1", 10)
	id2 := createDetention(t, srv, "tenant-1", "student-2", 20)

	rec := doJSON(t, srv, http.MethodPost, "/api/tenants/tenant-1/detentions/bulk/serve", map[string]any{
		"ids":   []string{id1, id2, "no-such-id"},
		"actor": "admin-1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	decode(t, rec, &resp)
	assert.Equal(t, float64(3), resp["total_requested"])
	assert.Equal(t, float64(2), resp["updated"])
	assert.Equal(t, float64(1), resp["skipped"])
}

func TestBulkSchedule_MissingDate_400(t *testing.T) {
	srv := newTestServer(t)
	id := createDetention(t, srv, "tenant-1", "student-1", 10)

	rec := doJSON(t, srv, http.MethodPost, "/api/tenants/tenant-1/detentions/bulk/schedule", map[string]any{
		"ids": []string{id},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// REWARDS
// =============================================================================

func TestCreateReward_OffsetsOldestFirst(t *testing.T) {
	srv := newTestServer(t)
	id1 := createDetention(t, srv, "tenant-1", "student-1", 15)
	// Same creation second is possible; only total application is asserted.
	id2 := createDetention(t, srv, "tenant-1", "student-1", 15)

	rec := doJSON(t, srv, http.MethodPost, "/api/tenants/tenant-1/rewards", map[string]any{
		"student_id": "student-1",
		"minutes":    20,
		"awarded_by": "teacher-2",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		MinutesApplied int `json:"minutes_applied"`
		Offsets        []struct {
			DetentionID    string `json:"detention_id"`
			MinutesApplied int    `json:"minutes_applied"`
		} `json:"offsets"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 20, resp.MinutesApplied)
	require.Len(t, resp.Offsets, 2)
	assert.Equal(t, 15, resp.Offsets[0].MinutesApplied)
	assert.Equal(t, 5, resp.Offsets[1].MinutesApplied)

	touched := map[string]bool{resp.Offsets[0].DetentionID: true, resp.Offsets[1].DetentionID: true}
	assert.True(t, touched[id1] && touched[id2])
}

func TestCreateReward_NegativeMinutes_400(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/tenants/tenant-1/rewards", map[string]any{
		"student_id": "student-1",
		"minutes":    -1,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// AGGREGATION ENDPOINTS
// =============================================================================

func TestDashboard_EndToEnd(t *testing.T) {
	srv := newTestServer(t)
	createDetention(t, srv, "tenant-1", "student-1", 30)

	rec := doJSON(t, srv, http.MethodGet, "/api/tenants/tenant-1/dashboard", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Metrics struct {
			MinutesAssigned  int            `json:"minutes_assigned"`
			MinutesRemaining int            `json:"minutes_remaining"`
			ByStatus         map[string]int `json:"detentions_by_status"`
		} `json:"metrics"`
		TopPendingStudents []struct {
			StudentID string `json:"student_id"`
		} `json:"top_pending_students"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 30, resp.Metrics.MinutesAssigned)
	assert.Equal(t, 1, resp.Metrics.ByStatus["pending"])
	require.Len(t, resp.TopPendingStudents, 1)
	assert.Equal(t, "student-1", resp.TopPendingStudents[0].StudentID)
}

func TestProfile_RequiresVisibleStudent(t *testing.T) {
	srv := newTestServer(t)

	// Unknown student: opaque 404
	rec := doJSON(t, srv, http.MethodGet, "/api/tenants/tenant-1/students/ghost/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Create a student, then the profile resolves
	created := doJSON(t, srv, http.MethodPost, "/api/tenants/tenant-1/students", map[string]any{
		"name": "Alex",
	})
	require.Equal(t, http.StatusCreated, created.Code)
	var student struct {
		ID string `json:"id"`
	}
	decode(t, created, &student)

	ok := doJSON(t, srv, http.MethodGet, "/api/tenants/tenant-1/students/"+student.ID+"/profile", nil)
	assert.Equal(t, http.StatusOK, ok.Code)

	// Same student from another tenant: opaque 404 again
	foreign := doJSON(t, srv, http.MethodGet, "/api/tenants/tenant-2/students/"+student.ID+"/profile", nil)
	assert.Equal(t, http.StatusNotFound, foreign.Code)
}

func TestProfile_TeacherScopeParameter(t *testing.T) {
	srv := newTestServer(t)

	created := doJSON(t, srv, http.MethodPost, "/api/tenants/tenant-1/students", map[string]any{"name": "Sam"})
	require.Equal(t, http.StatusCreated, created.Code)
	var student struct {
		ID string `json:"id"`
	}
	decode(t, created, &student)

	assign := doJSON(t, srv, http.MethodPost,
		fmt.Sprintf("/api/tenants/tenant-1/teachers/teacher-a/students/%s", student.ID), nil)
	require.Equal(t, http.StatusNoContent, assign.Code)

	inScope := doJSON(t, srv, http.MethodGet,
		"/api/tenants/tenant-1/students/"+student.ID+"/profile?teacher=teacher-a", nil)
	assert.Equal(t, http.StatusOK, inScope.Code)

	outOfScope := doJSON(t, srv, http.MethodGet,
		"/api/tenants/tenant-1/students/"+student.ID+"/profile?teacher=teacher-b", nil)
	assert.Equal(t, http.StatusNotFound, outOfScope.Code)
}

func TestTimeline_ReturnsPaginatedLists(t *testing.T) {
	srv := newTestServer(t)

	created := doJSON(t, srv, http.MethodPost, "/api/tenants/tenant-1/students", map[string]any{"name": "Riley"})
	require.Equal(t, http.StatusCreated, created.Code)
	var student struct {
		ID string `json:"id"`
	}
	decode(t, created, &student)

	createDetention(t, srv, "tenant-1", student.ID, 30)

	rec := doJSON(t, srv, http.MethodGet,
		"/api/tenants/tenant-1/students/"+student.ID+"/timeline?limit=10", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Detentions struct {
			Total int `json:"total"`
			Limit int `json:"limit"`
		} `json:"detentions"`
		Rewards struct {
			Total int `json:"total"`
		} `json:"rewards"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 1, resp.Detentions.Total)
	assert.Equal(t, 10, resp.Detentions.Limit)
	assert.Equal(t, 0, resp.Rewards.Total)
}

func TestTimeline_PerListPaginationOverridesShared(t *testing.T) {
	// GIVEN: A student with three detentions
	// WHEN: The detentions list gets its own page/limit pair while the
	//       shared ?limit applies to the other lists
	// THEN: The detentions list pages independently

	srv := newTestServer(t)

	created := doJSON(t, srv, http.MethodPost, "/api/tenants/tenant-1/students", map[string]any{"name": "Morgan"})
	require.Equal(t, http.StatusCreated, created.Code)
	var student struct {
		ID string `json:"id"`
	}
	decode(t, created, &student)

	for i := 0; i < 3; i++ {
		createDetention(t, srv, "tenant-1", student.ID, 10)
	}

	rec := doJSON(t, srv, http.MethodGet,
		"/api/tenants/tenant-1/students/"+student.ID+"/timeline?limit=10&detentions_limit=2&detentions_page=2", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Detentions struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
			Page  int `json:"page"`
			Limit int `json:"limit"`
			Total int `json:"total"`
			Pages int `json:"pages"`
		} `json:"detentions"`
		Incidents struct {
			Limit int `json:"limit"`
		} `json:"incidents"`
	}
	decode(t, rec, &resp)

	assert.Equal(t, 2, resp.Detentions.Page)
	assert.Equal(t, 2, resp.Detentions.Limit)
	assert.Equal(t, 3, resp.Detentions.Total)
	assert.Equal(t, 2, resp.Detentions.Pages)
	assert.Len(t, resp.Detentions.Items, 1, "page 2 of 3 items at limit 2 holds the last item")

	assert.Equal(t, 10, resp.Incidents.Limit, "lists without their own pair keep the shared limit")
}

// =============================================================================
// OPERATIONAL ENDPOINTS
// =============================================================================

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	health := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, health.Code)

	metrics := doJSON(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, metrics.Code)
}

func TestInvalidJSONBody_400(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tenants/tenant-1/detentions",
		bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
