/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/tenants/{tenantID}/*   Tenant-scoped ledger and aggregation
  /health                     Liveness probe
  /metrics                    Prometheus scrape endpoint (config-gated)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions toggle the optional surfaces.
type RouterOptions struct {
	Metrics bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api/tenants/{tenantID}", func(r chi.Router) {
		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Post("/", h.CreateStudent)
			r.Get("/{id}/profile", h.GetStudentProfile)
			r.Get("/{id}/timeline", h.GetStudentTimeline)
		})
		r.Post("/teachers/{teacherID}/students/{studentID}", h.AssignStudent)

		// Incident routes
		r.Post("/incidents", h.CreateIncident)

		// Detention routes
		r.Route("/detentions", func(r chi.Router) {
			r.Post("/", h.CreateDetention)
			r.Post("/{id}/transition", h.TransitionDetention)
			r.Route("/bulk", func(r chi.Router) {
				r.Post("/serve", h.BulkServe)
				r.Post("/void", h.BulkVoid)
				r.Post("/schedule", h.BulkSchedule)
			})
		})

		// Reward routes
		r.Post("/rewards", h.CreateReward)

		// Dashboard routes
		r.Get("/dashboard", h.GetDashboard)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
