// Package api exposes the read-only status API over the run-history store:
// run listings, run detail, per-item errors, and id mappings, plus health
// and Prometheus metrics endpoints. It renders no UI; state is exposed as
// JSON for external dashboards.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/testshift/testshift/pkg/stores"
	"github.com/testshift/testshift/pkg/telemetry"
)

// Server holds shared state for all API handlers.
type Server struct {
	Store   stores.Store
	Metrics *telemetry.Metrics
}

// NewRouter builds the chi router with all status API routes.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.Health)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", s.ListRuns)
		r.Get("/runs/{id}", s.GetRun)
		r.Get("/runs/{id}/errors", s.ListRunErrors)
		r.Get("/runs/{id}/mappings", s.ListRunMappings)
	})

	return r
}
