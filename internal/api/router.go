package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.metricsCfg.Enabled && s.collectors != nil {
		r.Handle(s.metricsCfg.Path, s.collectors.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/datapoints", func(r chi.Router) {
			r.Get("/", s.handleListDatapoints)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDatapoint)
				r.Get("/history", s.handleGetDatapointHistory)
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"datapoints": s.store.Len(),
		"ws_clients": s.Hub().ClientCount(),
		"ws_dropped": s.Hub().Dropped(),
	})
}
