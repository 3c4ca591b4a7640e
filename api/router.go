// Package api assembles the HTTP surface of the coordinator.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/dronecoord/api/audit"
	"github.com/kilianp07/dronecoord/api/conflicts"
	"github.com/kilianp07/dronecoord/api/fleet"
	"github.com/kilianp07/dronecoord/api/missions"
	"github.com/kilianp07/dronecoord/core/assignment/logging"
	"github.com/kilianp07/dronecoord/core/logger"
)

// Services are the engines served by the router.
type Services struct {
	Roster      fleet.Roster
	Inventory   fleet.Inventory
	Assignments missions.Engine
	Conflicts   conflicts.Scanner
	// Audit is optional; the log endpoint is omitted when nil.
	Audit      logging.LogStore
	AuditToken string
	// Metrics serves /metrics from this handler instead of the default
	// Prometheus gatherer.
	Metrics http.Handler
	Log     logger.Logger
}

// NewRouter builds the chi router.
func NewRouter(s Services) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.Log != nil {
		r.Use(requestLogger(s.Log))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metrics := s.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/pilots", fleet.NewPilotsHandler(s.Roster))
		r.Get("/pilots/{id}", fleet.NewPilotHandler(s.Roster))
		r.Get("/drones", fleet.NewDronesHandler(s.Inventory))
		r.Get("/drones/{id}", fleet.NewDroneHandler(s.Inventory))

		r.Get("/missions", missions.NewListHandler(s.Assignments))
		r.Get("/missions/{id}", missions.NewGetHandler(s.Assignments))
		r.Post("/missions/{id}/assign", missions.NewAssignHandler(s.Assignments))
		r.Post("/missions/{id}/reassign", missions.NewReassignHandler(s.Assignments))

		r.Get("/conflicts", conflicts.NewHandler(s.Conflicts))
		if s.Audit != nil {
			r.Method(http.MethodGet, "/assignments/logs", audit.NewLogHandler(s.Audit, s.AuditToken))
		}
	})
	return r
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debugw("http request", map[string]any{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"request_id": middleware.GetReqID(r.Context()),
			})
		})
	}
}
