// Package api serves the simulation job service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/beenjammin/basgra/internal/app"
	"github.com/beenjammin/basgra/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit validates and queues a request. created is false when the
	// request id matched an existing job.
	Submit(ctx context.Context, req *model.Request) (job model.Job, created bool, err error)

	// Get returns a job by id.
	Get(ctx context.Context, id string) (model.Job, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) service.Stats
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	simulationsHandler *SimulationsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		simulationsHandler: NewSimulationsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /simulations", MetricsMiddleware(s.simulationsHandler.HandlePostSimulation, "simulations"))
	mux.HandleFunc("GET /simulations/{id}", MetricsMiddleware(s.simulationsHandler.HandleGetSimulation, "simulation"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
