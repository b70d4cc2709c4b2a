package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shehryarbajwa/gridstatus/internal/observability"
	"github.com/shehryarbajwa/gridstatus/internal/ratelimit"
)

// RouterConfig wires the simulator's cross-cutting pieces
type RouterConfig struct {
	Accounts          map[string]string
	Limiter           *ratelimit.Limiter
	RequestsPerMinute int
	Registry          *prometheus.Registry
}

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes(cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})).Methods("GET")
		r.Use(MetricsMiddleware(observability.NewServerMetrics(cfg.Registry)))
	}

	// Automate-compatible API
	api := r.PathPrefix("/automate").Subrouter()
	api.Use(BasicAuthMiddleware(cfg.Accounts))
	if cfg.Limiter != nil {
		api.Use(RateLimitMiddleware(cfg.Limiter, cfg.RequestsPerMinute))
	}

	api.HandleFunc("/sessions.json", h.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/{id}.json", h.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}.json", h.UpdateSession).Methods("PUT")
	api.HandleFunc("/sessions/{id}.json", h.DeleteSession).Methods("DELETE")
	api.HandleFunc("/builds/{id}/sessions.json", h.ListBuildSessions).Methods("GET")

	return r
}
