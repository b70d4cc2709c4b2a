package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReporterMetrics counts status reporting activity.
type ReporterMetrics struct {
	updates  *prometheus.CounterVec
	attempts *prometheus.CounterVec
	polls    *prometheus.CounterVec
}

// NewReporterMetrics registers the reporter counters; a nil registerer means the default one
func NewReporterMetrics(registerer prometheus.Registerer) *ReporterMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	updates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridstatus_status_updates_total",
		Help: "Status update calls by final outcome.",
	}, []string{"outcome"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridstatus_write_attempts_total",
		Help: "Status write attempts by result.",
	}, []string{"result"})
	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridstatus_visibility_polls_total",
		Help: "Session visibility polls by result.",
	}, []string{"result"})

	registerer.MustRegister(updates, attempts, polls)

	return &ReporterMetrics{
		updates:  updates,
		attempts: attempts,
		polls:    polls,
	}
}

// IncUpdate counts a finished UpdateSessionStatus call by outcome
func (m *ReporterMetrics) IncUpdate(outcome string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(outcome).Inc()
}

// IncAttempt counts a status write by result
func (m *ReporterMetrics) IncAttempt(result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(result).Inc()
}

// IncPoll counts a visibility poll by result
func (m *ReporterMetrics) IncPoll(result string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(result).Inc()
}

// ServerMetrics counts requests served by the grid simulator.
type ServerMetrics struct {
	requests *prometheus.CounterVec
}

// NewServerMetrics registers the simulator request counter
func NewServerMetrics(registerer prometheus.Registerer) *ServerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridsim_requests_total",
		Help: "Requests served by route and status code.",
	}, []string{"route", "code"})
	registerer.MustRegister(requests)

	return &ServerMetrics{requests: requests}
}

// IncRequest counts a served request by route template and status code
func (m *ServerMetrics) IncRequest(route, code string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, code).Inc()
}
