// Package metrics defines the Prometheus instruments exported by seedgraph.
//
// All methods are safe to call on a nil *Metrics, so components can take an
// optional collector without guarding every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes recorded on QueriesTotal.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeAbandoned = "abandoned"
)

// Metrics groups the instruments registered against one registry.
type Metrics struct {
	// QueriesTotal counts finished queries by matching mode and outcome.
	QueriesTotal *prometheus.CounterVec

	// QueryDuration measures the time from evaluation to stream end.
	QueryDuration *prometheus.HistogramVec

	// ElementsEmitted counts elements handed to callers, by class.
	ElementsEmitted *prometheus.CounterVec

	// CandidateLookups counts calls into the candidate source, by operation.
	CandidateLookups *prometheus.CounterVec

	// BreakerState tracks the storage circuit breaker (0 closed, 1 half-open, 2 open).
	BreakerState *prometheus.GaugeVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers the seedgraph instruments with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		QueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seedgraph_queries_total",
				Help: "Total number of finished queries",
			},
			[]string{"mode", "outcome"},
		),
		QueryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seedgraph_query_duration_seconds",
				Help:    "Duration of queries from evaluation to the end of the result stream",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"mode"},
		),
		ElementsEmitted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seedgraph_elements_emitted_total",
				Help: "Total number of elements returned by queries",
			},
			[]string{"class"},
		),
		CandidateLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seedgraph_candidate_lookups_total",
				Help: "Total number of candidate source calls",
			},
			[]string{"op"},
		),
		BreakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "seedgraph_storage_breaker_state",
				Help: "Storage circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seedgraph_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seedgraph_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// ObserveQuery records a finished query.
func (m *Metrics) ObserveQuery(mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(mode, outcome).Inc()
	m.QueryDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// Emitted records one element returned to a caller.
func (m *Metrics) Emitted(class string) {
	if m == nil {
		return
	}
	m.ElementsEmitted.WithLabelValues(class).Inc()
}

// Lookup records one call into the candidate source.
func (m *Metrics) Lookup(op string) {
	if m == nil {
		return
	}
	m.CandidateLookups.WithLabelValues(op).Inc()
}

// SetBreakerState records the state of the named circuit breaker.
func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(state)
}

// ObserveHTTP records a served HTTP request.
func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
