// Package metrics exposes Prometheus collectors for the analysis pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	ResultOK         = "ok"
	ResultTransient  = "transient"
	ResultPermanent  = "permanent"
	ResultMalformed  = "malformed"
	PersistSaved     = "saved"
	PersistNoPayload = "saved_without_payload"
	PersistDegraded  = "degraded"
)

// Metrics holds the collectors shared by the AI client, the audit guard and
// the history read path. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	aiRequestsTotal   *prometheus.CounterVec
	aiAttemptsTotal   *prometheus.CounterVec
	aiRequestDuration prometheus.Histogram
	auditPersistTotal *prometheus.CounterVec
	historyFallbacks  prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() (*Metrics, error) {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on registry.
func NewWithRegistry(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		aiRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseesg_ai_requests_total",
				Help: "Analysis requests sent to the AI service, by final outcome",
			},
			[]string{"outcome"}, // success, timeout, unavailable, permanent, malformed
		),
		aiAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseesg_ai_attempts_total",
				Help: "Individual HTTP attempts against the AI service",
			},
			[]string{"result"},
		),
		aiRequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pulseesg_ai_request_duration_seconds",
				Help:    "Wall time of one analysis request including retries",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7min
			},
		),
		auditPersistTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseesg_audit_persist_total",
				Help: "Audit record writes by outcome",
			},
			[]string{"outcome"},
		),
		historyFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pulseesg_history_fallback_total",
				Help: "History reads served by the stable column set",
			},
		),
	}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.aiRequestsTotal,
		m.aiAttemptsTotal,
		m.aiRequestDuration,
		m.auditPersistTotal,
		m.historyFallbacks,
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordAIRequest(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.aiRequestsTotal.WithLabelValues(outcome).Inc()
	m.aiRequestDuration.Observe(seconds)
}

func (m *Metrics) RecordAIAttempt(result string) {
	if m == nil {
		return
	}
	m.aiAttemptsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordPersist(outcome string) {
	if m == nil {
		return
	}
	m.auditPersistTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordHistoryFallback() {
	if m == nil {
		return
	}
	m.historyFallbacks.Inc()
}
