package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "procurement"

// Metrics collects application metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	decisions          *prometheus.CounterVec
	ruleWrites         prometheus.Counter
	approvalResolution *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
}

// NewMetrics registers the procurement collectors plus Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Order decisions by outcome.",
		}, []string{"status"}),
		ruleWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_writes_total",
			Help:      "Site rule documents written.",
		}),
		approvalResolution: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_resolutions_total",
			Help:      "Pending approvals resolved by outcome.",
		}, []string{"status"}),
		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vendor_evaluation_duration_seconds",
			Help:      "Time spent loading, filtering and selecting vendors.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.decisions,
		m.ruleWrites,
		m.approvalResolution,
		m.evaluationDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordDecision counts a decision outcome.
func (m *Metrics) RecordDecision(status string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(status).Inc()
}

// RecordRuleWrite counts a stored rules document.
func (m *Metrics) RecordRuleWrite() {
	if m == nil {
		return
	}
	m.ruleWrites.Inc()
}

// RecordApprovalResolution counts an approve or reject of a pending order.
func (m *Metrics) RecordApprovalResolution(status string) {
	if m == nil {
		return
	}
	m.approvalResolution.WithLabelValues(status).Inc()
}

// ObserveEvaluation records how long a vendor evaluation took.
func (m *Metrics) ObserveEvaluation(d time.Duration) {
	if m == nil {
		return
	}
	m.evaluationDuration.Observe(d.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the Prometheus exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
