package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics shared across the application.
// Construct once in main and inject; promauto registers on the default
// registry so /metrics picks everything up.
type Metrics struct {
	WorkflowsStarted    prometheus.Counter
	Transitions         *prometheus.CounterVec
	IdempotentReplays   prometheus.Counter
	TimeoutsFired       prometheus.Counter
	Escalations         prometheus.Counter
	KillSwitchRuns      *prometheus.CounterVec
	AdapterLatency      *prometheus.HistogramVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		WorkflowsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_workflows_started_total",
			Help: "Total number of onboarding workflows created.",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_workflow_transitions_total",
			Help: "Workflow status transitions by resulting status.",
		}, []string{"status"}),
		IdempotentReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_idempotent_replays_total",
			Help: "Incoming events answered from the event log without reprocessing.",
		}),
		TimeoutsFired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_timeouts_fired_total",
			Help: "Bounded waits that expired before the awaited signal arrived.",
		}),
		Escalations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_escalations_total",
			Help: "Escalation notifications emitted to management.",
		}),
		KillSwitchRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_killswitch_runs_total",
			Help: "Kill switch invocations by outcome (completed, partial, noop).",
		}, []string{"outcome"}),
		AdapterLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onboarding_adapter_latency_seconds",
			Help:    "External adapter call latency by adapter name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"adapter"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onboarding_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// RecordTransition counts a committed workflow transition.
func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}

// ObserveAdapterLatency records one adapter call duration.
func (m *Metrics) ObserveAdapterLatency(adapter string, seconds float64) {
	if m == nil {
		return
	}
	m.AdapterLatency.WithLabelValues(adapter).Observe(seconds)
}

// RecordKillSwitch counts a kill switch run by outcome.
func (m *Metrics) RecordKillSwitch(outcome string) {
	if m == nil {
		return
	}
	m.KillSwitchRuns.WithLabelValues(outcome).Inc()
}
