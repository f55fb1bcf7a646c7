// Package metrics exports Prometheus metrics for the Coordinator pipeline
// and the Alert Engine scanners, grounded on the teacher's
// ai/metrics.PrometheusExporter shape (a registry-owning struct with one
// field per metric and Record*/Set* methods), trimmed to ConvergeAI's
// domain counters instead of the teacher's chat/tool/LLM-token set.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "convergeai"

// Exporter owns the Prometheus registry and every metric ConvergeAI
// records.
type Exporter struct {
	registry *prometheus.Registry

	turnLatency  *prometheus.HistogramVec
	turnRequests *prometheus.CounterVec

	agentErrors *prometheus.CounterVec

	groundingScore *prometheus.HistogramVec
	refusals       *prometheus.CounterVec

	alertsRaised *prometheus.CounterVec
	dedupHits    *prometheus.CounterVec

	sessionsActive prometheus.Gauge
}

var defaultLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// New builds an Exporter with its own registry.
func New() *Exporter {
	registry := prometheus.NewRegistry()

	e := &Exporter{
		registry: registry,
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "turn_latency_seconds",
			Help:      "Coordinator.Process latency in seconds",
			Buckets:   defaultLatencyBuckets,
		}, []string{"intent"}),
		turnRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "turns_total",
			Help:      "Total number of turns processed",
		}, []string{"intent", "status"}),
		agentErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "errors_total",
			Help:      "Total number of agent execution errors",
		}, []string{"intent"}),
		groundingScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "policy_agent",
			Name:      "grounding_score",
			Help:      "Grounding score of generated policy answers",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}, []string{}),
		refusals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy_agent",
			Name:      "refusals_total",
			Help:      "Total number of policy answers refused for insufficient grounding",
		}, []string{"reason"}),
		alertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "raised_total",
			Help:      "Total number of alerts raised by the scanners",
		}, []string{"type", "severity"}),
		dedupHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "dedup_hits_total",
			Help:      "Total number of alert raises suppressed by dedup",
		}, []string{"type"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of sessions with activity in the last idle-timeout window",
		}),
	}

	registry.MustRegister(
		e.turnLatency,
		e.turnRequests,
		e.agentErrors,
		e.groundingScore,
		e.refusals,
		e.alertsRaised,
		e.dedupHits,
		e.sessionsActive,
	)

	return e
}

// RecordTurn records one Coordinator.Process call.
func (e *Exporter) RecordTurn(intent string, latency time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		e.agentErrors.WithLabelValues(intent).Inc()
	}
	e.turnRequests.WithLabelValues(intent, status).Inc()
	e.turnLatency.WithLabelValues(intent).Observe(latency.Seconds())
}

// RecordGroundingScore records a policy agent answer's grounding score.
func (e *Exporter) RecordGroundingScore(score float32) {
	e.groundingScore.WithLabelValues().Observe(float64(score))
}

// RecordRefusal records a policy agent refusal and its reason.
func (e *Exporter) RecordRefusal(reason string) {
	e.refusals.WithLabelValues(reason).Inc()
}

// RecordAlertRaised records one alert created by a scanner.
func (e *Exporter) RecordAlertRaised(alertType, severity string) {
	e.alertsRaised.WithLabelValues(alertType, severity).Inc()
}

// RecordDedupHit records one alert raise suppressed by the dedup check.
func (e *Exporter) RecordDedupHit(alertType string) {
	e.dedupHits.WithLabelValues(alertType).Inc()
}

// SetActiveSessions sets the active-session gauge.
func (e *Exporter) SetActiveSessions(n int) {
	e.sessionsActive.Set(float64(n))
}

// Handler returns the HTTP handler serving this exporter's registry in
// Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
