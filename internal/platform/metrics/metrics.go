package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	SessionsStartedTotal prometheus.Counter
	SessionsActive       prometheus.Gauge
	PlanDecisionsTotal   *prometheus.CounterVec

	AnalysesGeneratedTotal *prometheus.CounterVec
	ModelFailuresTotal     *prometheus.CounterVec
	ModelRequestDuration   *prometheus.HistogramVec
	ChatRequestsTotal      prometheus.Counter
	HandoutsGeneratedTotal prometheus.Counter

	RiskEscalationsTotal prometheus.Counter
	WarningsMergedTotal  *prometheus.CounterVec

	AuditEntriesTotal prometheus.Counter
	ExportsTotal      prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		SessionsStartedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "workflow",
			Name:      "sessions_started_total",
			Help:      "Total intake sessions started.",
		}),

		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "workflow",
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}),

		PlanDecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "workflow",
			Name:      "plan_decisions_total",
			Help:      "Final plan decisions by outcome (approved, modified, rejected).",
		}, []string{"decision"}),

		AnalysesGeneratedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "model",
			Name:      "analyses_generated_total",
			Help:      "Clinical analyses drafted, by advisor provider.",
		}, []string{"provider"}),

		ModelFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "model",
			Name:      "failures_total",
			Help:      "Model invocation failures by class (validation, transport).",
		}, []string{"reason"}),

		ModelRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "model",
			Name:      "request_duration_seconds",
			Help:      "Model invocation latency distribution by operation.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}, []string{"operation"}),

		ChatRequestsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "model",
			Name:      "chat_requests_total",
			Help:      "Free-form clinical questions answered.",
		}),

		HandoutsGeneratedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "model",
			Name:      "handouts_generated_total",
			Help:      "Patient handouts generated.",
		}),

		RiskEscalationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "workflow",
			Name:      "risk_escalations_total",
			Help:      "Analyses force-escalated to High by a deterministic warning.",
		}),

		WarningsMergedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "workflow",
			Name:      "warnings_merged_total",
			Help:      "Interaction warnings surfaced to reviewers, by source.",
		}, []string{"source"}),

		AuditEntriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries appended.",
		}),

		ExportsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "exports_total",
			Help:      "Compliance records exported.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
