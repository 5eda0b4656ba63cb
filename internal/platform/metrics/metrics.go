// Package metrics registers the Prometheus instruments shared across the
// service. A single Metrics value is constructed at startup and injected.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	RateLimitRejections prometheus.Counter
	AuditEvents         *prometheus.CounterVec
	AuditWriteFailures  prometheus.Counter
	PHIDetections       *prometheus.CounterVec
	RetentionSweeps     *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetdocs_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vetdocs_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimitRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vetdocs_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		AuditEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetdocs_audit_events_total",
			Help: "Audit records written, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		AuditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vetdocs_audit_write_failures_total",
			Help: "Audit writes that failed against the store.",
		}),
		PHIDetections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetdocs_phi_detections_total",
			Help: "PHI detector positives by category.",
		}, []string{"category"}),
		RetentionSweeps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetdocs_retention_sweep_results_total",
			Help: "Retention sweep attempts by outcome.",
		}, []string{"outcome"}),
	}
}
