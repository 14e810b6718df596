// Package telemetry provides application-level observability for the Ekkle back office.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<EKKLE_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Admin audit recorder outcomes and shipper failures
//   - Feature flag evaluations by lookup source
//   - Integration probe latency, outcome counters and an up/down gauge
//   - Onboarding completions
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/admin/settings/:key)
// rather than the raw request URL. Integration labels come from the fixed probe
// registry, never from request input.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Audit outcome labels for AuditRecordsTotal.
const (
	AuditOutcomeRecorded = "recorded"
	AuditOutcomeInvalid  = "invalid"
	AuditOutcomeFailed   = "failed"
)

// Admin audit metrics.
//
// AuditRecordsTotal counts every call to the audit recorder by outcome. Recording is
// best-effort, so a rising "failed" series is the only signal that privileged actions
// are going unrecorded.
//
// Example PromQL queries:
//   - Alert expression:  increase(admin_audit_records_total{outcome="failed"}[15m]) > 0
//
// AuditShipFailuresTotal counts entries that were persisted but could not be forwarded
// to one or more external shippers (file, webhook, S3).
var (
	AuditRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_audit_records_total",
			Help: "Total number of admin audit record attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	AuditShipFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_audit_ship_failures_total",
			Help: "Total number of audit entries that failed to reach an external shipper.",
		},
	)
)

// FlagEvaluationsTotal counts feature flag lookups by where the flag came from:
// "cache", "db", or "error" when neither could serve it.
var FlagEvaluationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "feature_flag_evaluations_total",
		Help: "Total number of feature flag evaluations, by lookup source.",
	},
	[]string{"source"},
)

// Integration health metrics.
//
// IntegrationCheckDuration observes the wall-clock probe latency per integration.
// IntegrationChecksTotal counts checks by integration and resulting status.
// IntegrationUp is 1 while the last check was healthy and 0 otherwise.
//
// Example PromQL queries:
//   - Integrations currently failing:  integration_up == 0
//   - Probe p95:                       histogram_quantile(0.95, sum by (integration, le) (rate(integration_check_duration_seconds_bucket[1h])))
var (
	IntegrationCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "integration_check_duration_seconds",
			Help:    "Duration of a single integration health probe.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"integration"},
	)

	IntegrationChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_checks_total",
			Help: "Total number of integration health checks, by integration and resulting status.",
		},
		[]string{"integration", "status"},
	)

	IntegrationUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "integration_up",
			Help: "Whether the last health check of an integration was healthy (1) or not (0).",
		},
		[]string{"integration"},
	)
)

// OnboardingCompletionsTotal is incremented once per church, after detection has
// written the row that first stamps all four onboarding steps complete.
var OnboardingCompletionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "onboarding_completions_total",
		Help: "Total number of churches that completed onboarding.",
	},
)

// DBOpenConnections tracks the number of open connections held by the sql.DB pool.
// It is sampled every 30 seconds by StartDBStatsCollector.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector samples connection pool statistics every 30 seconds until ctx
// is cancelled or the database becomes unreachable.
func StartDBStatsCollector(ctx context.Context, db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.PingContext(ctx); err != nil {
					slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
					return
				}
				DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			}
		}
	}()
}
