// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Safety metrics
	SafetyChecks       *prometheus.CounterVec
	SafetyDegradations *prometheus.CounterVec
	SafetyCheckLatency prometheus.Histogram

	// RPC metrics
	RPCSendAttempts      *prometheus.CounterVec
	RPCHealthLatency     *prometheus.HistogramVec
	FeeEstimateFallbacks prometheus.Counter
	CustomRPCChanges     *prometheus.CounterVec

	// Execution metrics
	SwapBuilds  *prometheus.CounterVec
	SwapSubmits *prometheus.CounterVec

	// Order monitor metrics
	SweepRuns         *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
	OrdersChecked     prometheus.Counter
	OrdersFlagged     prometheus.Counter
	OrderErrors       prometheus.Counter
	StatusTransitions *prometheus.CounterVec

	// Scanner metrics
	ScannerCandidates *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_token_sniper"
	}

	return &Metrics{
		SafetyChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "checks_total",
			Help:      "Total number of safety checks by chain family and grade",
		}, []string{"family", "grade"}),
		SafetyDegradations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "degraded_checks_total",
			Help:      "Sub-checks that fell back to conservative values",
		}, []string{"check"}),
		SafetyCheckLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "check_duration_seconds",
			Help:      "Full safety check duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		RPCSendAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "send_attempts_total",
			Help:      "Transaction submission attempts by endpoint kind and outcome",
		}, []string{"endpoint", "outcome"}),
		RPCHealthLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "health_latency_seconds",
			Help:      "Health probe round-trip latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"endpoint"}),
		FeeEstimateFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "fee_estimate_fallbacks_total",
			Help:      "Priority fee estimates served from the hardcoded ladder",
		}),
		CustomRPCChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "custom_endpoint_changes_total",
			Help:      "Custom RPC activation attempts by result",
		}, []string{"result"}),

		SwapBuilds: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "swap_builds_total",
			Help:      "Swap transaction builds by priority level and result",
		}, []string{"level", "result"}),
		SwapSubmits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "swap_submits_total",
			Help:      "Swap submissions by result",
		}, []string{"result"}),

		SweepRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "sweeps_total",
			Help:      "Monitor sweeps by status",
		}, []string{"status"}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "sweep_duration_seconds",
			Help:      "Monitor sweep duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120},
		}),
		OrdersChecked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "orders_checked_total",
			Help:      "Orders evaluated by the monitor",
		}),
		OrdersFlagged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "orders_flagged_total",
			Help:      "Orders moved to a READY state",
		}),
		OrderErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "order_errors_total",
			Help:      "Per-order failures during sweeps",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "status_transitions_total",
			Help:      "Order status transitions by target status",
		}, []string{"to"}),

		ScannerCandidates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "candidates_total",
			Help:      "Scanned tokens by outcome",
		}, []string{"outcome"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP API requests by route and status code",
		}, []string{"route", "code"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSafetyCheck records a completed safety report.
func RecordSafetyCheck(family, grade string, seconds float64) {
	DefaultMetrics.SafetyChecks.WithLabelValues(family, grade).Inc()
	DefaultMetrics.SafetyCheckLatency.Observe(seconds)
}

// RecordSafetyDegradation records a sub-check that fell back to conservative values.
func RecordSafetyDegradation(check string) {
	DefaultMetrics.SafetyDegradations.WithLabelValues(check).Inc()
}

// RecordSendAttempt records one transaction submission attempt.
func RecordSendAttempt(endpoint, outcome string) {
	DefaultMetrics.RPCSendAttempts.WithLabelValues(endpoint, outcome).Inc()
}

// RecordHealthLatency records a health probe.
func RecordHealthLatency(endpoint string, seconds float64) {
	DefaultMetrics.RPCHealthLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordFeeFallback records a fee estimate served from the fallback ladder.
func RecordFeeFallback() {
	DefaultMetrics.FeeEstimateFallbacks.Inc()
}

// RecordCustomRPCChange records a custom endpoint activation attempt.
func RecordCustomRPCChange(result string) {
	DefaultMetrics.CustomRPCChanges.WithLabelValues(result).Inc()
}

// RecordSwapBuild records a swap build attempt.
func RecordSwapBuild(level, result string) {
	DefaultMetrics.SwapBuilds.WithLabelValues(level, result).Inc()
}

// RecordSwapSubmit records a swap submission.
func RecordSwapSubmit(result string) {
	DefaultMetrics.SwapSubmits.WithLabelValues(result).Inc()
}

// RecordSweep records a monitor sweep.
func RecordSweep(status string, seconds float64, checked, flagged, errors int) {
	DefaultMetrics.SweepRuns.WithLabelValues(status).Inc()
	DefaultMetrics.SweepDuration.Observe(seconds)
	DefaultMetrics.OrdersChecked.Add(float64(checked))
	DefaultMetrics.OrdersFlagged.Add(float64(flagged))
	DefaultMetrics.OrderErrors.Add(float64(errors))
}

// RecordTransition records an order status change.
func RecordTransition(to string) {
	DefaultMetrics.StatusTransitions.WithLabelValues(to).Inc()
}

// RecordScannerCandidate records the outcome of one scanned token.
func RecordScannerCandidate(outcome string) {
	DefaultMetrics.ScannerCandidates.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an API request.
func RecordHTTPRequest(route, code string) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
