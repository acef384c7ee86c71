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
	// Scan metrics
	ScansStarted   prometheus.Counter
	ScansCompleted *prometheus.CounterVec
	ScanDuration   prometheus.Histogram
	SymbolsScanned prometheus.Counter

	// Backtest metrics
	BacktestsRun     *prometheus.CounterVec
	BacktestDuration *prometheus.HistogramVec
	RunsPersisted    prometheus.Counter

	// Quote metrics
	QuotesReceived  *prometheus.CounterVec
	QuoteFeedResets prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "op"
	}

	return &Metrics{
		// Scan metrics
		ScansStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "scans_started_total",
			Help:      "Total number of scans started",
		}),
		ScansCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "scans_completed_total",
			Help:      "Total number of scans completed by status",
		}, []string{"status"}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Whole-scan duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SymbolsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "symbols_scanned_total",
			Help:      "Total number of symbols evaluated",
		}),

		// Backtest metrics
		BacktestsRun: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtests run by frequency",
		}, []string{"frequency"}),
		BacktestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest simulation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"frequency"}),
		RunsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_persisted_total",
			Help:      "Total number of backtest runs persisted",
		}),

		// Quote metrics
		QuotesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "quotes_received_total",
			Help:      "Total number of quotes received by symbol",
		}, []string{"symbol"}),
		QuoteFeedResets: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "feed_resets_total",
			Help:      "Total number of quote feed reconnects",
		}),

		// Database metrics
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

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordScanStarted increments the scans started counter.
func RecordScanStarted() {
	DefaultMetrics.ScansStarted.Inc()
}

// RecordScanCompleted records a finished scan with its duration.
func RecordScanCompleted(status string, durationSeconds float64) {
	DefaultMetrics.ScansCompleted.WithLabelValues(status).Inc()
	DefaultMetrics.ScanDuration.Observe(durationSeconds)
}

// RecordSymbolScanned increments the symbols scanned counter.
func RecordSymbolScanned() {
	DefaultMetrics.SymbolsScanned.Inc()
}

// RecordBacktest records a backtest run with its duration.
func RecordBacktest(frequency string, durationSeconds float64) {
	DefaultMetrics.BacktestsRun.WithLabelValues(frequency).Inc()
	DefaultMetrics.BacktestDuration.WithLabelValues(frequency).Observe(durationSeconds)
}

// RecordRunPersisted increments the runs persisted counter.
func RecordRunPersisted() {
	DefaultMetrics.RunsPersisted.Inc()
}

// RecordQuote increments the quotes received counter for a symbol.
func RecordQuote(symbol string) {
	DefaultMetrics.QuotesReceived.WithLabelValues(symbol).Inc()
}

// RecordFeedReset increments the quote feed reconnect counter.
func RecordFeedReset() {
	DefaultMetrics.QuoteFeedResets.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
