package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for TestShift.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Item metrics
	itemsMigrated *prometheus.CounterVec
	itemsFailed   *prometheus.CounterVec
	itemDuration  *prometheus.HistogramVec

	// API metrics
	apiCalls    *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
	apiErrors   *prometheus.CounterVec

	// Error metrics
	errorsByCategory *prometheus.CounterVec

	// Throttling metrics
	rateLimitHits prometheus.Counter
	retries       *prometheus.CounterVec

	// System metrics
	activeRuns  prometheus.Gauge
	queuedItems prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Run metrics
		runsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of migration runs started",
			},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of migration runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of migration runs in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		// Item metrics
		itemsMigrated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_migrated_total",
				Help:      "Total number of items migrated, by item type",
			},
			[]string{"item_type"},
		),
		itemsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_failed_total",
				Help:      "Total number of items that failed to migrate, by item type",
			},
			[]string{"item_type"},
		),
		itemDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "item_duration_seconds",
				Help:      "Duration of single item migrations in seconds",
				Buckets:   buckets,
			},
			[]string{"item_type"},
		),

		// API metrics
		apiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_calls_total",
				Help:      "Total number of backend API calls",
			},
			[]string{"product", "operation"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_call_duration_seconds",
				Help:      "Duration of backend API calls in seconds",
				Buckets:   buckets,
			},
			[]string{"product", "operation"},
		),
		apiErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of failed backend API calls",
			},
			[]string{"product", "operation"},
		),

		// Error metrics
		errorsByCategory: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_category_total",
				Help:      "Total number of classified errors by category",
			},
			[]string{"category"},
		),

		// Throttling metrics
		rateLimitHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of rate-limit responses from the backend",
			},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of retried API calls",
			},
			[]string{"product"},
		),

		// System metrics
		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Current number of active migration runs",
			},
		),
		queuedItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queued_items",
				Help:      "Current number of items waiting to be migrated",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.itemsMigrated,
		m.itemsFailed,
		m.itemDuration,
		m.apiCalls,
		m.apiDuration,
		m.apiErrors,
		m.errorsByCategory,
		m.rateLimitHits,
		m.retries,
		m.activeRuns,
		m.queuedItems,
	)

	return m, nil
}

// Run Metrics

// RecordRunStarted increments the counter for started runs.
func (m *Metrics) RecordRunStarted() {
	if m.runsStarted == nil {
		return
	}
	m.runsStarted.Inc()
	m.activeRuns.Inc()
}

// RecordRunCompleted records a completed run with its status and duration.
func (m *Metrics) RecordRunCompleted(status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeRuns.Dec()
}

// Item Metrics

// RecordItemMigrated records one successfully migrated item.
func (m *Metrics) RecordItemMigrated(itemType string, duration time.Duration) {
	if m.itemsMigrated == nil {
		return
	}
	m.itemsMigrated.WithLabelValues(itemType).Inc()
	m.itemDuration.WithLabelValues(itemType).Observe(duration.Seconds())
}

// RecordItemFailed records one item that failed to migrate.
func (m *Metrics) RecordItemFailed(itemType string) {
	if m.itemsFailed == nil {
		return
	}
	m.itemsFailed.WithLabelValues(itemType).Inc()
}

// API Metrics

// RecordAPICall records a backend API call with its duration.
func (m *Metrics) RecordAPICall(product, operation string, duration time.Duration) {
	if m.apiCalls == nil {
		return
	}
	m.apiCalls.WithLabelValues(product, operation).Inc()
	m.apiDuration.WithLabelValues(product, operation).Observe(duration.Seconds())
}

// RecordAPIError records a failed backend API call.
func (m *Metrics) RecordAPIError(product, operation string) {
	if m.apiErrors == nil {
		return
	}
	m.apiErrors.WithLabelValues(product, operation).Inc()
}

// Error Metrics

// RecordError records a classified error by category.
func (m *Metrics) RecordError(category string) {
	if m.errorsByCategory == nil {
		return
	}
	m.errorsByCategory.WithLabelValues(category).Inc()
}

// Throttling Metrics

// RecordRateLimitHit records one rate-limit response from the backend.
func (m *Metrics) RecordRateLimitHit() {
	if m.rateLimitHits == nil {
		return
	}
	m.rateLimitHits.Inc()
}

// RecordRetry records one retried API call.
func (m *Metrics) RecordRetry(product string) {
	if m.retries == nil {
		return
	}
	m.retries.WithLabelValues(product).Inc()
}

// System Metrics

// SetActiveRuns sets the current number of active runs.
func (m *Metrics) SetActiveRuns(count float64) {
	if m.activeRuns == nil {
		return
	}
	m.activeRuns.Set(count)
}

// SetQueuedItems sets the current number of queued items.
func (m *Metrics) SetQueuedItems(count float64) {
	if m.queuedItems == nil {
		return
	}
	m.queuedItems.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
