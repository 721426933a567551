// Package metrics provides Prometheus metrics for the pulse dashboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exposed on /healthz.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// Backend store
	backendQueryDuration *prometheus.HistogramVec
	backendRowsFetched   *prometheus.CounterVec
	backendErrors        *prometheus.CounterVec

	// Aggregation output size per metric
	aggregateResultSize *prometheus.GaugeVec

	// Geolocation
	geoLookups       *prometheus.CounterVec
	geoCache         *prometheus.CounterVec
	geoBatchDuration prometheus.Histogram

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure rebuilds the global manager from opts on a fresh registry.
// Call it once at startup, before handlers read GetRegistry.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pulse",
		subsystem:        "dashboard",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint, method and status",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_errors_total",
		Help:        "HTTP responses with status >= 400 by endpoint and error type",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.backendQueryDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "backend_query_duration_milliseconds",
		Help:        "Latency of event reads against the backing store",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"store", "event_name"})

	m.backendRowsFetched = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "backend_rows_fetched_total",
		Help:        "Event rows read from the backing store",
		ConstLabels: m.constLabels,
	}, []string{"store", "event_name"})

	m.backendErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "backend_errors_total",
		Help:        "Failed reads against the backing store",
		ConstLabels: m.constLabels,
	}, []string{"store"})

	m.aggregateResultSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "aggregate_result_size",
		Help:        "Number of entries returned by the last computation of each metric",
		ConstLabels: m.constLabels,
	}, []string{"metric"})

	m.geoLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "geo_lookups_total",
		Help:        "IP addresses sent to the geolocation service by outcome",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.geoCache = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "geo_cache_requests_total",
		Help:        "Geolocation cache lookups by backend and result",
		ConstLabels: m.constLabels,
	}, []string{"backend", "result"})

	m.geoBatchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "geo_batch_duration_milliseconds",
		Help:        "Round trip time of geolocation batch requests",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_usage_bytes",
		Help:        "Current heap allocation in bytes",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutine_count",
		Help:        "Current number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		ConstLabels: m.constLabels,
	})
}

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP latency in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint counts an error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordBackendQuery records one successful store read.
func RecordBackendQuery(store, eventName string, latencyMs float64, rows int) {
	if eventName == "" {
		eventName = "any"
	}
	globalManager.backendQueryDuration.WithLabelValues(store, eventName).Observe(latencyMs)
	globalManager.backendRowsFetched.WithLabelValues(store, eventName).Add(float64(rows))
}

// RecordBackendError counts a failed store read.
func RecordBackendError(store string) {
	globalManager.backendErrors.WithLabelValues(store).Inc()
}

// UpdateAggregateResultSize stores the length of a metric's latest result.
func UpdateAggregateResultSize(metric string, size int) {
	globalManager.aggregateResultSize.WithLabelValues(metric).Set(float64(size))
}

// RecordGeoLookups counts IPs resolved ("success"), rejected ("fail") or
// lost to a transport error ("error").
func RecordGeoLookups(result string, n int) {
	if n <= 0 {
		return
	}
	globalManager.geoLookups.WithLabelValues(result).Add(float64(n))
}

// RecordGeoCache counts cache hits or misses for a cache backend.
func RecordGeoCache(backend, result string, n int) {
	if n <= 0 {
		return
	}
	globalManager.geoCache.WithLabelValues(backend, result).Add(float64(n))
}

// RecordGeoBatchDuration records a geolocation batch round trip.
func RecordGeoBatchDuration(latencyMs float64) {
	globalManager.geoBatchDuration.Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
