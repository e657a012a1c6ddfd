// Package metrics provides Prometheus metrics for the eventdex indexing service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the eventdex service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Indexing pipeline
	documentsIndexed   prometheus.Counter
	documentsRejected  *prometheus.CounterVec
	documentsFailed    prometheus.Counter
	documentsDeindexed prometheus.Counter
	reindexLatency     prometheus.Histogram
	batchDuration      prometheus.Histogram

	// Geocoding
	geocodeRequests     *prometheus.CounterVec
	geocodeLatency      *prometheus.HistogramVec
	geocodeCacheHits    prometheus.Counter
	geocodeCacheMisses  prometheus.Counter
	geocodeCacheEntries prometheus.Gauge

	// Repository
	indexRecords            prometheus.Gauge
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Change queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	changesCoalesced   prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

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

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "eventdex",
		subsystem:        "index",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.documentsIndexed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "documents_indexed_total",
		Help:      "Total number of documents written to the event index",
	})

	m.documentsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "documents_rejected_total",
		Help:      "Total number of documents rejected as non-events, by reason",
	}, []string{"reason"})

	m.documentsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "documents_failed_total",
		Help:      "Total number of reindex attempts that failed to persist",
	})

	m.documentsDeindexed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "documents_deindexed_total",
		Help:      "Total number of records removed from the event index",
	})

	m.reindexLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reindex_latency_milliseconds",
		Help:      "Latency of a single document reindex in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.batchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_duration_seconds",
		Help:      "Duration of bulk reindex runs in seconds",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	m.geocodeRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "geocode_requests_total",
		Help:      "Upstream geocoding requests by provider and outcome",
	}, []string{"provider", "outcome"})

	m.geocodeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "geocode_latency_milliseconds",
		Help:      "Upstream geocoding latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"provider"})

	m.geocodeCacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "geocode_cache_hits_total",
		Help:      "Geocode lookups answered from cache",
	})

	m.geocodeCacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "geocode_cache_misses_total",
		Help:      "Geocode lookups that required an upstream call",
	})

	m.geocodeCacheEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "geocode_cache_entries",
		Help:      "Current number of geocode cache entries",
	})

	m.indexRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records",
		Help:      "Current number of records in the event index",
	})

	m.repositoryUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_update_latency_milliseconds",
		Help:      "Event index write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.repositoryQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_query_latency_milliseconds",
		Help:      "Event index query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of pending change notifications",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum number of pending change notifications",
	})

	m.queueEnqueue = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Change notifications accepted by the queue",
	})

	m.queueDequeue = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Change notifications handed to workers",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Change notifications dropped because the queue was full or closed",
	})

	m.changesCoalesced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "changes_coalesced_total",
		Help:      "Change notifications merged into an already pending change",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of reindex workers",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Time a worker spends on one change notification",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Change notifications whose processing returned an error",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and error type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Indexing pipeline.

// RecordDocumentIndexed increments the indexed documents counter.
func RecordDocumentIndexed() {
	globalManager.documentsIndexed.Inc()
}

// RecordDocumentRejected increments the rejected documents counter for reason.
func RecordDocumentRejected(reason string) {
	globalManager.documentsRejected.WithLabelValues(reason).Inc()
}

// RecordDocumentFailed increments the failed reindex counter.
func RecordDocumentFailed() {
	globalManager.documentsFailed.Inc()
}

// RecordDocumentDeindexed increments the removed records counter.
func RecordDocumentDeindexed() {
	globalManager.documentsDeindexed.Inc()
}

// RecordReindexLatency records single document reindex latency in milliseconds.
func RecordReindexLatency(latencyMs float64) {
	globalManager.reindexLatency.Observe(latencyMs)
}

// RecordBatchDuration records the duration of a bulk reindex run in seconds.
func RecordBatchDuration(seconds float64) {
	globalManager.batchDuration.Observe(seconds)
}

// Geocoding.

// RecordGeocodeRequest records an upstream request outcome: found, not_found, error or out_of_bounds.
func RecordGeocodeRequest(provider, outcome string) {
	globalManager.geocodeRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordGeocodeLatency records upstream geocoding latency in milliseconds.
func RecordGeocodeLatency(provider string, latencyMs float64) {
	globalManager.geocodeLatency.WithLabelValues(provider).Observe(latencyMs)
}

// RecordGeocodeCacheHit increments the cache hit counter.
func RecordGeocodeCacheHit() {
	globalManager.geocodeCacheHits.Inc()
}

// RecordGeocodeCacheMiss increments the cache miss counter.
func RecordGeocodeCacheMiss() {
	globalManager.geocodeCacheMisses.Inc()
}

// UpdateGeocodeCacheEntries sets the current cache size.
func UpdateGeocodeCacheEntries(count int) {
	globalManager.geocodeCacheEntries.Set(float64(count))
}

// Repository.

// UpdateIndexRecords sets the number of records in the event index.
func UpdateIndexRecords(count int) {
	globalManager.indexRecords.Set(float64(count))
}

// RecordRepositoryUpdateLatency records repository write latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// Change queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordChangeCoalesced increments the coalesced change counter.
func RecordChangeCoalesced() {
	globalManager.changesCoalesced.Inc()
}

// Workers.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
