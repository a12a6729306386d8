// Package metrics provides Prometheus metrics for the standings service.
package metrics

import (
	"fmt"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Sync ingestion
	updatesProcessed prometheus.Counter
	updatesDuplicate prometheus.Counter
	updatesRejected  *prometheus.CounterVec
	scoringLatency   prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Store and snapshots
	entitiesTotal           prometheus.Gauge
	storeUpdateLatency      prometheus.Histogram
	snapshotRebuildDuration prometheus.Histogram
	snapshotPublished       prometheus.Counter
	snapshotVersion         prometheus.Gauge
	snapshotLastUnix        prometheus.Gauge
	rollovers               prometheus.Counter

	// Queries
	leaderboardQueries      *prometheus.CounterVec
	leaderboardQueryLatency prometheus.Histogram
	leaderboardErrors       *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors and runtime
	errorsByComponent    *prometheus.CounterVec
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "standings",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.updatesProcessed = m.counter("updates_processed_total", "Sync updates applied to the entity store")
	m.updatesDuplicate = m.counter("updates_duplicate_total", "Sync updates dropped as duplicates")
	m.updatesRejected = m.counterVec("updates_rejected_total", "Sync updates rejected by validation", "reason")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Time to derive the composite overall score")

	m.queueSize = m.gauge("queue_size", "Current number of buffered sync updates")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of buffered sync updates")
	m.queueUtilization = m.gauge("queue_utilization", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Sync updates accepted by the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Sync updates handed to workers")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Sync updates refused by the queue")

	m.workerCount = m.gauge("worker_count", "Number of running sync workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time a worker spends on one update")
	m.workerErrors = m.counter("worker_errors_total", "Updates a worker failed to apply")

	m.entitiesTotal = m.gauge("entities_total", "Entities currently held by the store")
	m.storeUpdateLatency = m.histogram("store_update_latency_milliseconds", "Latency of a single store upsert")
	m.snapshotRebuildDuration = m.histogram("snapshot_rebuild_duration_milliseconds", "Time to build and publish a snapshot")
	m.snapshotPublished = m.counter("snapshot_published_total", "Snapshots published")
	m.snapshotVersion = m.gauge("snapshot_version", "Version of the latest published snapshot")
	m.snapshotLastUnix = m.gauge("snapshot_last_unixtime", "Unix time of the latest published snapshot")
	m.rollovers = m.counter("rollovers_total", "Period rollovers performed")

	m.leaderboardQueries = m.counterVec("queries_total", "Leaderboard queries by category and scope kind", "category", "scope")
	m.leaderboardQueryLatency = m.histogram("query_latency_milliseconds", "Leaderboard query latency")
	m.leaderboardErrors = m.counterVec("query_errors_total", "Failed leaderboard queries by error type", "error_type")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordUpdateProcessed increments the applied updates counter.
func RecordUpdateProcessed() { globalManager.updatesProcessed.Inc() }

// RecordUpdateDuplicate increments the duplicate updates counter.
func RecordUpdateDuplicate() { globalManager.updatesDuplicate.Inc() }

// RecordUpdateRejected counts an update refused for reason.
func RecordUpdateRejected(reason string) { globalManager.updatesRejected.WithLabelValues(reason).Inc() }

// RecordScoringLatency records composite scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) { globalManager.scoringLatency.Observe(latencyMs) }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// UpdateEntitiesTotal sets the number of stored entities.
func UpdateEntitiesTotal(count int) { globalManager.entitiesTotal.Set(float64(count)) }

// RecordStoreUpdateLatency records a store upsert latency.
func RecordStoreUpdateLatency(latencyMs float64) { globalManager.storeUpdateLatency.Observe(latencyMs) }

// RecordSnapshotPublished records a published snapshot.
func RecordSnapshotPublished(version uint64, unix int64, rebuildMs float64) {
	globalManager.snapshotPublished.Inc()
	globalManager.snapshotVersion.Set(float64(version))
	globalManager.snapshotLastUnix.Set(float64(unix))
	globalManager.snapshotRebuildDuration.Observe(rebuildMs)
}

// RecordRollover increments the rollover counter.
func RecordRollover() { globalManager.rollovers.Inc() }

// RecordLeaderboardQuery counts a successful query and its latency.
func RecordLeaderboardQuery(category, scope string, latencyMs float64) {
	globalManager.leaderboardQueries.WithLabelValues(category, scope).Inc()
	globalManager.leaderboardQueryLatency.Observe(latencyMs)
}

// RecordLeaderboardError counts a failed query.
func RecordLeaderboardError(errorType string) {
	globalManager.leaderboardErrors.WithLabelValues(errorType).Inc()
}

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
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// SampleRuntime refreshes the memory and goroutine gauges.
func SampleRuntime() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	globalManager.systemMemoryUsage.Set(float64(ms.HeapInuse))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Value reads the current value of a counter or gauge family from the
// global registry, summing across label sets. The name is the short name
// without namespace and subsystem.
func Value(name string) (float64, error) {
	full := prometheus.BuildFQName(globalManager.namespace, globalManager.subsystem, name)
	families, err := customRegistry.Gather()
	if err != nil {
		return 0, err
	}
	for _, f := range families {
		if f.GetName() != full {
			continue
		}
		var sum float64
		for _, m := range f.GetMetric() {
			sum += sampleValue(f.GetType(), m)
		}
		return sum, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownMetric, full)
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return 0
	}
}
