// Package metrics provides Prometheus metrics for the beatpage profile service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the profile service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Document store metrics
	storeOperations *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec

	// Profile page metrics
	pagesMounted    prometheus.Gauge
	profileLoads    *prometheus.CounterVec
	profileUpdates  *prometheus.CounterVec
	tracksAdded     *prometheus.CounterVec
	payments        *prometheus.CounterVec
	staleLoads      prometheus.Counter
	blobArchives    *prometheus.CounterVec
	blobArchiveSize prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
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
		namespace:        "beatpage",
		subsystem:        "profile",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		constLabels:      map[string]string{},
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

	m.storeOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_operations_total",
		Help:        "Document store calls by collection, operation and result",
		ConstLabels: m.constLabels,
	}, []string{"collection", "operation", "result"})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_latency_milliseconds",
		Help:        "Document store call latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"collection", "operation"})

	m.pagesMounted = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "pages_mounted",
		Help:        "Number of profile pages currently mounted",
		ConstLabels: m.constLabels,
	})

	m.profileLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "loads_total",
		Help:        "Profile loads by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.profileUpdates = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "updates_total",
		Help:        "Partial profile updates by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.tracksAdded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "tracks_added_total",
		Help:        "Tracks appended by source (upload, drop) and result",
		ConstLabels: m.constLabels,
	}, []string{"source", "result"})

	m.payments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "payments_total",
		Help:        "Balance top-ups by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.staleLoads = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stale_loads_total",
		Help:        "Loads discarded because a newer load superseded them",
		ConstLabels: m.constLabels,
	})

	m.blobArchives = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "blob_archives_total",
		Help:        "Uploaded audio archive attempts by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.blobArchiveSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "blob_archive_bytes",
		Help:        "Size of archived uploads in bytes",
		Buckets:     prometheus.ExponentialBuckets(64*1024, 4, 8),
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_errors_total",
			Help:        "HTTP error responses by endpoint, method and error type",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// RecordStoreOperation records one document store call.
func RecordStoreOperation(collection, operation string, ok bool, latencyMs float64) {
	globalManager.storeOperations.WithLabelValues(collection, operation, result(ok)).Inc()
	globalManager.storeLatency.WithLabelValues(collection, operation).Observe(latencyMs)
}

// UpdatePagesMounted sets the mounted pages gauge.
func UpdatePagesMounted(count int) {
	globalManager.pagesMounted.Set(float64(count))
}

// RecordProfileLoad records a settled load.
func RecordProfileLoad(ok bool) {
	globalManager.profileLoads.WithLabelValues(result(ok)).Inc()
}

// RecordStaleLoad records a load whose result was discarded.
func RecordStaleLoad() {
	globalManager.staleLoads.Inc()
}

// RecordProfileUpdate records a partial profile update.
func RecordProfileUpdate(ok bool) {
	globalManager.profileUpdates.WithLabelValues(result(ok)).Inc()
}

// RecordTrackAdded records a track append attempt.
func RecordTrackAdded(source string, ok bool) {
	globalManager.tracksAdded.WithLabelValues(source, result(ok)).Inc()
}

// RecordPayment records a balance top-up attempt.
func RecordPayment(ok bool) {
	globalManager.payments.WithLabelValues(result(ok)).Inc()
}

// RecordBlobArchive records an upload archive attempt.
func RecordBlobArchive(ok bool, size int64) {
	globalManager.blobArchives.WithLabelValues(result(ok)).Inc()
	if ok && size >= 0 {
		globalManager.blobArchiveSize.Observe(float64(size))
	}
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records errors by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom registry used for all metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
