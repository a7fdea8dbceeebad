// Package metrics provides Prometheus metrics for the unirank rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Slot capacity of the score domain, used for the occupancy ratio gauge.
const slotCapacity = 90000

// Manager manages all Prometheus metrics for the rating service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Batch ingestion metrics
	batchesProcessed prometheus.Counter
	batchSize        prometheus.Histogram
	ratingsApplied   prometheus.Counter
	ratingsSkipped   prometheus.Counter

	// Allocator metrics
	allocationDeviation prometheus.Histogram
	allocatorExhausted  prometheus.Counter

	// Store metrics
	lockWaitLatency prometheus.Histogram
	lockTimeouts    prometheus.Counter
	persistLatency  prometheus.Histogram
	storeItems      prometheus.Gauge
	storeRatedItems prometheus.Gauge
	storeRatings    prometheus.Gauge
	slotOccupancy   prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Presence metrics
	presenceActive prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "unirank",
		subsystem:        "ratings",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.batchesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_processed_total",
		Help:      "Total number of rating batches applied to the ledger",
	})

	m.batchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_size",
		Help:      "Histogram of submitted batch sizes",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
	})

	m.ratingsApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ratings_applied_total",
		Help:      "Total number of ratings applied to item records",
	})

	m.ratingsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ratings_skipped_total",
		Help:      "Total number of batch entries skipped by per-entry validation",
	})

	m.allocationDeviation = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "allocation_deviation",
		Help:      "Absolute distance between the weighted target and the assigned unique score",
		Buckets:   []float64{0, 0.0001, 0.001, 0.01, 0.1, 0.25, 0.5, 1},
	})

	m.allocatorExhausted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "allocator_exhausted_total",
		Help:      "Times the allocator found no free slot and degraded to a duplicate placement",
	})

	m.lockWaitLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lock_wait_milliseconds",
		Help:      "Time spent waiting for the exclusive store lock in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.lockTimeouts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lock_timeouts_total",
		Help:      "Total number of bounded lock waits that expired",
	})

	m.persistLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_milliseconds",
		Help:      "Ledger persist duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeItems = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_items",
		Help:      "Total number of known items in the ledger",
	})

	m.storeRatedItems = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_rated_items",
		Help:      "Number of items holding a unique score",
	})

	m.storeRatings = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_ratings",
		Help:      "Total number of ratings ever recorded",
	})

	m.slotOccupancy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "slot_occupancy_ratio",
		Help:      "Fraction of the 90,000 representable unique scores currently assigned",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.presenceActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "presence_active_sessions",
		Help:      "Number of client sessions currently considered active",
	})
}

// RecordBatch records one applied batch and its size.
func RecordBatch(size int) {
	if globalManager.enabled {
		globalManager.batchesProcessed.Inc()
		globalManager.batchSize.Observe(float64(size))
	}
}

// RecordRatingApplied increments the applied-ratings counter.
func RecordRatingApplied() {
	if globalManager.enabled {
		globalManager.ratingsApplied.Inc()
	}
}

// RecordRatingSkipped increments the skipped-entries counter.
func RecordRatingSkipped() {
	if globalManager.enabled {
		globalManager.ratingsSkipped.Inc()
	}
}

// RecordAllocationDeviation observes the absolute target-to-slot distance.
func RecordAllocationDeviation(absDeviation float64) {
	if globalManager.enabled {
		globalManager.allocationDeviation.Observe(absDeviation)
	}
}

// RecordAllocatorExhaustion counts a full-domain allocation failure.
func RecordAllocatorExhaustion() {
	if globalManager.enabled {
		globalManager.allocatorExhausted.Inc()
	}
}

// RecordLockWait observes time spent waiting on the store lock.
func RecordLockWait(latencyMs float64) {
	if globalManager.enabled {
		globalManager.lockWaitLatency.Observe(latencyMs)
	}
}

// RecordLockTimeout counts an expired bounded lock wait.
func RecordLockTimeout() {
	if globalManager.enabled {
		globalManager.lockTimeouts.Inc()
	}
}

// RecordPersistLatency observes a ledger persist duration.
func RecordPersistLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.persistLatency.Observe(latencyMs)
	}
}

// UpdateStoreTotals refreshes the ledger gauges.
func UpdateStoreTotals(items, ratedItems, ratings int) {
	if globalManager.enabled {
		globalManager.storeItems.Set(float64(items))
		globalManager.storeRatedItems.Set(float64(ratedItems))
		globalManager.storeRatings.Set(float64(ratings))
		globalManager.slotOccupancy.Set(float64(ratedItems) / float64(slotCapacity))
	}
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// UpdatePresenceCount refreshes the active-sessions gauge.
func UpdatePresenceCount(count int) {
	if globalManager.enabled {
		globalManager.presenceActive.Set(float64(count))
	}
}

// GetRegistry returns the custom registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
