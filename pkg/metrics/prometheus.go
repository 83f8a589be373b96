// Package metrics provides Prometheus metrics for the relmap engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Payload ingestion
	payloadsLoaded prometheus.Counter
	payloadErrors  prometheus.Counter
	recordsLoaded  *prometheus.CounterVec
	recordGaps     *prometheus.CounterVec

	// Derivation pipeline
	deriveCycles    prometheus.Counter
	deriveLatency   prometheus.Histogram
	markersEmitted  prometheus.Gauge
	clusterGroups   prometheus.Gauge
	typeAutoCorrect prometheus.Counter

	// View state machine
	activeInstances  prometheus.Gauge
	playbackTicks    prometheus.Counter
	stateTransitions *prometheus.CounterVec
	rendererTimeouts prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec

	// Runtime health
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "relmap",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
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

	m.payloadsLoaded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "payloads_loaded_total",
		Help:      "Total number of geo payloads successfully loaded",
	})

	m.payloadErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "payload_errors_total",
		Help:      "Total number of payloads rejected as malformed",
	})

	m.recordsLoaded = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "records_loaded_total",
			Help:      "Total number of records ingested, by map variant",
		},
		[]string{"variant"},
	)

	m.recordGaps = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "record_gaps_total",
			Help:      "Total number of per-record data gaps, by reason",
		},
		[]string{"reason"},
	)

	m.deriveCycles = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "derive_cycles_total",
		Help:      "Total number of classify/filter/cluster/trace derivations",
	})

	m.deriveLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "derive_latency_milliseconds",
		Help:      "Histogram of full derivation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.markersEmitted = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "markers_emitted",
		Help:      "Markers emitted by the most recent derivation",
	})

	m.clusterGroups = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cluster_groups",
		Help:      "Coordinate groups of size > 1 in the most recent derivation",
	})

	m.typeAutoCorrect = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "type_autocorrect_total",
		Help:      "Times the engine re-enabled a default type because all toggles were off",
	})

	m.activeInstances = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_instances",
		Help:      "Current number of live map instances",
	})

	m.playbackTicks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "playback_ticks_total",
		Help:      "Total number of playback year advances",
	})

	m.stateTransitions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "state_transitions_total",
			Help:      "View state transitions, by kind",
		},
		[]string{"kind"},
	)

	m.rendererTimeouts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "renderer_timeouts_total",
		Help:      "Times the render adapter failed to become ready in the poll window",
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

	m.errorsByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Errors by endpoint, method and error type",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Errors by component and error type",
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current allocated memory in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// Payload Metrics Functions.

// RecordPayloadLoaded increments the loaded payload counter.
func RecordPayloadLoaded() {
	globalManager.payloadsLoaded.Inc()
}

// RecordPayloadError increments the malformed payload counter.
func RecordPayloadError() {
	globalManager.payloadErrors.Inc()
}

// RecordRecordsLoaded adds ingested record counts for a variant.
func RecordRecordsLoaded(variant string, count int) {
	globalManager.recordsLoaded.WithLabelValues(variant).Add(float64(count))
}

// RecordRecordGap increments the per-record gap counter for a reason.
func RecordRecordGap(reason string) {
	globalManager.recordGaps.WithLabelValues(reason).Inc()
}

// Derivation Metrics Functions.

// RecordDeriveCycle increments the derivation counter.
func RecordDeriveCycle() {
	globalManager.deriveCycles.Inc()
}

// RecordDeriveLatency records derivation latency in milliseconds.
func RecordDeriveLatency(latencyMs float64) {
	globalManager.deriveLatency.Observe(latencyMs)
}

// UpdateMarkersEmitted sets the marker count of the latest derivation.
func UpdateMarkersEmitted(count int) {
	globalManager.markersEmitted.Set(float64(count))
}

// UpdateClusterGroups sets the cluster group count of the latest derivation.
func UpdateClusterGroups(count int) {
	globalManager.clusterGroups.Set(float64(count))
}

// RecordTypeAutoCorrect increments the all-toggles-off correction counter.
func RecordTypeAutoCorrect() {
	globalManager.typeAutoCorrect.Inc()
}

// View State Metrics Functions.

// UpdateActiveInstances sets the live instance gauge.
func UpdateActiveInstances(count int) {
	globalManager.activeInstances.Set(float64(count))
}

// RecordPlaybackTick increments the playback tick counter.
func RecordPlaybackTick() {
	globalManager.playbackTicks.Inc()
}

// RecordStateTransition records a state transition by kind.
func RecordStateTransition(kind string) {
	globalManager.stateTransitions.WithLabelValues(kind).Inc()
}

// RecordRendererTimeout increments the renderer poll timeout counter.
func RecordRendererTimeout() {
	globalManager.rendererTimeouts.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an error with endpoint, method and type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
