// Package metrics provides Prometheus metrics for the matchq matchmaking service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the matchmaking service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Queue Metrics
	queueSize     prometheus.Gauge
	joins         prometheus.Counter
	joinsRejected *prometheus.CounterVec
	leaves        *prometheus.CounterVec
	leaveMisses   prometheus.Counter
	waitTime      *prometheus.HistogramVec

	// Match Metrics
	matchesFormed      prometheus.Counter
	matchSize          prometheus.Histogram
	matchTolerance     prometheus.Histogram
	matchAverageRating prometheus.Histogram

	// Scheduler Metrics
	schedulerRunning    prometheus.Gauge
	schedulerRuns       *prometheus.CounterVec
	schedulerRunLatency *prometheus.HistogramVec

	// Event Sink Metrics
	eventsPublished *prometheus.CounterVec
	eventsDropped   prometheus.Counter
	subscribers     prometheus.Gauge

	// Configuration
	configChanges  prometheus.Counter
	configRejected prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
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
		namespace:        "matchq",
		subsystem:        "matchmaking",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// name applies the optional metric prefix.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_size"),
		Help:        "Number of participants currently waiting in the queue",
		ConstLabels: labels,
	})

	m.joins = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("joins_total"),
		Help:        "Total number of participants admitted to the queue",
		ConstLabels: labels,
	})

	m.joinsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("joins_rejected_total"),
		Help:        "Join requests rejected, by reason",
		ConstLabels: labels,
	}, []string{"reason"})

	m.leaves = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("leaves_total"),
		Help:        "Participants that left the queue, by reason (voluntary, timeout, matched)",
		ConstLabels: labels,
	}, []string{"reason"})

	m.leaveMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("leave_not_in_queue_total"),
		Help:        "Leave requests for ids that were not queued",
		ConstLabels: labels,
	})

	m.waitTime = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("wait_time_seconds"),
		Help:        "Time spent in the queue before leaving it, by reason",
		Buckets:     []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		ConstLabels: labels,
	}, []string{"reason"})

	m.matchesFormed = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("matches_formed_total"),
		Help:        "Total number of matches formed",
		ConstLabels: labels,
	})

	m.matchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("match_size"),
		Help:        "Number of members per formed match",
		Buckets:     prometheus.LinearBuckets(2, 1, 15),
		ConstLabels: labels,
	})

	m.matchTolerance = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("match_tolerance"),
		Help:        "Effective skill tolerance used when a match was formed",
		Buckets:     prometheus.ExponentialBuckets(50, 2, 10),
		ConstLabels: labels,
	})

	m.matchAverageRating = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("match_average_rating"),
		Help:        "Average skill rating of formed matches",
		Buckets:     prometheus.LinearBuckets(0, 250, 16),
		ConstLabels: labels,
	})

	m.schedulerRunning = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("scheduler_running"),
		Help:        "1 while the scheduler is running, 0 when stopped",
		ConstLabels: labels,
	})

	m.schedulerRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("scheduler_runs_total"),
		Help:        "Periodic activity executions, by activity (formation, tick)",
		ConstLabels: labels,
	}, []string{"activity"})

	m.schedulerRunLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("scheduler_run_latency_milliseconds"),
		Help:        "Duration of periodic activity executions in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"activity"})

	m.eventsPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("events_published_total"),
		Help:        "Events published to subscribers, by kind",
		ConstLabels: labels,
	}, []string{"kind"})

	m.eventsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("events_dropped_total"),
		Help:        "Events dropped because a buffered subscriber was full",
		ConstLabels: labels,
	})

	m.subscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("subscribers"),
		Help:        "Number of active event subscribers",
		ConstLabels: labels,
	})

	m.configChanges = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("config_changes_total"),
		Help:        "Accepted queue configuration replacements",
		ConstLabels: labels,
	})

	m.configRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("config_rejected_total"),
		Help:        "Rejected queue configuration replacements",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_errors_total"),
			Help:        "HTTP error responses by endpoint, method and error type",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// RecordJoin increments the admitted participants counter.
func RecordJoin() {
	if !globalManager.enabled {
		return
	}
	globalManager.joins.Inc()
}

// RecordJoinRejected records a rejected join request.
func RecordJoinRejected(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.joinsRejected.WithLabelValues(reason).Inc()
}

// RecordLeave records a participant leaving the queue and how long it waited.
func RecordLeave(reason string, wait time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.leaves.WithLabelValues(reason).Inc()
	globalManager.waitTime.WithLabelValues(reason).Observe(wait.Seconds())
}

// RecordLeaveNotInQueue counts leave requests for unknown ids.
func RecordLeaveNotInQueue() {
	if !globalManager.enabled {
		return
	}
	globalManager.leaveMisses.Inc()
}

// Match Metrics Functions.

// RecordMatchFormed records a formed match.
func RecordMatchFormed(size int, tolerance, averageRating float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.matchesFormed.Inc()
	globalManager.matchSize.Observe(float64(size))
	globalManager.matchTolerance.Observe(tolerance)
	globalManager.matchAverageRating.Observe(averageRating)
}

// Scheduler Metrics Functions.

// UpdateSchedulerRunning reports the scheduler state.
func UpdateSchedulerRunning(running bool) {
	if !globalManager.enabled {
		return
	}
	v := 0.0
	if running {
		v = 1
	}
	globalManager.schedulerRunning.Set(v)
}

// RecordSchedulerRun records one execution of a periodic activity.
func RecordSchedulerRun(activity string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.schedulerRuns.WithLabelValues(activity).Inc()
	globalManager.schedulerRunLatency.WithLabelValues(activity).Observe(latencyMs)
}

// Event Sink Metrics Functions.

// RecordEventPublished counts a published event by kind.
func RecordEventPublished(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.eventsPublished.WithLabelValues(kind).Inc()
}

// RecordEventDropped counts an event a buffered subscriber could not accept.
func RecordEventDropped() {
	if !globalManager.enabled {
		return
	}
	globalManager.eventsDropped.Inc()
}

// UpdateSubscribers sets the number of active subscribers.
func UpdateSubscribers(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.subscribers.Set(float64(count))
}

// Configuration Metrics Functions.

// RecordConfigChange counts an accepted configuration.
func RecordConfigChange() {
	if !globalManager.enabled {
		return
	}
	globalManager.configChanges.Inc()
}

// RecordConfigRejected counts a rejected configuration.
func RecordConfigRejected() {
	if !globalManager.enabled {
		return
	}
	globalManager.configRejected.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns how often gauge updaters should run.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
