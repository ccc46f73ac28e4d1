package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/vango"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vango").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for cycle and render durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vango",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics collects Prometheus metrics for every runtime it observes. One
// Metrics is shared by all sessions of a host; it is safe for concurrent use.
//
// Metrics collected:
//   - vango_cycles_total: rebuilds and renders by kind and status
//   - vango_cycle_duration_seconds: cycle duration by kind
//   - vango_cycle_errors_total: fatal cycle errors by error code
//   - vango_mutations_total: edits emitted
//   - vango_scope_renders_total: component runs by outcome
//   - vango_scope_render_duration_seconds: component run duration
//   - vango_events_total: dispatched events by name and whether a listener ran
//   - vango_tasks_total: finished tasks by status
//   - vango_active_sessions: sessions currently connected
//   - vango_batches_sent_total, vango_batch_bytes: frames written to renderers
//   - vango_websocket_errors_total: transport errors by type
type Metrics struct {
	cyclesTotal    *prometheus.CounterVec
	cycleDuration  *prometheus.HistogramVec
	cycleErrors    *prometheus.CounterVec
	mutationsTotal prometheus.Counter
	scopeRenders   *prometheus.CounterVec
	renderDuration prometheus.Histogram
	eventsTotal    *prometheus.CounterVec
	tasksTotal     *prometheus.CounterVec
	activeSessions prometheus.Gauge
	batchesSent    prometheus.Counter
	batchBytes     prometheus.Histogram
	wsErrors       *prometheus.CounterVec
}

var _ vango.Observer = (*Metrics)(nil)

// NewMetrics registers the metrics with the configured registry. Registering
// twice with the same registry panics, as promauto does.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycles_total",
			Help:        "Total number of rebuild and render cycles",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "status"}),

		cycleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycle_duration_seconds",
			Help:        "Cycle duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		cycleErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycle_errors_total",
			Help:        "Total number of cycles that ended in a fatal error",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		mutationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mutations_total",
			Help:        "Total number of edits emitted",
			ConstLabels: config.ConstLabels,
		}),

		scopeRenders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "scope_renders_total",
			Help:        "Total number of component runs by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "scope_render_duration_seconds",
			Help:        "Component run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total number of dispatched events",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "handled"}),

		tasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tasks_total",
			Help:        "Total number of finished tasks",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of connected sessions",
			ConstLabels: config.ConstLabels,
		}),

		batchesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "batches_sent_total",
			Help:        "Total number of mutation batches sent to renderers",
			ConstLabels: config.ConstLabels,
		}),

		batchBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "batch_bytes",
			Help:        "Size of mutation frames on the wire",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{64, 256, 1024, 4096, 16384, 65536, 262144},
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// CycleFinished implements vango.Observer.
func (m *Metrics) CycleFinished(kind vango.Cycle, start time.Time, edits int, err error) {
	m.cycleDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
		m.cycleErrors.WithLabelValues(errorCode(err)).Inc()
	}
	m.cyclesTotal.WithLabelValues(string(kind), status).Inc()
	if edits > 0 {
		m.mutationsTotal.Add(float64(edits))
	}
}

// ScopeRendered implements vango.Observer.
func (m *Metrics) ScopeRendered(_ vango.ScopeID, _ string, d time.Duration, outcome vango.Outcome) {
	m.scopeRenders.WithLabelValues(outcome.String()).Inc()
	m.renderDuration.Observe(d.Seconds())
}

// EventDispatched implements vango.Observer.
func (m *Metrics) EventDispatched(name string, listeners int) {
	handled := "false"
	if listeners > 0 {
		handled = "true"
	}
	m.eventsTotal.WithLabelValues(name, handled).Inc()
}

// TaskFinished implements vango.Observer.
func (m *Metrics) TaskFinished(_ vango.TaskID, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.tasksTotal.WithLabelValues(status).Inc()
}

// SessionOpened records a new session.
func (m *Metrics) SessionOpened() {
	m.activeSessions.Inc()
}

// SessionClosed records a session ending.
func (m *Metrics) SessionClosed() {
	m.activeSessions.Dec()
}

// BatchSent records a mutation frame of size bytes written to a renderer.
func (m *Metrics) BatchSent(bytes int) {
	m.batchesSent.Inc()
	m.batchBytes.Observe(float64(bytes))
}

// WebSocketError records a transport error. errorType should come from a
// small fixed set ("read", "write", "handshake", "protocol").
func (m *Metrics) WebSocketError(errorType string) {
	m.wsErrors.WithLabelValues(errorType).Inc()
}

// errorCode keeps label cardinality bounded: registered codes pass through,
// everything else is "unknown".
func errorCode(err error) string {
	if code := vangoerrors.Code(err); code != "" {
		return code
	}
	return "unknown"
}
