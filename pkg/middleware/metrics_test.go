package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/vango"
	"github.com/vango-dev/vango-core/pkg/vtest"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsCycles(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	m.CycleFinished(vango.CycleRebuild, time.Now(), 5, nil)
	m.CycleFinished(vango.CycleRender, time.Now(), 2, nil)
	m.CycleFinished(vango.CycleRender, time.Now(), -1, vangoerrors.New("E020"))
	m.CycleFinished(vango.CycleRender, time.Now(), 0, errors.New("plain"))

	tests := []struct {
		name string
		got  prometheus.Counter
		want float64
	}{
		{"rebuild success", m.cyclesTotal.WithLabelValues("rebuild", "success"), 1},
		{"render success", m.cyclesTotal.WithLabelValues("render", "success"), 1},
		{"render error", m.cyclesTotal.WithLabelValues("render", "error"), 2},
		{"coded error", m.cycleErrors.WithLabelValues("E020"), 1},
		{"uncoded error", m.cycleErrors.WithLabelValues("unknown"), 1},
		{"mutations", m.mutationsTotal, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := metricCounterValue(t, tt.got); got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
	if got := metricHistogramCount(t, m.cycleDuration.WithLabelValues("render")); got != 3 {
		t.Errorf("render duration samples = %d, want 3", got)
	}
}

func TestMetricsSessions(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()), WithNamespace("app"))

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	if got := metricGaugeValue(t, m.activeSessions); got != 1 {
		t.Errorf("active sessions = %v, want 1", got)
	}

	m.BatchSent(120)
	m.BatchSent(4000)
	if got := metricCounterValue(t, m.batchesSent); got != 2 {
		t.Errorf("batches sent = %v, want 2", got)
	}
	if got := metricHistogramCount(t, m.batchBytes); got != 2 {
		t.Errorf("batch size samples = %d, want 2", got)
	}

	m.WebSocketError("read")
	if got := metricCounterValue(t, m.wsErrors.WithLabelValues("read")); got != 1 {
		t.Errorf("read errors = %v, want 1", got)
	}
}

func TestMetricsObserveRuntime(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	h := vtest.New(t, counter, 0, vango.WithObserver(m))

	// Root wrapper, suspense boundary, error boundary, and the application.
	if got := metricCounterValue(t, m.scopeRenders.WithLabelValues("ready")); got != 4 {
		t.Errorf("ready renders after rebuild = %v, want 4", got)
	}

	h.Click("inc")
	vtest.ExpectContains(t, h.Root(), "count: 1")

	if got := metricCounterValue(t, m.eventsTotal.WithLabelValues("click", "true")); got != 1 {
		t.Errorf("handled clicks = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.cyclesTotal.WithLabelValues("render", "success")); got != 1 {
		t.Errorf("render cycles = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.scopeRenders.WithLabelValues("ready")); got < 5 {
		t.Errorf("ready renders after click = %v, want at least 5", got)
	}
}

func TestMetricsEventsAndTasks(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	m.EventDispatched("input", 0)
	m.EventDispatched("input", 2)
	m.TaskFinished(1, nil)
	m.TaskFinished(2, errors.New("boom"))
	m.ScopeRendered(3, "List", time.Millisecond, vango.OutcomeSuspended)

	tests := []struct {
		name string
		got  prometheus.Counter
		want float64
	}{
		{"unhandled input", m.eventsTotal.WithLabelValues("input", "false"), 1},
		{"handled input", m.eventsTotal.WithLabelValues("input", "true"), 1},
		{"task success", m.tasksTotal.WithLabelValues("success"), 1},
		{"task error", m.tasksTotal.WithLabelValues("error"), 1},
		{"suspended", m.scopeRenders.WithLabelValues("suspended"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := metricCounterValue(t, tt.got); got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetricsDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(WithRegistry(reg))
	defer func() {
		if recover() == nil {
			t.Error("second NewMetrics on one registry did not panic")
		}
	}()
	NewMetrics(WithRegistry(reg))
}
