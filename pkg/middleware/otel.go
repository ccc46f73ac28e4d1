package middleware

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/vango"
)

// Default tracer name for Vango runtimes.
const defaultTracerName = "vango"

// OTelConfig configures the tracing observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "vango").
	TracerName string

	// Tracer overrides the tracer resolved from the global provider.
	Tracer trace.Tracer

	// Filter determines which cycles are traced. Return true to trace.
	// If nil, all cycles are traced.
	Filter func(kind vango.Cycle) bool

	// Attributes are added to every span, typically the session ID.
	Attributes []attribute.KeyValue

	// Parent is the context spans are started under (default: Background).
	Parent context.Context
}

// OTelOption configures the tracing observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer directly, bypassing the global provider.
func WithTracer(t trace.Tracer) OTelOption {
	return func(c *OTelConfig) {
		c.Tracer = t
	}
}

// WithCycleFilter sets a filter for traced cycles.
func WithCycleFilter(filter func(kind vango.Cycle) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributes adds attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// WithParent sets the context spans are children of.
func WithParent(ctx context.Context) OTelOption {
	return func(c *OTelConfig) {
		c.Parent = ctx
	}
}

// Tracer turns runtime cycles into spans. Each Rebuild or RenderImmediate
// becomes one span named "vango.rebuild" or "vango.render", backdated to the
// cycle start. Component runs and events observed since the previous cycle
// are folded into that span as attributes and span events.
//
// A Tracer belongs to one runtime.
type Tracer struct {
	config OTelConfig
	tracer trace.Tracer

	mu      sync.Mutex
	renders [3]int
	events  []pendingEvent
	tasks   int
	failed  int
}

type pendingEvent struct {
	at        time.Time
	name      string
	listeners int
}

var _ vango.Observer = (*Tracer)(nil)

// NewTracer creates a tracing observer.
func NewTracer(opts ...OTelOption) *Tracer {
	config := OTelConfig{
		TracerName: defaultTracerName,
		Parent:     context.Background(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(config.TracerName)
	}
	return &Tracer{config: config, tracer: tracer}
}

// CycleFinished implements vango.Observer.
func (t *Tracer) CycleFinished(kind vango.Cycle, start time.Time, edits int, err error) {
	t.mu.Lock()
	renders := t.renders
	events := t.events
	tasks, failed := t.tasks, t.failed
	t.renders = [3]int{}
	t.events = nil
	t.tasks, t.failed = 0, 0
	t.mu.Unlock()

	if t.config.Filter != nil && !t.config.Filter(kind) {
		return
	}

	attrs := append([]attribute.KeyValue{
		attribute.String("vango.cycle", string(kind)),
		attribute.Int("vango.edits", edits),
		attribute.Int("vango.scopes.ready", renders[vango.OutcomeReady]),
		attribute.Int("vango.scopes.suspended", renders[vango.OutcomeSuspended]),
		attribute.Int("vango.scopes.faulted", renders[vango.OutcomeFaulted]),
	}, t.config.Attributes...)
	if tasks > 0 {
		attrs = append(attrs,
			attribute.Int("vango.tasks.finished", tasks),
			attribute.Int("vango.tasks.failed", failed),
		)
	}

	_, span := t.tracer.Start(t.config.Parent, "vango."+string(kind),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(start),
		trace.WithAttributes(attrs...),
	)
	for _, ev := range events {
		span.AddEvent("vango.event",
			trace.WithTimestamp(ev.at),
			trace.WithAttributes(
				attribute.String("vango.event.name", ev.name),
				attribute.Int("vango.event.listeners", ev.listeners),
			),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if code := vangoerrors.Code(err); code != "" {
			span.SetAttributes(attribute.String("vango.error.code", code))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// ScopeRendered implements vango.Observer.
func (t *Tracer) ScopeRendered(_ vango.ScopeID, _ string, _ time.Duration, outcome vango.Outcome) {
	if int(outcome) >= len(t.renders) {
		return
	}
	t.mu.Lock()
	t.renders[outcome]++
	t.mu.Unlock()
}

// EventDispatched implements vango.Observer.
func (t *Tracer) EventDispatched(name string, listeners int) {
	t.mu.Lock()
	t.events = append(t.events, pendingEvent{at: time.Now(), name: name, listeners: listeners})
	t.mu.Unlock()
}

// TaskFinished implements vango.Observer.
func (t *Tracer) TaskFinished(_ vango.TaskID, err error) {
	t.mu.Lock()
	t.tasks++
	if err != nil {
		t.failed++
	}
	t.mu.Unlock()
}
