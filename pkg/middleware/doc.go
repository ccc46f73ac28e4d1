// Package middleware provides observability for Vango runtimes.
//
// Both types in this package implement vango.Observer and are attached with
// vango.WithObserver. Several can be combined with vango.MultiObserver.
//
// # Prometheus Metrics
//
// Metrics is shared by every session of a host:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("shop"))
//	rt := vango.New(App, props, vango.WithObserver(m))
//
// It counts cycles, emitted edits, component runs by outcome, events and
// tasks. The session host additionally reports connections, batch sizes and
// transport errors through SessionOpened, BatchSent and WebSocketError.
// Expose the registry with promhttp.Handler().
//
// # OpenTelemetry Tracing
//
// Tracer belongs to a single runtime. Each Rebuild or RenderImmediate becomes
// a span backdated to the cycle start, carrying the number of edits and the
// component outcomes of that cycle. Events delivered since the previous cycle
// are attached as span events.
//
//	tr := middleware.NewTracer(
//	    middleware.WithTracerName("shop"),
//	    middleware.WithAttributes(attribute.String("vango.session", id)),
//	)
//
// Without WithTracer the tracer comes from the global provider, so nothing is
// exported until the application installs one.
package middleware
