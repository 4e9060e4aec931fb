package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// RequestMeta describes one outbound call for telemetry purposes: the
// logical service it targets, the endpoint/method within that service, and
// the wire protocol carrying it. It is built from request.Request at the
// interceptor boundary, not constructed by hand.
type RequestMeta struct {
	Service  string // logical service name (required)
	Endpoint string // endpoint/path/procedure within the service (optional)
	Method   string // verb/RPC method, e.g. GET, Charge (optional)
	Protocol string // "REST", "GRPC", "SOAP", ... (optional)
}

// SpanName returns the deterministic span name for this call.
// Format: svcclient.request.<service>.<endpoint> or svcclient.request.<service>.
func (m RequestMeta) SpanName() string {
	if m.Endpoint != "" {
		return "svcclient.request." + m.Service + "." + m.Endpoint
	}
	return "svcclient.request." + m.Service
}

// RequestID returns a dotted identifier for this call, service alone or
// service.endpoint when an endpoint is set.
func (m RequestMeta) RequestID() string {
	if m.Endpoint != "" {
		return m.Service + "." + m.Endpoint
	}
	return m.Service
}

// Tracer wraps OpenTelemetry tracing with per-call span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan returns a child context carrying the span; it does not check cancellation and returns no error.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for one outbound call.
	StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with request metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	spanName := meta.SpanName()

	attrs := []attribute.KeyValue{
		attribute.String("rpc.service", meta.Service),
		attribute.Bool("svcclient.error", false), // updated in EndSpan if error
	}

	if meta.Endpoint != "" {
		attrs = append(attrs, attribute.String("svcclient.endpoint", meta.Endpoint))
	}
	if meta.Method != "" {
		attrs = append(attrs, attribute.String("rpc.method", meta.Method))
	}
	if meta.Protocol != "" {
		attrs = append(attrs, attribute.String("svcclient.protocol", meta.Protocol))
	}

	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("svcclient.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
