package interceptor

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/aperturestack/svcclient/observe"
	"github.com/aperturestack/svcclient/request"
)

// fakeTracer is a test double for observe.Tracer that records the
// RequestMeta each span started with and whether EndSpan saw an error.
type fakeTracer struct {
	started []observe.RequestMeta
	ended   []error
}

func (f *fakeTracer) StartSpan(ctx context.Context, meta observe.RequestMeta) (context.Context, trace.Span) {
	f.started = append(f.started, meta)
	_, span := tracenoop.NewTracerProvider().Tracer("fake").Start(ctx, meta.SpanName())
	return ctx, span
}

func (f *fakeTracer) EndSpan(span trace.Span, err error) {
	f.ended = append(f.ended, err)
	span.End()
}

func TestTracing_StartsSpanWithRequestMeta(t *testing.T) {
	tracer := &fakeTracer{}
	ti := Tracing(tracer)

	req := request.New("billing", "/charges", "POST", request.ProtocolREST)
	_, err := ti(context.Background(), req, terminalOK)
	if err != nil {
		t.Fatalf("interceptor error = %v", err)
	}

	if len(tracer.started) != 1 {
		t.Fatalf("got %d StartSpan calls, want 1", len(tracer.started))
	}
	meta := tracer.started[0]
	if meta.Service != "billing" || meta.Endpoint != "/charges" || meta.Method != "POST" || meta.Protocol != "REST" {
		t.Errorf("unexpected RequestMeta: %+v", meta)
	}
}

func TestTracing_EndSpanSeesNilErrorOnSuccess(t *testing.T) {
	tracer := &fakeTracer{}
	ti := Tracing(tracer)

	req := request.New("billing", "/charges", "POST", request.ProtocolREST)
	if _, err := ti(context.Background(), req, terminalOK); err != nil {
		t.Fatalf("interceptor error = %v", err)
	}

	if len(tracer.ended) != 1 || tracer.ended[0] != nil {
		t.Errorf("ended = %v, want [nil]", tracer.ended)
	}
}

func TestTracing_EndSpanSeesErrorOnFailure(t *testing.T) {
	tracer := &fakeTracer{}
	ti := Tracing(tracer)

	failing := func(ctx context.Context, req request.Request) (request.Response, error) {
		return request.Response{}, errDummy{}
	}

	req := request.New("billing", "/charges", "POST", request.ProtocolREST)
	if _, err := ti(context.Background(), req, failing); err == nil {
		t.Fatal("expected error to propagate")
	}

	if len(tracer.ended) != 1 || tracer.ended[0] == nil {
		t.Errorf("ended = %v, want a non-nil error", tracer.ended)
	}
}

func TestTracing_PropagatesResponseOnSuccess(t *testing.T) {
	tracer := &fakeTracer{}
	ti := Tracing(tracer)

	req := request.New("billing", "/charges", "POST", request.ProtocolREST)
	resp, err := ti(context.Background(), req, terminalOK)
	if err != nil {
		t.Fatalf("interceptor error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
