package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/aperturestack/svcclient/request"
	"github.com/aperturestack/svcclient/resilience"
	"github.com/aperturestack/svcclient/svcerr"
)

type fakeTransport struct {
	sendFn       func(ctx context.Context, req request.Request) (request.Response, error)
	sendStreamFn func(ctx context.Context, req request.Request) (*StreamHandle, error)
}

func (f *fakeTransport) Send(ctx context.Context, req request.Request) (request.Response, error) {
	return f.sendFn(ctx, req)
}

func (f *fakeTransport) SendStream(ctx context.Context, req request.Request) (*StreamHandle, error) {
	if f.sendStreamFn == nil {
		return NewStreamHandle(0), nil
	}
	return f.sendStreamFn(ctx, req)
}

func testReq() request.Request {
	return request.New("svc", "/x", "GET", request.ProtocolREST)
}

func fastRetry(maxAttempts int) *resilience.Retry {
	return resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: maxAttempts,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	})
}

func TestPipeline_ExecuteSuccess(t *testing.T) {
	transport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		return request.NewResponse(request.Body{Bytes: []byte("ok")}, 200, request.NewMultiMap(), 0), nil
	}}

	p := NewPipeline("svc", transport, nil, nil, fastRetry(3))
	resp, err := p.Execute(context.Background(), testReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPipeline_RetriesRetryableError(t *testing.T) {
	calls := 0
	transport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		calls++
		if calls < 3 {
			return request.Response{StatusCode: 503, Headers: request.NewMultiMap()}, nil
		}
		return request.NewResponse(request.Body{}, 200, request.NewMultiMap(), 0), nil
	}}

	p := NewPipeline("svc", transport, nil, nil, fastRetry(5))
	resp, err := p.Execute(context.Background(), testReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPipeline_NonRetryableErrorNotRetried(t *testing.T) {
	calls := 0
	transport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		calls++
		return request.Response{StatusCode: 400, Headers: request.NewMultiMap()}, nil
	}}

	p := NewPipeline("svc", transport, nil, nil, fastRetry(5))
	_, err := p.Execute(context.Background(), testReq())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (Validation is non-retryable)", calls)
	}
	svcErr, ok := svcerr.As(err)
	if !ok || svcErr.Kind() != svcerr.KindValidation {
		t.Errorf("err = %v, want Validation ServiceError", err)
	}
}

func TestPipeline_BulkheadReleasedOnEveryExit(t *testing.T) {
	transport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		return request.Response{StatusCode: 500, Headers: request.NewMultiMap()}, nil
	}}

	registry := resilience.NewRegistry(resilience.RegistryConfig{})
	p := NewPipeline("svc", transport, nil, registry, fastRetry(2))

	_, _ = p.Execute(context.Background(), testReq())

	if got := registry.Bulkhead("svc").Snapshot().Outstanding; got != 0 {
		t.Errorf("bulkhead outstanding = %d, want 0 after every attempt released its slot", got)
	}
}

func TestPipeline_CircuitOpenShortCircuits(t *testing.T) {
	registry := resilience.NewRegistry(resilience.RegistryConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MinimumNumberOfCalls: 1,
			FailureRateThreshold: 1,
			SlidingWindowSize:    1,
		},
	})
	registry.CircuitBreaker("svc").Record(false, false) // trips the breaker open

	calls := 0
	transport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		calls++
		return request.NewResponse(request.Body{}, 200, request.NewMultiMap(), 0), nil
	}}

	p := NewPipeline("svc", transport, nil, registry, fastRetry(1))
	_, err := p.Execute(context.Background(), testReq())
	if err == nil {
		t.Fatal("expected circuit-open error")
	}
	svcErr, ok := svcerr.As(err)
	if !ok || svcErr.Kind() != svcerr.KindCircuitBreakerOpen {
		t.Errorf("err = %v, want CircuitBreakerOpen", err)
	}
	if calls != 0 {
		t.Errorf("transport called %d times, want 0 (gate must reject before Transport.Send)", calls)
	}
}

func TestPipeline_CallerCancelNotRecordedAsCircuitFailure(t *testing.T) {
	registry := resilience.NewRegistry(resilience.RegistryConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MinimumNumberOfCalls: 1,
			FailureRateThreshold: 1,
			SlidingWindowSize:    5,
		},
	})

	transport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		<-ctx.Done()
		return request.Response{}, ctx.Err()
	}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(2 * time.Millisecond)
		cancel()
	}()

	p := NewPipeline("svc", transport, nil, registry, fastRetry(1))
	_, err := p.Execute(ctx, testReq())
	if err == nil {
		t.Fatal("expected an error for a cancelled call")
	}

	snap := registry.CircuitBreaker("svc").Snapshot()
	if snap.Cursor != 0 {
		t.Errorf("Cursor = %d, want 0 (a cancelled attempt must not push a window outcome)", snap.Cursor)
	}
	if snap.State != resilience.StateClosed {
		t.Errorf("State = %v, want closed (cancellation must not trip the breaker)", snap.State)
	}
}

func TestPipeline_DeadlineExceededNotRetried(t *testing.T) {
	calls := 0
	transport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		calls++
		<-ctx.Done()
		return request.Response{}, ctx.Err()
	}}

	req := testReq().WithTimeout(3 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Millisecond)
	defer cancel()

	p := NewPipeline("svc", transport, nil, nil, fastRetry(5))
	_, err := p.Execute(ctx, req)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (caller deadline exceeded is always fatal)", calls)
	}
	svcErr, ok := svcerr.As(err)
	if !ok || svcErr.Kind() != svcerr.KindTimeout {
		t.Errorf("err = %v, want Timeout ServiceError", err)
	}
}

func TestPipeline_HealthCheckAndIsReadyReflectCircuitState(t *testing.T) {
	registry := resilience.NewRegistry(resilience.RegistryConfig{})
	transport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		return request.NewResponse(request.Body{}, 200, request.NewMultiMap(), 0), nil
	}}
	p := NewPipeline("svc", transport, nil, registry, fastRetry(1))

	if err := p.HealthCheck(); err != nil {
		t.Errorf("HealthCheck() = %v, want nil while closed", err)
	}
	if !p.IsReady() {
		t.Error("IsReady() = false, want true while closed")
	}

	registry.CircuitBreaker("svc").Reset()
	for i := 0; i < 20; i++ {
		registry.CircuitBreaker("svc").Record(false, false)
	}

	if err := p.HealthCheck(); err == nil {
		t.Error("HealthCheck() = nil, want CircuitBreakerOpen after tripping")
	}
	if p.IsReady() {
		t.Error("IsReady() = true, want false once the circuit is open")
	}
}

func TestPipeline_ShutdownReturnsOnceBulkheadDrains(t *testing.T) {
	registry := resilience.NewRegistry(resilience.RegistryConfig{})
	transport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		return request.NewResponse(request.Body{}, 200, request.NewMultiMap(), 0), nil
	}}
	p := NewPipeline("svc", transport, nil, registry, fastRetry(1))

	_, _ = p.Execute(context.Background(), testReq())

	if err := p.Shutdown(context.Background(), 50*time.Millisecond); err != nil {
		t.Errorf("Shutdown() = %v, want nil once bulkhead is drained", err)
	}
}
