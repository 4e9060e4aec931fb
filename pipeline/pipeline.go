package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/aperturestack/svcclient/interceptor"
	"github.com/aperturestack/svcclient/request"
	"github.com/aperturestack/svcclient/resilience"
	"github.com/aperturestack/svcclient/svcerr"
)

// Pipeline drives a Request through the interceptor chain, admission
// control, and Transport, retrying per a Retry policy. One Pipeline is bound
// to one logical service name; Client wraps it with a protocol-specific
// Transport.
//
// The interceptor chain supplies the outermost wrap (pre-phase before the
// attempt, post-phase after); retry is the outer loop around the chain
// itself, so a retried attempt re-enters at the interceptors, exactly as
// each attempt did the first time.
type Pipeline struct {
	service   string
	transport Transport
	chain     *interceptor.Chain
	registry  *resilience.Registry
	retry     *resilience.Retry

	slowThreshold time.Duration
}

// NewPipeline builds a Pipeline for one service. A nil chain, registry, or
// retry falls back to an empty/default instance.
func NewPipeline(service string, transport Transport, chain *interceptor.Chain, registry *resilience.Registry, retry *resilience.Retry) *Pipeline {
	if chain == nil {
		chain = interceptor.NewChain()
	}
	if registry == nil {
		registry = resilience.NewRegistry(resilience.RegistryConfig{})
	}
	if retry == nil {
		retry = resilience.NewRetry(resilience.RetryConfig{})
	}
	return &Pipeline{
		service:       service,
		transport:     transport,
		chain:         chain,
		registry:      registry,
		retry:         retry,
		slowThreshold: registry.Config().CircuitBreaker.SlowCallThreshold,
	}
}

// Execute drives req through attempts until one succeeds, a non-retryable
// error is returned, attempts are exhausted, or ctx is done. Exceeding ctx's
// own deadline is always fatal; it is never itself retried.
func (p *Pipeline) Execute(ctx context.Context, req request.Request) (request.Response, error) {
	for attemptN := 0; ; attemptN++ {
		resp, svcErr := p.attempt(ctx, req, attemptN)
		if svcErr == nil {
			return resp, nil
		}

		if ctx.Err() != nil {
			return request.Response{}, svcErr
		}

		var remaining time.Duration
		var hasDeadline bool
		if dl, ok := ctx.Deadline(); ok {
			remaining = time.Until(dl)
			hasDeadline = true
		}

		decision := p.retry.Evaluate(svcErr, attemptN, remaining, hasDeadline)
		if !decision.Retry {
			return request.Response{}, svcErr
		}

		select {
		case <-ctx.Done():
			return request.Response{}, svcErr
		case <-time.After(decision.Delay):
		}
	}
}

// attempt runs interceptors (gate 1, both phases) around runGates (gates
// 2-8) for one attempt index.
func (p *Pipeline) attempt(ctx context.Context, req request.Request, attemptN int) (request.Response, *svcerr.ServiceError) {
	resp, err := p.chain.Execute(ctx, req, func(ctx context.Context, req request.Request) (request.Response, error) {
		return p.runGates(ctx, req, attemptN)
	})
	if err == nil {
		return resp, nil
	}
	if svcErr, ok := svcerr.As(err); ok {
		return resp, svcErr
	}

	// An interceptor returned a plain error instead of a ServiceError (e.g. a
	// caller-supplied interceptor not built against the taxonomy). Wrap
	// conservatively so the retry policy still has a verdict to consult.
	errCtx := svcerr.NewContextBuilder(req.Service, req.Endpoint, req.Method, req.Protocol).RetryAttempt(attemptN).Build()
	return resp, svcerr.New(svcerr.KindUnknown, err.Error(), errCtx, err)
}

// runGates applies load shedder admission, rate limiting, bulkhead
// acquisition, the circuit breaker gate, the adaptive per-attempt timeout,
// the Transport call, and outcome recording, in that order (gates 2-8 of
// the execution pipeline). Bulkhead release is deferred so it fires on every
// exit path.
func (p *Pipeline) runGates(ctx context.Context, req request.Request, attemptN int) (request.Response, error) {
	start := time.Now()
	errCtxAt := func(elapsed time.Duration) svcerr.ErrorContext {
		return svcerr.NewContextBuilder(req.Service, req.Endpoint, req.Method, req.Protocol).
			RetryAttempt(attemptN).
			Elapsed(elapsed).
			Build()
	}

	shedder := p.registry.LoadShedder()
	shedder.RecordArrival(p.service)
	if shedder.ShouldShed(p.service) {
		return request.Response{}, svcerr.NewLoadShed(errCtxAt(time.Since(start)))
	}

	if err := p.registry.RateLimiter(p.service).TryAcquire(errCtxAt(time.Since(start))); err != nil {
		return request.Response{}, err
	}

	bulkhead := p.registry.Bulkhead(p.service)
	if err := bulkhead.Acquire(ctx, errCtxAt(time.Since(start))); err != nil {
		return request.Response{}, err
	}
	defer bulkhead.Release()

	breaker := p.registry.CircuitBreaker(p.service)
	if svcErr := breaker.Allow(errCtxAt(time.Since(start))); svcErr != nil {
		return request.Response{}, svcErr
	}

	timeoutTracker := p.registry.AdaptiveTimeout(p.service)
	deadline := req.Timeout
	if deadline <= 0 {
		deadline = timeoutTracker.Effective()
	}
	attemptCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	resp, transportErr := p.transport.Send(attemptCtx, req)
	elapsed := time.Since(start)
	svcErr := classify(req, resp, transportErr, errCtxAt(elapsed))

	slow := p.slowThreshold > 0 && elapsed > p.slowThreshold
	if transportErr != nil && errors.Is(transportErr, context.Canceled) {
		// The caller cancelled ctx (as opposed to the adaptive per-attempt
		// deadline expiring, which classify already mapped to a Timeout
		// ServiceError above): this attempt tells us nothing about the
		// service's health, so it must not count as a circuit failure.
		breaker.RecordCancelled()
	} else {
		breaker.Record(svcErr == nil, slow)
	}
	shedder.RecordOutcome(p.service, elapsed, svcErr != nil)
	if svcErr == nil {
		timeoutTracker.RecordSuccess(elapsed)
	} else {
		timeoutTracker.RecordFailure()
	}

	if svcErr != nil {
		return resp, svcErr
	}
	return resp, nil
}

// ExecuteStream opens a streaming call. Gates 2-6 (load shedder, rate
// limiter, bulkhead, circuit breaker, adaptive timeout) apply to the
// opening only; the bulkhead slot is held for the stream's lifetime and
// released when it ends. Interceptors observe the opening through a
// synthetic zero-body Response (StatusCode -1) standing in for "stream
// opened", since the Interceptor signature is shaped for request/response,
// not a channel of frames.
func (p *Pipeline) ExecuteStream(ctx context.Context, req request.Request) (*StreamHandle, error) {
	shedder := p.registry.LoadShedder()
	limiter := p.registry.RateLimiter(p.service)
	bulkhead := p.registry.Bulkhead(p.service)
	breaker := p.registry.CircuitBreaker(p.service)
	timeoutTracker := p.registry.AdaptiveTimeout(p.service)

	var handle *StreamHandle

	_, err := p.chain.Execute(ctx, req, func(ctx context.Context, req request.Request) (request.Response, error) {
		start := time.Now()
		errCtxAt := func(elapsed time.Duration) svcerr.ErrorContext {
			return svcerr.NewContextBuilder(req.Service, req.Endpoint, req.Method, req.Protocol).
				Elapsed(elapsed).
				Build()
		}

		shedder.RecordArrival(p.service)
		if shedder.ShouldShed(p.service) {
			return request.Response{}, svcerr.NewLoadShed(errCtxAt(time.Since(start)))
		}
		if err := limiter.TryAcquire(errCtxAt(time.Since(start))); err != nil {
			return request.Response{}, err
		}
		if err := bulkhead.Acquire(ctx, errCtxAt(time.Since(start))); err != nil {
			return request.Response{}, err
		}
		if svcErr := breaker.Allow(errCtxAt(time.Since(start))); svcErr != nil {
			bulkhead.Release()
			return request.Response{}, svcErr
		}

		deadline := req.Timeout
		if deadline <= 0 {
			deadline = timeoutTracker.Effective()
		}
		openCtx, cancel := context.WithTimeout(ctx, deadline)

		h, sendErr := p.transport.SendStream(openCtx, req)
		elapsed := time.Since(start)
		if sendErr != nil {
			cancel()
			bulkhead.Release()
			breaker.Record(false, false)
			shedder.RecordOutcome(p.service, elapsed, true)
			timeoutTracker.RecordFailure()
			return request.Response{}, classifyTransportErr(sendErr, errCtxAt(elapsed))
		}

		breaker.Record(true, false)
		shedder.RecordOutcome(p.service, elapsed, false)
		timeoutTracker.RecordSuccess(elapsed)

		handle = h
		go func() {
			<-h.Done()
			cancel()
			bulkhead.Release()
		}()

		return request.NewResponse(request.Body{}, -1, request.NewMultiMap(), elapsed), nil
	})

	if err != nil {
		if svcErr, ok := svcerr.As(err); ok {
			return nil, svcErr
		}
		return nil, err
	}
	return handle, nil
}

// HealthCheck reports an error when the service's circuit breaker is open.
// It never invokes Transport; it synthesizes a verdict from already-recorded
// resilience state.
func (p *Pipeline) HealthCheck() error {
	if p.registry.CircuitBreaker(p.service).State() == resilience.StateOpen {
		errCtx := svcerr.NewContextBuilder(p.service, "", "", svcerr.ProtocolREST).Build()
		return svcerr.NewCircuitOpen(errCtx)
	}
	return nil
}

// IsReady reports whether a call would be admitted immediately: the circuit
// is not open and the load shedder is not currently shedding for this
// service.
func (p *Pipeline) IsReady() bool {
	if p.registry.CircuitBreaker(p.service).State() == resilience.StateOpen {
		return false
	}
	return !p.registry.LoadShedder().ShouldShed(p.service)
}

// shutdownPollInterval is how often Shutdown polls bulkhead occupancy while
// waiting for in-flight calls to drain.
const shutdownPollInterval = 20 * time.Millisecond

// Shutdown waits up to grace for in-flight bulkhead occupancy to reach zero.
// It does not stop new calls from being admitted; callers should stop
// issuing Execute/ExecuteStream before calling Shutdown.
func (p *Pipeline) Shutdown(ctx context.Context, grace time.Duration) error {
	deadline := time.Now().Add(grace)
	bulkhead := p.registry.Bulkhead(p.service)

	for time.Now().Before(deadline) {
		if bulkhead.Snapshot().Outstanding == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(shutdownPollInterval):
		}
	}
	return nil
}

// Snapshot is an immutable view of a service's resilience state, exposed for
// observability dashboards and tests.
type Snapshot struct {
	Circuit         resilience.CircuitSnapshot
	Bulkhead        resilience.BulkheadSnapshot
	RateLimiter     resilience.RateLimiterSnapshot
	AdaptiveTimeout resilience.AdaptiveTimeoutSnapshot
	LoadShedder     resilience.LoadShedderSnapshot
}

// Snapshot returns an immutable view of this service's resilience state.
func (p *Pipeline) Snapshot() Snapshot {
	return Snapshot{
		Circuit:         p.registry.CircuitBreaker(p.service).Snapshot(),
		Bulkhead:        p.registry.Bulkhead(p.service).Snapshot(),
		RateLimiter:     p.registry.RateLimiter(p.service).Snapshot(),
		AdaptiveTimeout: p.registry.AdaptiveTimeout(p.service).Snapshot(),
		LoadShedder:     p.registry.LoadShedder().Snapshot(),
	}
}
