package pipeline

import (
	"context"
	"time"

	"github.com/aperturestack/svcclient/interceptor"
	"github.com/aperturestack/svcclient/observe"
	"github.com/aperturestack/svcclient/request"
	"github.com/aperturestack/svcclient/resilience"
)

// Observability priorities. Tracing wraps the outermost span around the
// whole chain (including logging/metrics overhead); Metrics records after
// tracing has started the span so durations line up; Logging runs last so
// it can report the outcome the other two observed.
const (
	priorityTracing = -200
	priorityMetrics = -100
	priorityLogging = 0
)

// ClientConfig bundles everything needed to build a Client: the service
// name, its Transport, the (optionally shared) resilience registry, the
// retry policy, and the statically-ordered interceptor set.
//
// When Observer is set, newClient derives Tracing, Metrics, and Logging
// interceptors from it and prepends them to Interceptors, so a caller gets
// full observability by supplying one Observer instead of wiring each
// interceptor by hand. LoggingVerbosity controls the derived Logging
// interceptor; it is ignored if Observer is nil.
type ClientConfig struct {
	Service          string
	Transport        Transport
	Registry         *resilience.Registry
	Retry            resilience.RetryConfig
	Interceptors     []interceptor.Registration
	Observer         observe.Observer
	LoggingVerbosity interceptor.Verbosity
}

// Client is the caller-facing handle returned by the protocol builders.
// NewRESTClient, NewGRPCClient, and NewSOAPClient all produce the same
// Client shape wired to the same Pipeline machinery; only the Transport
// implementation supplied in ClientConfig differs per protocol.
type Client struct {
	pipeline *Pipeline
	observer observe.Observer
}

func newClient(cfg ClientConfig) *Client {
	registry := cfg.Registry
	if registry == nil {
		registry = resilience.NewRegistry(resilience.RegistryConfig{})
	}

	registrations := cfg.Interceptors
	if cfg.Observer != nil {
		registrations = append(derivedInterceptors(cfg.Observer, cfg.LoggingVerbosity), registrations...)
	}

	chain := interceptor.NewChain(registrations...)
	retry := resilience.NewRetry(cfg.Retry)
	return &Client{
		pipeline: NewPipeline(cfg.Service, cfg.Transport, chain, registry, retry),
		observer: cfg.Observer,
	}
}

// derivedInterceptors builds the Tracing/Metrics/Logging interceptors an
// Observer implies. Metrics construction can fail (a duplicate instrument
// name against obs.Meter()); that failure is swallowed rather than
// propagated through newClient's signature, since Tracing and Logging still
// apply on their own.
func derivedInterceptors(obs observe.Observer, verbosity interceptor.Verbosity) []interceptor.Registration {
	regs := []interceptor.Registration{
		{Priority: priorityTracing, Interceptor: interceptor.Tracing(obs.RequestTracer())},
	}

	if metrics, err := interceptor.Metrics(obs.Meter()); err == nil {
		regs = append(regs, interceptor.Registration{Priority: priorityMetrics, Interceptor: metrics})
	}

	regs = append(regs, interceptor.Registration{
		Priority:    priorityLogging,
		Interceptor: interceptor.Logging(obs.Logger(), interceptor.LoggingConfig{Verbosity: verbosity}),
	})

	return regs
}

// NewRESTClient builds a Client bound to a REST Transport.
func NewRESTClient(cfg ClientConfig) *Client { return newClient(cfg) }

// NewGRPCClient builds a Client bound to a gRPC Transport.
func NewGRPCClient(cfg ClientConfig) *Client { return newClient(cfg) }

// NewSOAPClient builds a Client bound to a SOAP Transport.
func NewSOAPClient(cfg ClientConfig) *Client { return newClient(cfg) }

// Execute runs req through the full pipeline: interceptors, admission
// control, transport, and retry.
func (c *Client) Execute(ctx context.Context, req request.Request) (request.Response, error) {
	return c.pipeline.Execute(ctx, req)
}

// ExecuteStream opens a streaming call. All admission-control gates apply to
// the opening only; once open, frames flow on the returned StreamHandle
// until the stream ends or ctx is cancelled.
func (c *Client) ExecuteStream(ctx context.Context, req request.Request) (*StreamHandle, error) {
	return c.pipeline.ExecuteStream(ctx, req)
}

// HealthCheck reports an error if the underlying service's circuit breaker
// is open.
func (c *Client) HealthCheck() error { return c.pipeline.HealthCheck() }

// IsReady reports whether the client would admit a call immediately.
func (c *Client) IsReady() bool { return c.pipeline.IsReady() }

// Shutdown releases pooled resources, waiting up to grace for in-flight
// calls to drain. If the Client was built with an Observer, its exporters
// are flushed and shut down too.
func (c *Client) Shutdown(ctx context.Context, grace time.Duration) error {
	err := c.pipeline.Shutdown(ctx, grace)
	if c.observer != nil {
		if obsErr := c.observer.Shutdown(ctx); obsErr != nil && err == nil {
			err = obsErr
		}
	}
	return err
}

// Snapshot returns an immutable view of this client's resilience state.
func (c *Client) Snapshot() Snapshot { return c.pipeline.Snapshot() }
