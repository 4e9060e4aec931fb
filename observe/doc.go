// Package observe provides OpenTelemetry-based observability for outbound
// service calls.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. pipeline.ClientConfig accepts an Observer and
// derives its Logging/Metrics/Tracing interceptors from it.
//
// # Overview
//
// observe provides three observability pillars:
//   - Tracing: OpenTelemetry spans with request metadata attributes
//   - Metrics: Request counters and duration histograms (see the
//     interceptor package, which builds these directly against an
//     Observer's Meter rather than through a separate Metrics type)
//   - Logging: Structured JSON logging with automatic field redaction
//
// # Core Components
//
//   - [Observer]: Main facade providing Tracer, RequestTracer, Meter, and Logger access
//   - [Tracer]: Span creation with RequestMeta as span attributes
//   - [Logger]: Structured JSON logging with sensitive field redaction
//
// # Quick Start
//
//	cfg := observe.Config{
//	    ServiceName: "my-service",
//	    Version:     "1.0.0",
//	    Tracing:     observe.TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 1.0},
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	}
//
//	obs, err := observe.NewObserver(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer obs.Shutdown(ctx)
//
//	client := pipeline.NewRESTClient(pipeline.ClientConfig{
//	    Service:  "billing",
//	    Transport: transport,
//	    Observer: obs,
//	})
//
// # Telemetry Details
//
// Tracing creates spans with deterministic names:
//   - With endpoint: "svcclient.request.<service>.<endpoint>"
//   - Without endpoint: "svcclient.request.<service>"
//
// Span attributes include:
//   - rpc.service: Logical service name (required)
//   - rpc.method: Verb/RPC method (if set)
//   - svcclient.endpoint: Endpoint/path within the service (if set)
//   - svcclient.protocol: Wire protocol (if set)
//   - svcclient.error: Boolean indicating call failure
//
// # Sensitive Field Redaction
//
// The logger automatically redacts these log field keys to prevent
// credential leakage: input, inputs, password, secret, token, api_key,
// apiKey, credential.
//
// # Exporter Configuration
//
// Tracing exporters:
//   - "otlp": OTLP gRPC (requires OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_TRACES_ENDPOINT)
//   - "jaeger": Jaeger via OTLP (requires OTEL_EXPORTER_JAEGER_ENDPOINT)
//   - "stdout": Console output for development
//   - "none" or "": Disabled (no-op)
//
// Metrics exporters:
//   - "otlp": OTLP gRPC (requires OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT)
//   - "prometheus": Prometheus scrape endpoint
//   - "stdout": Console output for development
//   - "none" or "": Disabled (no-op)
//
// # Thread Safety
//
// All exported types are safe for concurrent use after construction:
//   - [Observer]: Tracer(), RequestTracer(), Meter(), Logger() are safe; Shutdown() is idempotent
//   - [Tracer]: StartSpan() and EndSpan() are safe for concurrent use
//   - [Logger]: All logging methods are mutex-protected
//
// # Error Handling
//
// Configuration errors (use errors.Is for checking):
//   - [ErrMissingServiceName]: Config.ServiceName is empty
//   - [ErrInvalidSamplePct]: Tracing.SamplePct not in [0.0, 1.0]
//   - [ErrInvalidTracingExporter]: Unknown tracing exporter name
//   - [ErrInvalidMetricsExporter]: Unknown metrics exporter name
//   - [ErrInvalidLogLevel]: Unknown log level
//
// Exporter errors:
//   - exporters.ErrEndpointNotConfigured: Required endpoint env var not set (see the exporters subpackage)
//
// Example error handling:
//
//	obs, err := observe.NewObserver(ctx, cfg)
//	if errors.Is(err, observe.ErrMissingServiceName) {
//	    // Handle missing service name
//	}
package observe
