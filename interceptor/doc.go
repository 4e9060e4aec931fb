// Package interceptor implements the pipeline's ordered, short-circuit-
// capable middleware chain over request/response objects, plus the built-in
// interceptors (logging, metrics, chaos injection, caching).
//
// # Components
//
//   - [Chain]: Priority-ordered (lower first) sequence of [Interceptor]
//     values, executed by index threading so each interceptor's Next closure
//     invokes the remainder without the chain holding any mutable cursor.
//
//   - [Logging]: Structured request/response logging at four verbosity
//     levels, masking sensitive header names case-insensitively.
//
//   - [Metrics]: Request counters and a fixed-bucket duration histogram via
//     OpenTelemetry.
//
//   - [Tracing]: Wraps each call in an OpenTelemetry span via an
//     observe.Tracer, tagging it with the call's RequestMeta.
//
//   - [Chaos]: Probabilistic latency, error, and response-corruption
//     injection, hard-gated off outside non-production environments.
//
//   - [Cache]: Bounded LRU response cache with HTTP validator-based
//     revalidation (ETag/If-None-Match, Last-Modified/If-Modified-Since).
//
// # Thread Safety
//
// A [Chain] and every built-in Interceptor are safe for concurrent use once
// constructed; interceptors must not retain the Request/Response values they
// observe across calls, since both are copy-on-write and reused structurally
// between requests.
package interceptor
