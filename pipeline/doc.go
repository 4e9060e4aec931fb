// Package pipeline turns a Request into a Response or a typed
// *svcerr.ServiceError, applying interceptors, admission control, and the
// retry policy in a fixed order around every attempt.
//
// # Gate order
//
// Outermost first, on each attempt: interceptors (pre-phase) -> load
// shedder admission -> rate limiter try-acquire -> bulkhead acquire ->
// circuit breaker gate -> adaptive timeout deadline -> Transport invocation
// -> error mapping and outcome recording -> interceptors (post-phase).
// Retry wraps the whole attempt and, on a retryable verdict, re-enters at
// the interceptors with the attempt index incremented.
//
// # Composition
//
// [Client] binds one [Pipeline] to a protocol-specific [Transport];
// NewRESTClient, NewGRPCClient, and NewSOAPClient differ only in which
// Transport they wire in. A [resilience.Registry] supplies the per-service
// circuit breaker, bulkhead, rate limiter, adaptive timeout, and load
// shedder; it may be shared across Clients that target the same service
// name from different protocols.
package pipeline
