// Package resilience provides the per-service admission control and
// failure-handling components used by the execution pipeline: a sliding-
// window circuit breaker, a bounded bulkhead, a token-bucket rate limiter,
// an adaptive per-attempt timeout, a multi-signal load shedder, and a
// taxonomy-driven retry policy.
//
// # Components
//
//   - [CircuitBreaker]: Trips on a sliding-window failure rate and recovers
//     through a CAS-guarded half-open probe phase. Closed → Open → HalfOpen.
//
//   - [Bulkhead]: Channel-based semaphore bounding concurrent in-flight
//     calls per service, with an optional bounded wait before failing fast.
//
//   - [RateLimiter]: Token bucket with lazy, monotonic-time-driven refill.
//     TryAcquire is the non-blocking pipeline gate; Wait/WaitN block for
//     callers that want to queue instead of fail fast.
//
//   - [AdaptiveTimeout]: Derives a per-attempt timeout from a running mean
//     of successful latencies and the observed failure rate, clamped between
//     a base and a max.
//
//   - [LoadShedder]: Sheds admission when CPU EWMA, memory/GC pressure, or a
//     service's rolling rps/latency/error-rate window crosses a threshold.
//
//   - [Retry]: Decides whether and how long to wait before a retry using
//     only the returned ServiceError's Retryable()/SuggestedDelay(), never a
//     caller-supplied predicate.
//
//   - [Registry]: Lazily constructs and caches one instance of each
//     component per service name.
//
// # Thread Safety
//
// All exported types are safe for concurrent use after construction.
package resilience
