package svcerr

// Convenience constructors for the gate-rejection variants produced inside
// the pipeline itself (no wire response is involved, so there's no mapper to
// go through).

// NewCircuitOpen builds the error the circuit breaker gate returns when the
// circuit is open or half-open probe slots are exhausted.
func NewCircuitOpen(ctx ErrorContext) *ServiceError {
	return New(KindCircuitBreakerOpen, "circuit breaker is open", ctx, nil)
}

// NewBulkheadFull builds the error the bulkhead gate returns on acquire
// timeout.
func NewBulkheadFull(ctx ErrorContext) *ServiceError {
	return New(KindBulkheadFull, "bulkhead at capacity", ctx, nil)
}

// NewRateLimited builds the error the rate limiter gate returns on a failed
// non-blocking acquire.
func NewRateLimited(ctx ErrorContext) *ServiceError {
	return New(KindRateLimit, "rate limit exceeded", ctx, nil)
}

// NewLoadShed builds the error the load shedder returns when it refuses
// admission.
func NewLoadShed(ctx ErrorContext) *ServiceError {
	return New(KindLoadShed, "request shed under load", ctx, nil)
}

// NewConnection wraps a transport-level I/O failure (dial/read/write error,
// connection reset, DNS failure) as a retryable Connection error.
func NewConnection(ctx ErrorContext, cause error) *ServiceError {
	return New(KindConnection, "connection error", ctx, cause)
}

// NewAttemptTimeout builds the error an attempt returns when the adaptive
// per-attempt deadline expires before the transport responds.
func NewAttemptTimeout(ctx ErrorContext, cause error) *ServiceError {
	return New(KindTimeout, "attempt timed out", ctx, cause)
}

// NewSerialization wraps a body marshal/unmarshal failure.
func NewSerialization(ctx ErrorContext, cause error) *ServiceError {
	return New(KindSerialization, "serialization failure", ctx, cause)
}

// NewConfiguration wraps an invalid client/policy configuration.
func NewConfiguration(ctx ErrorContext, message string) *ServiceError {
	return New(KindConfiguration, message, ctx, nil)
}
