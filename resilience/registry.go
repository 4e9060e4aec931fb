package resilience

import "sync"

// RegistryConfig supplies the per-service defaults a Registry uses when
// lazily constructing components for a service name it has not seen before.
type RegistryConfig struct {
	CircuitBreaker  CircuitBreakerConfig
	Bulkhead        BulkheadConfig
	RateLimiter     RateLimiterConfig
	AdaptiveTimeout AdaptiveTimeoutConfig
	LoadShedder     LoadShedderConfig
}

type registryEntry struct {
	once            sync.Once
	circuitBreaker  *CircuitBreaker
	bulkhead        *Bulkhead
	rateLimiter     *RateLimiter
	adaptiveTimeout *AdaptiveTimeout
	loadShedder     *LoadShedder
}

// Registry is a process-wide, lazily-populated set of resilience components
// keyed by service name. Adapted from the teacher's package-level
// constructors (which produced one instance per process); here each service
// gets its own independent circuit breaker, bulkhead, rate limiter, adaptive
// timeout, and load shedder, constructed once on first use via a per-entry
// sync.Once so construction races are safe without a global lock on the hot
// path.
type Registry struct {
	config RegistryConfig

	mu      sync.RWMutex
	entries map[string]*registryEntry

	sharedShedder *LoadShedder
}

// NewRegistry creates a registry. The load shedder's process-wide signals
// (CPU, memory, GC, threads) are shared across all services; only its
// per-service rolling windows are keyed independently, so a single
// LoadShedder instance is reused across entries.
func NewRegistry(config RegistryConfig) *Registry {
	return &Registry{
		config:        config,
		entries:       make(map[string]*registryEntry),
		sharedShedder: NewLoadShedder(config.LoadShedder),
	}
}

func (r *Registry) entry(service string) *registryEntry {
	r.mu.RLock()
	e, ok := r.entries[service]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[service]; ok {
		return e
	}
	e = &registryEntry{}
	r.entries[service] = e
	return e
}

// CircuitBreaker returns the circuit breaker for service, constructing it on
// first use.
func (r *Registry) CircuitBreaker(service string) *CircuitBreaker {
	e := r.entry(service)
	e.once.Do(func() {
		e.circuitBreaker = NewCircuitBreaker(service, r.config.CircuitBreaker)
		e.bulkhead = NewBulkhead(r.config.Bulkhead)
		e.rateLimiter = NewRateLimiter(r.config.RateLimiter)
		e.adaptiveTimeout = NewAdaptiveTimeout(r.config.AdaptiveTimeout)
		e.loadShedder = r.sharedShedder
	})
	return e.circuitBreaker
}

// Bulkhead returns the bulkhead for service, constructing all of the
// service's components on first use.
func (r *Registry) Bulkhead(service string) *Bulkhead {
	r.CircuitBreaker(service)
	return r.entry(service).bulkhead
}

// RateLimiter returns the rate limiter for service, constructing all of the
// service's components on first use.
func (r *Registry) RateLimiter(service string) *RateLimiter {
	r.CircuitBreaker(service)
	return r.entry(service).rateLimiter
}

// AdaptiveTimeout returns the adaptive timeout tracker for service,
// constructing all of the service's components on first use.
func (r *Registry) AdaptiveTimeout(service string) *AdaptiveTimeout {
	r.CircuitBreaker(service)
	return r.entry(service).adaptiveTimeout
}

// LoadShedder returns the shared load shedder. Its process-wide signals
// (CPU, memory, GC, threads) apply uniformly across all services; only its
// per-service rps/latency/error windows vary by the service name passed to
// ShouldShed/RecordArrival/RecordOutcome.
func (r *Registry) LoadShedder() *LoadShedder {
	return r.sharedShedder
}

// Config returns the registry's configuration, applied uniformly to every
// service's lazily-constructed components. Used by callers (e.g. the
// pipeline) that need a config value, such as SlowCallThreshold, that isn't
// captured by a component's Snapshot.
func (r *Registry) Config() RegistryConfig {
	return r.config
}

// Services returns the names of all services with at least one constructed
// component.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	return out
}
