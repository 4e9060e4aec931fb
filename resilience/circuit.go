package resilience

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/aperturestack/svcclient/svcerr"
)

// State is a circuit breaker state. The state machine is built around a
// sliding window of recent outcomes rather than a consecutive-failure
// counter.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// outcome is one sliding-window slot.
type outcome int

const (
	outcomeEmpty outcome = iota
	outcomeSuccess
	outcomeFailure
	outcomeSlow
)

// CircuitBreakerConfig configures a per-service circuit breaker.
type CircuitBreakerConfig struct {
	// SlidingWindowSize is the ring buffer length. Default 20.
	SlidingWindowSize int

	// MinimumNumberOfCalls is the in-window call count required before the
	// failure rate is evaluated. Default 10.
	MinimumNumberOfCalls int

	// FailureRateThreshold is a percentage (0-100). Default 50.
	FailureRateThreshold float64

	// WaitDurationInOpenState is how long to stay open before probing.
	// Default 30s.
	WaitDurationInOpenState time.Duration

	// PermittedProbes is the half-open concurrency limit. Default 1.
	PermittedProbes int

	// SlowCallThreshold classifies a call as slow. Default 0 (disabled).
	SlowCallThreshold time.Duration

	// SlowCallRateEnabled controls whether slow calls contribute to the
	// failure rate. Defaults to false: slow calls are observable but not
	// punitive unless opted in.
	SlowCallRateEnabled bool

	// OnStateChange is invoked (from inside the lock) whenever the state
	// transitions.
	OnStateChange func(service string, from, to State)
}

func (c *CircuitBreakerConfig) applyDefaults() {
	if c.SlidingWindowSize <= 0 {
		c.SlidingWindowSize = 20
	}
	if c.MinimumNumberOfCalls <= 0 {
		c.MinimumNumberOfCalls = 10
	}
	if c.FailureRateThreshold <= 0 {
		c.FailureRateThreshold = 50
	}
	if c.WaitDurationInOpenState <= 0 {
		c.WaitDurationInOpenState = 30 * time.Second
	}
	if c.PermittedProbes <= 0 {
		c.PermittedProbes = 1
	}
}

// CircuitBreaker implements a sliding-window state machine. The ring buffer
// and counters are protected by a mutex; readers of State() may observe a
// slightly stale value, since state reads never block on call completion.
// The half-open probe count is additionally CAS-guarded
// so "at most permittedProbes concurrent probes" holds precisely even though
// the rest of the struct is lock-protected.
type CircuitBreaker struct {
	service string
	config  CircuitBreakerConfig

	mu             sync.Mutex
	state          State
	window         []outcome
	cursor         int
	filled         int // number of non-empty slots, saturates at len(window)
	lastTransition time.Time

	halfOpenInFlight atomic.Int32
}

// NewCircuitBreaker creates a circuit breaker for one service.
func NewCircuitBreaker(service string, config CircuitBreakerConfig) *CircuitBreaker {
	config.applyDefaults()
	return &CircuitBreaker{
		service:        service,
		config:         config,
		state:          StateClosed,
		window:         make([]outcome, config.SlidingWindowSize),
		lastTransition: time.Now(),
	}
}

// Allow reports whether a call may proceed, transitioning open->half-open
// when the wait duration has elapsed. Returns a *svcerr.ServiceError when the
// call must be rejected. On success the caller must eventually call Record
// exactly once; a cancelled attempt calls RecordCancelled instead so it is
// not counted as a failure.
func (cb *CircuitBreaker) Allow(ctx svcerr.ErrorContext) *svcerr.ServiceError {
	cb.mu.Lock()
	state := cb.currentStateLocked()
	cb.mu.Unlock()

	switch state {
	case StateOpen:
		return svcerr.NewCircuitOpen(ctx)
	case StateHalfOpen:
		// CAS-admit up to PermittedProbes concurrent half-open probes,
		// independent of the coarse lock above so the invariant holds even
		// under a burst of concurrent Allow() calls.
		for {
			cur := cb.halfOpenInFlight.Load()
			if int(cur) >= cb.config.PermittedProbes {
				return svcerr.NewCircuitOpen(ctx)
			}
			if cb.halfOpenInFlight.CompareAndSwap(cur, cur+1) {
				return nil
			}
		}
	default:
		return nil
	}
}

// Record records the outcome of a call that was allowed to proceed.
func (cb *CircuitBreaker) Record(success bool, slow bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasHalfOpen := cb.state == StateHalfOpen
	if wasHalfOpen {
		cb.halfOpenInFlight.Add(-1)
	}

	o := outcomeSuccess
	if !success {
		o = outcomeFailure
	} else if slow && cb.config.SlowCallRateEnabled {
		o = outcomeSlow
	}
	cb.pushLocked(o)

	switch cb.state {
	case StateClosed:
		if cb.filled >= cb.config.MinimumNumberOfCalls && cb.failureRateLocked() >= cb.config.FailureRateThreshold {
			cb.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		if !success {
			cb.transitionLocked(StateOpen)
		} else if cb.halfOpenInFlight.Load() == 0 {
			// All outstanding probes succeeded: the last probe to finish
			// with no other probe in flight closes the circuit.
			cb.resetWindowLocked()
			cb.transitionLocked(StateClosed)
		}
	}
}

// RecordCancelled is called instead of Record when the context was cancelled
// before the attempt completed: a cancelled attempt is not recorded as a
// failure.
func (cb *CircuitBreaker) RecordCancelled() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen {
		cb.halfOpenInFlight.Add(-1)
	}
}

// State returns the current state, resolving an elapsed open-window
// transition as a side effect.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Reset forces the breaker back to closed and clears the window.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.resetWindowLocked()
	cb.transitionLocked(StateClosed)
	cb.halfOpenInFlight.Store(0)
}

// Snapshot returns an immutable view of the breaker's current metrics.
func (cb *CircuitBreaker) Snapshot() CircuitSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	window := make([]string, len(cb.window))
	for i, o := range cb.window {
		window[i] = outcomeString(o)
	}

	return CircuitSnapshot{
		Service:         cb.service,
		State:           cb.currentStateLocked(),
		Window:          window,
		Cursor:          cb.cursor,
		LastTransition:  cb.lastTransition,
		PermittedProbes: cb.config.PermittedProbes,
		ProbesConsumed:  int(cb.halfOpenInFlight.Load()),
	}
}

func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && time.Since(cb.lastTransition) >= cb.config.WaitDurationInOpenState {
		cb.transitionLocked(StateHalfOpen)
		cb.halfOpenInFlight.Store(0)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.lastTransition = time.Now()
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.service, from, to)
	}
}

func (cb *CircuitBreaker) pushLocked(o outcome) {
	cb.window[cb.cursor] = o
	cb.cursor = (cb.cursor + 1) % len(cb.window)
	if cb.filled < len(cb.window) {
		cb.filled++
	}
}

func (cb *CircuitBreaker) resetWindowLocked() {
	for i := range cb.window {
		cb.window[i] = outcomeEmpty
	}
	cb.cursor = 0
	cb.filled = 0
}

func (cb *CircuitBreaker) failureRateLocked() float64 {
	if cb.filled == 0 {
		return 0
	}
	bad := 0
	for _, o := range cb.window {
		if o == outcomeFailure || o == outcomeSlow {
			bad++
		}
	}
	return float64(bad) / float64(cb.filled) * 100
}

func outcomeString(o outcome) string {
	switch o {
	case outcomeSuccess:
		return "success"
	case outcomeFailure:
		return "failure"
	case outcomeSlow:
		return "slow"
	default:
		return "empty"
	}
}

// CircuitSnapshot is an immutable view of a CircuitBreaker's state.
type CircuitSnapshot struct {
	Service         string
	State           State
	Window          []string
	Cursor          int
	LastTransition  time.Time
	PermittedProbes int
	ProbesConsumed  int
}
