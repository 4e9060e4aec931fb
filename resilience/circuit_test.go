package resilience

import (
	"sync"
	"testing"
	"time"

	"github.com/aperturestack/svcclient/svcerr"
)

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker("svc", CircuitBreakerConfig{})

	if cb.config.SlidingWindowSize != 20 {
		t.Errorf("SlidingWindowSize = %d, want 20", cb.config.SlidingWindowSize)
	}
	if cb.config.MinimumNumberOfCalls != 10 {
		t.Errorf("MinimumNumberOfCalls = %d, want 10", cb.config.MinimumNumberOfCalls)
	}
	if cb.config.FailureRateThreshold != 50 {
		t.Errorf("FailureRateThreshold = %v, want 50", cb.config.FailureRateThreshold)
	}
	if cb.config.WaitDurationInOpenState != 30*time.Second {
		t.Errorf("WaitDurationInOpenState = %v, want 30s", cb.config.WaitDurationInOpenState)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OpensAtFailureRateThreshold(t *testing.T) {
	cb := NewCircuitBreaker("svc", CircuitBreakerConfig{
		SlidingWindowSize:    10,
		MinimumNumberOfCalls: 10,
		FailureRateThreshold: 50,
	})

	for i := 0; i < 4; i++ {
		cb.Record(true, false)
	}
	for i := 0; i < 5; i++ {
		cb.Record(false, false)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v before minimum calls reached", cb.State())
	}

	// Tenth call (failure) reaches the minimum-calls floor with 6 failures of
	// 10 (60%), at or above the 50% threshold.
	cb.Record(false, false)

	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open", cb.State())
	}
}

func TestCircuitBreaker_OpenRejectsUntilWaitDurationElapses(t *testing.T) {
	cb := NewCircuitBreaker("svc", CircuitBreakerConfig{
		MinimumNumberOfCalls:    1,
		FailureRateThreshold:    1,
		WaitDurationInOpenState: 10 * time.Millisecond,
	})
	cb.Record(false, false)
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	errCtx := svcerr.ErrorContext{Service: "svc"}
	if err := cb.Allow(errCtx); err == nil || err.Kind() != svcerr.KindCircuitBreakerOpen {
		t.Fatalf("Allow() = %v, want CircuitBreakerOpen", err)
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Allow(errCtx); err != nil {
		t.Errorf("Allow() after wait duration = %v, want nil (half-open probe admitted)", err)
	}
	if cb.State() != StateHalfOpen {
		t.Errorf("state = %v, want half-open", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbeLimitEnforced(t *testing.T) {
	cb := NewCircuitBreaker("svc", CircuitBreakerConfig{
		MinimumNumberOfCalls:    1,
		FailureRateThreshold:    1,
		WaitDurationInOpenState: time.Millisecond,
		PermittedProbes:         1,
	})
	cb.Record(false, false)
	time.Sleep(5 * time.Millisecond)

	errCtx := svcerr.ErrorContext{Service: "svc"}
	if err := cb.Allow(errCtx); err != nil {
		t.Fatalf("first probe rejected: %v", err)
	}
	if err := cb.Allow(errCtx); err == nil {
		t.Errorf("second concurrent probe admitted, want rejection")
	}
}

func TestCircuitBreaker_HalfOpenSuccessCloses(t *testing.T) {
	cb := NewCircuitBreaker("svc", CircuitBreakerConfig{
		MinimumNumberOfCalls:    1,
		FailureRateThreshold:    1,
		WaitDurationInOpenState: time.Millisecond,
	})
	cb.Record(false, false)
	time.Sleep(5 * time.Millisecond)

	errCtx := svcerr.ErrorContext{Service: "svc"}
	if err := cb.Allow(errCtx); err != nil {
		t.Fatalf("probe rejected: %v", err)
	}
	cb.Record(true, false)

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("svc", CircuitBreakerConfig{
		MinimumNumberOfCalls:    1,
		FailureRateThreshold:    1,
		WaitDurationInOpenState: time.Millisecond,
	})
	cb.Record(false, false)
	time.Sleep(5 * time.Millisecond)

	errCtx := svcerr.ErrorContext{Service: "svc"}
	if err := cb.Allow(errCtx); err != nil {
		t.Fatalf("probe rejected: %v", err)
	}
	cb.Record(false, false)

	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open", cb.State())
	}
}

func TestCircuitBreaker_RecordCancelledDoesNotCountAsFailure(t *testing.T) {
	cb := NewCircuitBreaker("svc", CircuitBreakerConfig{
		MinimumNumberOfCalls: 1,
		FailureRateThreshold: 1,
	})
	errCtx := svcerr.ErrorContext{Service: "svc"}
	if err := cb.Allow(errCtx); err != nil {
		t.Fatalf("Allow() = %v", err)
	}
	cb.RecordCancelled()

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed (cancellation must not count as failure)", cb.State())
	}
	if cb.Snapshot().Cursor != 0 {
		t.Errorf("cancellation must not be pushed onto the window")
	}
}

func TestCircuitBreaker_SlowCallsIgnoredUnlessEnabled(t *testing.T) {
	cb := NewCircuitBreaker("svc", CircuitBreakerConfig{
		MinimumNumberOfCalls: 2,
		FailureRateThreshold: 1,
		SlowCallRateEnabled:  false,
	})
	cb.Record(true, true)
	cb.Record(true, true)

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed (slow calls must not count when disabled)", cb.State())
	}
}

func TestCircuitBreaker_SlowCallsCountWhenEnabled(t *testing.T) {
	cb := NewCircuitBreaker("svc", CircuitBreakerConfig{
		MinimumNumberOfCalls: 2,
		FailureRateThreshold: 50,
		SlowCallRateEnabled:  true,
	})
	cb.Record(true, true)
	cb.Record(true, true)

	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open (slow calls must count when enabled)", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("svc", CircuitBreakerConfig{
		MinimumNumberOfCalls: 1,
		FailureRateThreshold: 1,
	})
	cb.Record(false, false)
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("after reset, state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var mu sync.Mutex
	var transitions []struct{ from, to State }

	cb := NewCircuitBreaker("svc", CircuitBreakerConfig{
		MinimumNumberOfCalls:    1,
		FailureRateThreshold:    1,
		WaitDurationInOpenState: time.Millisecond,
		OnStateChange: func(service string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, struct{ from, to State }{from, to})
		},
	})

	cb.Record(false, false)
	time.Sleep(5 * time.Millisecond)
	errCtx := svcerr.ErrorContext{Service: "svc"}
	_ = cb.Allow(errCtx)
	cb.Record(true, false)

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) < 3 {
		t.Fatalf("expected at least 3 transitions (closed->open->half-open->closed), got %d", len(transitions))
	}
	if transitions[0].from != StateClosed || transitions[0].to != StateOpen {
		t.Errorf("first transition = %v -> %v, want closed -> open", transitions[0].from, transitions[0].to)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
