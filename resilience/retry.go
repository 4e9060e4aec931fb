package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/aperturestack/svcclient/svcerr"
)

// RetryConfig configures taxonomy-driven retry. Adapted from the teacher's
// BackoffStrategy/calculateDelay/jitter math, but the retry decision itself
// comes from the ServiceError returned by an attempt rather than a caller
// RetryIf callback.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial
	// one). Default: 3.
	MaxAttempts int

	// BaseBackoff seeds the exponential backoff. Default: 100ms.
	BaseBackoff time.Duration

	// MaxBackoff caps the computed delay. Default: 30s.
	MaxBackoff time.Duration

	// Jitter is the fraction of the computed delay randomized away,
	// in [0,1). Default: 0.25.
	Jitter float64

	// OnRetry is called before each retry attempt, after the delay has been
	// computed but before sleeping.
	OnRetry func(attempt int, err *svcerr.ServiceError, delay time.Duration)
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Jitter <= 0 {
		c.Jitter = 0.25
	}
}

// Retry decides whether and how long to wait before the next attempt,
// consulting only ServiceError.Retryable()/SuggestedDelay() — never a
// caller-supplied predicate.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a retry policy.
func NewRetry(config RetryConfig) *Retry {
	config.applyDefaults()
	return &Retry{config: config}
}

// Decision is the outcome of evaluating whether to retry after a failed
// attempt.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Evaluate decides whether attempt (0-indexed) should be retried given err
// and the time remaining until the caller's deadline (zero deadline means no
// deadline). Mirrors: not retryable => no; attempt+1 >= maxAttempts => no;
// else delay = min(maxBackoff, max(suggestedDelay, baseBackoff*2^attempt)) *
// (1 - jitter*rand()); if deadline remaining < delay => no.
func (r *Retry) Evaluate(err *svcerr.ServiceError, attempt int, deadlineRemaining time.Duration, hasDeadline bool) Decision {
	if err == nil || !err.Retryable() {
		return Decision{Retry: false}
	}
	if attempt+1 >= r.config.MaxAttempts {
		return Decision{Retry: false}
	}

	delay := r.calculateDelay(attempt, err.SuggestedDelay())

	if hasDeadline && deadlineRemaining < delay {
		return Decision{Retry: false}
	}

	return Decision{Retry: true, Delay: delay}
}

// Execute runs op, retrying per Evaluate until it succeeds, a non-retryable
// error is returned, attempts are exhausted, or ctx is cancelled.
func (r *Retry) Execute(ctx context.Context, op func(ctx context.Context, attempt int) (*svcerr.ServiceError, error)) error {
	for attempt := 0; ; attempt++ {
		svcErr, err := op(ctx, attempt)
		if svcErr == nil {
			return err
		}

		var remaining time.Duration
		var hasDeadline bool
		if dl, ok := ctx.Deadline(); ok {
			remaining = time.Until(dl)
			hasDeadline = true
		}

		decision := r.Evaluate(svcErr, attempt, remaining, hasDeadline)
		if !decision.Retry {
			return svcErr
		}

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, svcErr, decision.Delay)
		}

		select {
		case <-ctx.Done():
			return svcErr
		case <-time.After(decision.Delay):
		}
	}
}

func (r *Retry) calculateDelay(attempt int, suggested time.Duration) time.Duration {
	exponential := time.Duration(float64(r.config.BaseBackoff) * math.Pow(2, float64(attempt)))

	delay := suggested
	if exponential > delay {
		delay = exponential
	}
	if delay > r.config.MaxBackoff {
		delay = r.config.MaxBackoff
	}

	if r.config.Jitter > 0 && delay > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		reduction := time.Duration(float64(delay) * r.config.Jitter * rand.Float64())
		delay -= reduction
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
