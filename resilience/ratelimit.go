package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aperturestack/svcclient/svcerr"
)

// ErrRateLimitWaitExceeded is returned by WaitN when MaxWait elapses without
// a token becoming available. It is a general-purpose sentinel for callers
// that explicitly opt into blocking acquisition (e.g. the OAuth2 cache's
// outbound refresh calls); the pipeline's gate uses TryAcquire instead, which
// returns a *svcerr.ServiceError.
var ErrRateLimitWaitExceeded = errors.New("resilience: rate limit wait exceeded")

// RateLimiterConfig configures a per-service token bucket. Adapted from the
// teacher's resilience/ratelimit.go.
type RateLimiterConfig struct {
	// RequestsPerSecond is the refill rate. Default: 100.
	RequestsPerSecond float64

	// BurstCapacity is the maximum token bucket size. Default: 10.
	BurstCapacity int

	// MaxWait bounds WaitN's blocking acquisition. Default: 1 second.
	MaxWait time.Duration
}

func (c *RateLimiterConfig) applyDefaults() {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 100
	}
	if c.BurstCapacity <= 0 {
		c.BurstCapacity = 10
	}
	if c.MaxWait <= 0 {
		c.MaxWait = time.Second
	}
}

// RateLimiter is a token bucket with fractional, lazily-computed refill
// driven by monotonic time.
type RateLimiter struct {
	config RateLimiterConfig

	mu          sync.Mutex
	tokens      float64
	lastRefill  time.Time
}

// NewRateLimiter creates a rate limiter for one service.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	config.applyDefaults()
	return &RateLimiter{
		config:     config,
		tokens:     float64(config.BurstCapacity),
		lastRefill: time.Now(),
	}
}

// TryAcquire is the pipeline gate's non-blocking acquire: admits if >=1
// token is available, else returns a RateLimit ServiceError.
func (rl *RateLimiter) TryAcquire(errCtx svcerr.ErrorContext) error {
	if rl.AllowN(1) {
		return nil
	}
	return svcerr.NewRateLimited(errCtx)
}

// Allow is AllowN(1).
func (rl *RateLimiter) Allow() bool { return rl.AllowN(1) }

// AllowN reports whether n tokens are currently available, consuming them if
// so.
func (rl *RateLimiter) AllowN(n int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()

	if rl.tokens >= float64(n) {
		rl.tokens -= float64(n)
		return true
	}
	return false
}

// Wait is WaitN(ctx, 1); a convenience blocking acquire for callers outside
// the pipeline gate (e.g. OAuth2 token refresh) that explicitly want to wait
// rather than fail fast.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.WaitN(ctx, 1)
}

// WaitN blocks until n tokens are available, ctx is cancelled, or MaxWait
// elapses.
func (rl *RateLimiter) WaitN(ctx context.Context, n int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if rl.AllowN(n) {
		return nil
	}

	rl.mu.Lock()
	tokensNeeded := float64(n) - rl.tokens
	waitTime := time.Duration(tokensNeeded / rl.config.RequestsPerSecond * float64(time.Second))
	rl.mu.Unlock()

	if waitTime > rl.config.MaxWait {
		waitTime = rl.config.MaxWait
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(waitTime):
		if rl.AllowN(n) {
			return nil
		}
		return ErrRateLimitWaitExceeded
	}
}

func (rl *RateLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	rl.lastRefill = now

	rl.tokens += elapsed.Seconds() * rl.config.RequestsPerSecond
	if rl.tokens > float64(rl.config.BurstCapacity) {
		rl.tokens = float64(rl.config.BurstCapacity)
	}
}

// Snapshot returns an immutable view of bucket state.
func (rl *RateLimiter) Snapshot() RateLimiterSnapshot {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return RateLimiterSnapshot{
		Tokens:            rl.tokens,
		LastRefill:        rl.lastRefill,
		RequestsPerSecond: rl.config.RequestsPerSecond,
		BurstCapacity:     rl.config.BurstCapacity,
	}
}

// Reset refills the bucket to full capacity.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = float64(rl.config.BurstCapacity)
	rl.lastRefill = time.Now()
}

// RateLimiterSnapshot is an immutable view of a RateLimiter.
type RateLimiterSnapshot struct {
	Tokens            float64
	LastRefill        time.Time
	RequestsPerSecond float64
	BurstCapacity     int
}
