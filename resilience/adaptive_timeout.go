package resilience

import (
	"sync"
	"time"
)

// AdaptiveTimeoutConfig bounds an observed-latency-driven per-attempt
// timeout: a fixed timeout is replaced with one derived from running
// latency and failure statistics.
type AdaptiveTimeoutConfig struct {
	// BaseTimeout is returned until at least 10 samples have been recorded.
	// Default: 5s.
	BaseTimeout time.Duration

	// MaxTimeout upper-bounds the computed effective timeout. Default: 60s.
	MaxTimeout time.Duration
}

func (c *AdaptiveTimeoutConfig) applyDefaults() {
	if c.BaseTimeout <= 0 {
		c.BaseTimeout = 5 * time.Second
	}
	if c.MaxTimeout <= 0 {
		c.MaxTimeout = 60 * time.Second
	}
}

// minSamplesForAdaptive is the sample count below which Effective() always
// returns BaseTimeout.
const minSamplesForAdaptive = 10

// AdaptiveTimeout maintains a count-weighted mean of successful attempt
// latencies and a failure count, computing an effective per-attempt timeout
// as clamp(base, max, mean * multiplier) where
// multiplier = 2 * (1 + failureRate). Timeout failures are excluded from the
// mean but counted as failures.
type AdaptiveTimeout struct {
	config AdaptiveTimeoutConfig

	mu           sync.Mutex
	successMean  float64 // milliseconds
	successCount int64
	failureCount int64
}

// NewAdaptiveTimeout creates an adaptive timeout tracker for one service.
func NewAdaptiveTimeout(config AdaptiveTimeoutConfig) *AdaptiveTimeout {
	config.applyDefaults()
	return &AdaptiveTimeout{config: config}
}

// RecordSuccess folds a successful attempt's latency into the running mean.
func (a *AdaptiveTimeout) RecordSuccess(latency time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ms := float64(latency.Milliseconds())
	a.successCount++
	// Count-weighted incremental mean: mean_n = mean_{n-1} + (x - mean_{n-1})/n
	a.successMean += (ms - a.successMean) / float64(a.successCount)
}

// RecordFailure counts a failed attempt. Timeout failures are excluded from
// the latency mean but still counted here.
func (a *AdaptiveTimeout) RecordFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failureCount++
}

// Effective returns the timeout to apply to the next attempt. A caller-
// supplied per-call timeout always takes precedence over this value —
// callers check that before invoking Effective.
func (a *AdaptiveTimeout) Effective() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := a.successCount + a.failureCount
	if total < minSamplesForAdaptive {
		return a.config.BaseTimeout
	}

	failureRate := float64(a.failureCount) / float64(total)
	multiplier := 2 * (1 + failureRate)
	computed := time.Duration(a.successMean*multiplier) * time.Millisecond

	return clampDuration(computed, a.config.BaseTimeout, a.config.MaxTimeout)
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// Snapshot returns an immutable view of the tracker's state.
func (a *AdaptiveTimeout) Snapshot() AdaptiveTimeoutSnapshot {
	return AdaptiveTimeoutSnapshot{
		BaseTimeout:      a.config.BaseTimeout,
		MaxTimeout:       a.config.MaxTimeout,
		SuccessMeanMs:    a.successMean,
		SuccessCount:     a.successCount,
		FailureCount:     a.failureCount,
		EffectiveTimeout: a.Effective(),
	}
}

// AdaptiveTimeoutSnapshot is an immutable view of an AdaptiveTimeout.
type AdaptiveTimeoutSnapshot struct {
	BaseTimeout      time.Duration
	MaxTimeout       time.Duration
	SuccessMeanMs    float64
	SuccessCount     int64
	FailureCount     int64
	EffectiveTimeout time.Duration
}
