package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/aperturestack/svcclient/svcerr"
)

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the maximum number of in-flight calls. Default: 10.
	MaxConcurrent int

	// MaxWait is the maximum time to wait for a slot before failing fast
	// with BulkheadFull. Default: 0 (no waiting, fail immediately).
	MaxWait time.Duration
}

func (c *BulkheadConfig) applyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 10
	}
}

// Bulkhead limits concurrent in-flight calls to one service via a
// channel-based semaphore. Fairness is FIFO-ish (Go's channel send queue)
// but not guaranteed.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}

	mu        sync.Mutex
	active    int
	maxActive int
	rejected  int64
}

// NewBulkhead creates a bulkhead for one service.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	config.applyDefaults()
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Acquire blocks up to MaxWait for a slot. Returns a BulkheadFull
// ServiceError on wait timeout, or ctx.Err() if ctx is cancelled first.
func (b *Bulkhead) Acquire(ctx context.Context, errCtx svcerr.ErrorContext) error {
	select {
	case b.sem <- struct{}{}:
		b.noteAcquired()
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		b.noteRejected()
		return svcerr.NewBulkheadFull(errCtx)
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		b.noteAcquired()
		return nil
	case <-timer.C:
		b.noteRejected()
		return svcerr.NewBulkheadFull(errCtx)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot to the pool. It must be called exactly once per
// successful Acquire, on every exit path (success, error, or cancellation).
func (b *Bulkhead) Release() {
	select {
	case <-b.sem:
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	default:
	}
}

func (b *Bulkhead) noteAcquired() {
	b.mu.Lock()
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	b.mu.Unlock()
}

func (b *Bulkhead) noteRejected() {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
}

// Snapshot returns an immutable view of bulkhead occupancy.
func (b *Bulkhead) Snapshot() BulkheadSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BulkheadSnapshot{
		Capacity:   b.config.MaxConcurrent,
		Outstanding: b.active,
		MaxObserved: b.maxActive,
		Rejected:    b.rejected,
	}
}

// BulkheadSnapshot is an immutable view of a Bulkhead.
type BulkheadSnapshot struct {
	Capacity    int
	Outstanding int
	MaxObserved int
	Rejected    int64
}
