package resilience

import (
	"context"
	"sync"
	"time"
)

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the number of slots. Default: 10
	MaxConcurrent int

	// MaxWait is how long a caller queues for a slot. Zero rejects at once.
	MaxWait time.Duration
}

// Bulkhead bounds concurrent calls.
type Bulkhead struct {
	cfg   BulkheadConfig
	slots chan struct{}

	mu       sync.Mutex
	active   int
	peak     int
	rejected int64
}

// NewBulkhead creates a Bulkhead.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	return &Bulkhead{cfg: cfg, slots: make(chan struct{}, cfg.MaxConcurrent)}
}

// Acquire takes a slot, waiting up to MaxWait. It returns ErrBulkheadFull
// when none frees up, or the context error if ctx ends first.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		b.track(1)
		return nil
	default:
	}
	if b.cfg.MaxWait <= 0 {
		b.reject()
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.cfg.MaxWait)
	defer timer.Stop()
	select {
	case b.slots <- struct{}{}:
		b.track(1)
		return nil
	case <-timer.C:
		b.reject()
		return ErrBulkheadFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	select {
	case <-b.slots:
		b.track(-1)
	default:
	}
}

// Execute runs op inside a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

func (b *Bulkhead) track(delta int) {
	b.mu.Lock()
	b.active += delta
	b.peak = max(b.peak, b.active)
	b.mu.Unlock()
}

func (b *Bulkhead) reject() {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
}

// BulkheadMetrics is a snapshot of a Bulkhead.
type BulkheadMetrics struct {
	Active        int
	MaxActive     int
	Available     int
	MaxConcurrent int
	Rejected      int64
}

// Metrics returns a snapshot of the bulkhead.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BulkheadMetrics{
		Active:        b.active,
		MaxActive:     b.peak,
		Available:     b.cfg.MaxConcurrent - b.active,
		MaxConcurrent: b.cfg.MaxConcurrent,
		Rejected:      b.rejected,
	}
}
