package cache

import (
	"math"
	"time"
)

// Policy configures the regeneration cache.
type Policy struct {
	// TTL is how long a result stays fresh. Default: 10 minutes
	TTL time.Duration

	// MaxEntries caps the live population. Default: 50
	MaxEntries int

	// EvictFraction is the share of entries, oldest first, dropped when the
	// cap is exceeded. Default: 0.25
	EvictFraction float64

	// SweepInterval is the period of the background expiry sweep.
	// Default: 5 minutes
	SweepInterval time.Duration
}

// DefaultPolicy returns the default regeneration cache policy.
func DefaultPolicy() Policy {
	return Policy{
		TTL:           10 * time.Minute,
		MaxEntries:    50,
		EvictFraction: 0.25,
		SweepInterval: 5 * time.Minute,
	}
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.TTL <= 0 {
		p.TTL = d.TTL
	}
	if p.MaxEntries <= 0 {
		p.MaxEntries = d.MaxEntries
	}
	if p.EvictFraction <= 0 || p.EvictFraction > 1 {
		p.EvictFraction = d.EvictFraction
	}
	if p.SweepInterval <= 0 {
		p.SweepInterval = d.SweepInterval
	}
	return p
}

// EvictCount returns how many of n entries to evict. It is zero while n is
// within the cap, and never leaves more than MaxEntries behind.
func (p Policy) EvictCount(n int) int {
	if n <= p.MaxEntries {
		return 0
	}
	count := int(math.Floor(float64(n) * p.EvictFraction))
	return max(count, n-p.MaxEntries)
}
