package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/regenops/cache"
	"github.com/jonwraymond/regenops/persist"
	"github.com/jonwraymond/regenops/resilience"
)

// StoreChecker pings the persistence store. An unreachable store degrades
// the service without making it unhealthy: every component keeps serving
// from memory.
func StoreChecker(s persist.Store) Checker {
	return NewCheckerFunc("store", func(ctx context.Context) Result {
		if err := s.Ping(ctx); err != nil {
			r := Degraded("store unreachable, serving from memory")
			r.Err = err
			return r
		}
		return Healthy("store reachable")
	})
}

// CacheStats is the part of a cache the checker reads.
type CacheStats interface {
	Stats() cache.Stats
}

// CacheChecker reports the regeneration cache fill level. A full cache is
// degraded because every insert then evicts.
func CacheChecker(c CacheStats, maxEntries int) Checker {
	return NewCheckerFunc("cache", func(context.Context) Result {
		stats := c.Stats()
		details := map[string]any{
			"total_entries":      stats.TotalEntries,
			"max_entries":        maxEntries,
			"memory_usage_bytes": stats.MemoryUsageEstimate,
		}
		if maxEntries > 0 && stats.TotalEntries >= maxEntries {
			return Degraded(fmt.Sprintf("cache full: %d/%d entries", stats.TotalEntries, maxEntries)).WithDetails(details)
		}
		return Healthy(fmt.Sprintf("%d cached results", stats.TotalEntries)).WithDetails(details)
	})
}

// BreakerChecker reports a circuit breaker. An open breaker is unhealthy
// when critical is set and degraded otherwise; half-open is degraded.
func BreakerChecker(name string, state func() resilience.State, critical bool) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		s := state()
		details := map[string]any{"state": s.String()}
		switch s {
		case resilience.StateOpen:
			if critical {
				return Unhealthy(name+" circuit open", resilience.ErrCircuitOpen).WithDetails(details)
			}
			return Degraded(name + " circuit open").WithDetails(details)
		case resilience.StateHalfOpen:
			return Degraded(name + " circuit recovering").WithDetails(details)
		}
		return Healthy(name + " circuit closed").WithDetails(details)
	})
}
