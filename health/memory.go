package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures MemoryChecker.
type MemoryCheckerConfig struct {
	// Limit is the heap size considered full, in bytes. Zero uses the
	// memory obtained from the OS.
	Limit uint64

	// Warning is the fill ratio that degrades. Default: 0.8
	Warning float64

	// Critical is the fill ratio that is unhealthy. Default: 0.95
	Critical float64
}

// MemoryChecker reports heap usage against a limit.
type MemoryChecker struct {
	cfg      MemoryCheckerConfig
	readStat func(*runtime.MemStats)
}

// NewMemoryChecker creates a MemoryChecker. Out-of-range thresholds take
// their defaults, and Critical is kept at or above Warning.
func NewMemoryChecker(cfg MemoryCheckerConfig) *MemoryChecker {
	if cfg.Warning <= 0 || cfg.Warning >= 1 {
		cfg.Warning = 0.8
	}
	if cfg.Critical <= 0 || cfg.Critical >= 1 {
		cfg.Critical = 0.95
	}
	if cfg.Critical < cfg.Warning {
		cfg.Critical = cfg.Warning
	}
	return &MemoryChecker{cfg: cfg, readStat: runtime.ReadMemStats}
}

func (m *MemoryChecker) Name() string { return "memory" }

func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context done", err)
	}

	var stats runtime.MemStats
	m.readStat(&stats)
	limit := m.cfg.Limit
	if limit == 0 {
		limit = stats.Sys
	}
	if limit == 0 {
		return Healthy("memory stats unavailable")
	}

	ratio := float64(stats.HeapAlloc) / float64(limit)
	details := map[string]any{
		"heap_alloc_bytes": stats.HeapAlloc,
		"limit_bytes":      limit,
		"usage_percent":    ratio * 100,
		"goroutines":       runtime.NumGoroutine(),
	}
	msg := fmt.Sprintf("heap at %.1f%%", ratio*100)
	switch {
	case ratio >= m.cfg.Critical:
		return Unhealthy(msg, nil).WithDetails(details)
	case ratio >= m.cfg.Warning:
		return Degraded(msg).WithDetails(details)
	}
	return Healthy(msg).WithDetails(details)
}
