package persist

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// OpenConfig selects and configures a backend.
type OpenConfig struct {
	Backend    string
	Redis      RedisConfig
	SQLitePath string

	// Resilient wraps network and disk backends in a ResilientStore.
	Resilient bool
}

// Open constructs the configured Store.
func Open(ctx context.Context, cfg OpenConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendNone, "":
		return NewNoopStore(), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		s, err = NewRedisStore(ctx, cfg.Redis)
	case BackendSQLite:
		s, err = NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Resilient {
		s = NewResilientStore(s, ResilientConfig{})
	}
	return s, nil
}
