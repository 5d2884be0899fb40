package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Well-known keys shared by the regeneration components.
const (
	// CacheKey holds the regeneration cache snapshot.
	CacheKey = "storybook_regeneration_cache"

	// ProfilesKey holds the character profile snapshot.
	ProfilesKey = "character_consistency_profiles"

	// rateLogPrefix prefixes the per-story regeneration history key.
	rateLogPrefix = "regeneration_history_"
)

// RateLogKey returns the key holding a story's regeneration timestamps.
func RateLogKey(storyID string) string {
	return rateLogPrefix + storyID
}

// Store is a durable key-value store holding opaque snapshots.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Load returns ErrNotFound on miss; Delete is idempotent.
type Store interface {
	// Load returns the snapshot stored under key.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the snapshot stored under key.
	Save(ctx context.Context, key string, data []byte) error

	// Delete removes the snapshot stored under key.
	Delete(ctx context.Context, key string) error

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}

// LoadJSON loads the snapshot under key and decodes it into v.
// found is false, with a nil error, when nothing is stored.
func LoadJSON(ctx context.Context, s Store, key string, v any) (found bool, err error) {
	data, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("persist: decode %q: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("persist: encode %q: %w", key, err)
	}
	return s.Save(ctx, key, data)
}
