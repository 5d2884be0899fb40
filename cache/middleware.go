package cache

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/regenops/observe"
	"github.com/jonwraymond/regenops/story"
)

// GenerateFunc produces a fresh regeneration result.
type GenerateFunc func(ctx context.Context) (*story.Document, error)

// Outcome describes how Middleware.Execute produced its result.
type Outcome struct {
	// Hit is true when the result came from the cache.
	Hit bool

	// Shared is true when the result came from a concurrent call for the
	// same key.
	Shared bool
}

// Middleware runs generation on cache miss and stores successful results.
//
// Contract:
//   - Concurrency: concurrent misses for the same identity share one call
//     to the GenerateFunc.
//   - Errors: generation errors are returned and never cached. Cache write
//     failures are logged and do not fail the call.
//   - Ownership: every caller receives its own copy of the result.
type Middleware struct {
	cache  Cache
	keyer  Keyer
	group  singleflight.Group
	logger observe.Logger
}

// NewMiddleware creates a cache middleware. A nil keyer uses DefaultKeyer;
// a nil logger discards output.
func NewMiddleware(c Cache, keyer Keyer, logger observe.Logger) *Middleware {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Middleware{cache: c, keyer: keyer, logger: logger}
}

// Execute returns the cached result for key, or calls generate and caches
// what it returns. Keys that cannot be cached bypass the cache entirely.
func (m *Middleware) Execute(ctx context.Context, key RequestKey, generate GenerateFunc) (*story.Document, Outcome, error) {
	if m.cache == nil {
		return nil, Outcome{}, ErrNilCache
	}

	if ValidateKey(key) != nil {
		doc, err := generate(ctx)
		return doc, Outcome{}, err
	}
	id, err := m.keyer.Key(key)
	if err != nil {
		doc, err := generate(ctx)
		return doc, Outcome{}, err
	}

	if entry, ok := m.cache.Get(ctx, key); ok {
		return entry.Result, Outcome{Hit: true}, nil
	}

	v, err, shared := m.group.Do(id, func() (any, error) {
		doc, err := generate(ctx)
		if err != nil {
			return nil, err
		}
		if err := m.cache.Set(ctx, key, doc); err != nil {
			m.logger.Warn(ctx, "failed to cache regeneration result",
				observe.F("story_id", key.StoryID), observe.F("error", err))
		}
		return doc, nil
	})
	if err != nil {
		return nil, Outcome{Shared: shared}, err
	}
	return v.(*story.Document).Clone(), Outcome{Shared: shared}, nil
}
