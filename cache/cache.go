package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonwraymond/regenops/story"
)

// MaxKeyLength is the maximum allowed length for a story identifier.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache    = errors.New("cache: cache is nil")
	ErrInvalidKey  = errors.New("cache: key is invalid")
	ErrKeyTooLong  = errors.New("cache: key exceeds max length")
	ErrInvalidKind = errors.New("cache: regeneration kind is invalid")
	ErrNilResult   = errors.New("cache: result is nil")
)

// RequestKey is the semantic identity of a regeneration request.
//
// Two keys are equivalent when StoryID and Kind match, PageNumbers match as
// sets and ModifiedParams match as key/value sets. Empty PageNumbers and
// empty ModifiedParams are the same as omitted ones.
type RequestKey struct {
	StoryID        string       `json:"storyId"`
	Kind           story.Kind   `json:"kind"`
	PageNumbers    []int        `json:"pageNumbers,omitempty"`
	ModifiedParams story.Params `json:"modifiedParams,omitempty"`
}

// Entry is a cached regeneration result.
type Entry struct {
	Key       RequestKey      `json:"key"`
	Result    *story.Document `json:"result"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Expired reports whether the entry is stale at now.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

func (e *Entry) clone() *Entry {
	out := *e
	out.Result = e.Result.Clone()
	out.Key.PageNumbers = append([]int(nil), e.Key.PageNumbers...)
	out.Key.ModifiedParams = e.Key.ModifiedParams.Clone()
	return &out
}

// Stats summarizes the cache population.
type Stats struct {
	TotalEntries int `json:"totalEntries"`

	// MemoryUsageEstimate is the approximate footprint in bytes, counting two
	// bytes per character of each entry's JSON form.
	MemoryUsageEstimate int `json:"memoryUsageEstimate"`

	OldestEntryTime *time.Time `json:"oldestEntryTime,omitempty"`
	NewestEntryTime *time.Time `json:"newestEntryTime,omitempty"`
}

// Cache stores regeneration results by request identity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Get never errors; it returns (nil, false) on miss or expiry.
// - Ownership: Get returns a copy; Set stores a copy of result.
type Cache interface {
	// Get returns the live entry for key. Expired entries are removed and
	// reported as absent.
	Get(ctx context.Context, key RequestKey) (*Entry, bool)

	// Set stores result under key with a fresh TTL.
	Set(ctx context.Context, key RequestKey, result *story.Document) error

	// Has reports whether Get would return an entry.
	Has(ctx context.Context, key RequestKey) bool

	// InvalidateStory removes every entry for storyID, regardless of kind.
	InvalidateStory(ctx context.Context, storyID string)

	// Clear removes all entries.
	Clear(ctx context.Context)

	// Stats summarizes the live population.
	Stats() Stats
}

// ValidateKey checks if a request key can be cached.
func ValidateKey(key RequestKey) error {
	if strings.TrimSpace(key.StoryID) == "" {
		return ErrInvalidKey
	}
	if len(key.StoryID) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key.StoryID, "\n\r") {
		return ErrInvalidKey
	}
	if !key.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}
