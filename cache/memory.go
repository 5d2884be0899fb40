package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/jonwraymond/regenops/observe"
	"github.com/jonwraymond/regenops/persist"
	"github.com/jonwraymond/regenops/story"
)

// RegenCache is the in-memory regeneration cache with best-effort
// persistence.
//
// Entries live for Policy.TTL. When the population exceeds
// Policy.MaxEntries, the oldest Policy.EvictFraction of entries by creation
// time are dropped, ties broken by insertion order. Every mutation writes
// the live set to the store under persist.CacheKey; store failures are
// logged and never returned.
type RegenCache struct {
	mu      sync.Mutex
	entries map[string]*slot
	seq     uint64

	policy  Policy
	keyer   Keyer
	store   persist.Store
	logger  observe.Logger
	metrics observe.Metrics
	now     func() time.Time
}

type slot struct {
	entry *Entry
	seq   uint64
}

// Option configures a RegenCache.
type Option func(*RegenCache)

// WithClock sets the time source. Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(c *RegenCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithStore sets the persistence backend. Default: persist.NoopStore
func WithStore(s persist.Store) Option {
	return func(c *RegenCache) {
		if s != nil {
			c.store = s
		}
	}
}

// WithLogger sets the logger. Default: observe.NopLogger
func WithLogger(l observe.Logger) Option {
	return func(c *RegenCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records hit/miss counts. Default: observe.NoopMetrics
func WithMetrics(m observe.Metrics) Option {
	return func(c *RegenCache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithKeyer overrides the identity derivation. Default: DefaultKeyer
func WithKeyer(k Keyer) Option {
	return func(c *RegenCache) {
		if k != nil {
			c.keyer = k
		}
	}
}

// New creates a RegenCache and loads any persisted entries that are still
// fresh. Load failures leave the cache empty.
func New(ctx context.Context, policy Policy, opts ...Option) *RegenCache {
	c := &RegenCache{
		entries: make(map[string]*slot),
		policy:  policy.withDefaults(),
		keyer:   NewDefaultKeyer(),
		store:   persist.NoopStore{},
		logger:  observe.NopLogger(),
		metrics: observe.NoopMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(observe.F("component", "regen_cache"))
	c.load(ctx)
	return c
}

// Policy returns the effective policy.
func (c *RegenCache) Policy() Policy { return c.policy }

// Get returns a copy of the live entry for key.
func (c *RegenCache) Get(ctx context.Context, key RequestKey) (*Entry, bool) {
	id, ok := c.identity(key)
	if !ok {
		c.metrics.RecordCacheLookup(ctx, false)
		return nil, false
	}

	c.mu.Lock()
	s, found := c.entries[id]
	if found && s.entry.Expired(c.now()) {
		delete(c.entries, id)
		found = false
	}
	var out *Entry
	if found {
		out = s.entry.clone()
	}
	c.mu.Unlock()

	c.metrics.RecordCacheLookup(ctx, found)
	return out, found
}

// Has reports whether a live entry exists for key.
func (c *RegenCache) Has(ctx context.Context, key RequestKey) bool {
	_, ok := c.Get(ctx, key)
	return ok
}

// Set stores a copy of result under key.
func (c *RegenCache) Set(ctx context.Context, key RequestKey, result *story.Document) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if result == nil {
		return ErrNilResult
	}
	id, err := c.keyer.Key(key)
	if err != nil {
		return err
	}

	now := c.now()
	entry := &Entry{
		Key:       key,
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(c.policy.TTL),
	}

	c.mu.Lock()
	c.seq++
	c.entries[id] = &slot{entry: entry.clone(), seq: c.seq}
	evicted := c.evictLocked()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if evicted > 0 {
		c.logger.Debug(ctx, "evicted oldest cache entries", observe.F("evicted", evicted))
	}
	c.save(ctx, snapshot)
	return nil
}

// InvalidateStory removes every entry for storyID.
func (c *RegenCache) InvalidateStory(ctx context.Context, storyID string) {
	c.mu.Lock()
	removed := 0
	for id, s := range c.entries {
		if s.entry.Key.StoryID == storyID {
			delete(c.entries, id)
			removed++
		}
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug(ctx, "invalidated story", observe.F("story_id", storyID), observe.F("removed", removed))
	c.save(ctx, snapshot)
}

// Clear removes all entries and the persisted snapshot.
func (c *RegenCache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]*slot)
	c.mu.Unlock()

	if err := c.store.Delete(ctx, persist.CacheKey); err != nil {
		c.logger.Warn(ctx, "failed to clear persisted cache",
			observe.F("store.key", persist.CacheKey), observe.F("error", err))
	}
}

// Stats summarizes the current population, expired entries included until
// they are swept or read.
func (c *RegenCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{TotalEntries: len(c.entries)}
	if stats.TotalEntries == 0 {
		return stats
	}

	var oldest, newest time.Time
	for _, s := range c.entries {
		created := s.entry.CreatedAt
		if oldest.IsZero() || created.Before(oldest) {
			oldest = created
		}
		if newest.IsZero() || created.After(newest) {
			newest = created
		}
		if data, err := json.Marshal(s.entry); err == nil {
			stats.MemoryUsageEstimate += utf16Len(data) * 2
		}
	}
	stats.OldestEntryTime = &oldest
	stats.NewestEntryTime = &newest
	return stats
}

// Sweep removes all expired entries and re-persists the live set when any
// were removed. It returns the number removed.
func (c *RegenCache) Sweep(ctx context.Context) int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for id, s := range c.entries {
		if s.entry.Expired(now) {
			delete(c.entries, id)
			removed++
		}
	}
	var snapshot []*Entry
	if removed > 0 {
		snapshot = c.snapshotLocked()
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug(ctx, "swept expired cache entries", observe.F("removed", removed))
		c.save(ctx, snapshot)
	}
	return removed
}

// Run sweeps every Policy.SweepInterval until ctx is done.
func (c *RegenCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.policy.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

func (c *RegenCache) identity(key RequestKey) (string, bool) {
	if ValidateKey(key) != nil {
		return "", false
	}
	id, err := c.keyer.Key(key)
	if err != nil {
		return "", false
	}
	return id, true
}

// evictLocked drops the oldest entries once the cap is exceeded.
func (c *RegenCache) evictLocked() int {
	n := c.policy.EvictCount(len(c.entries))
	if n == 0 {
		return 0
	}

	type ranked struct {
		id string
		s  *slot
	}
	all := make([]ranked, 0, len(c.entries))
	for id, s := range c.entries {
		all = append(all, ranked{id: id, s: s})
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].s, all[j].s
		if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
			return a.entry.CreatedAt.Before(b.entry.CreatedAt)
		}
		return a.seq < b.seq
	})
	for _, r := range all[:n] {
		delete(c.entries, r.id)
	}
	return n
}

// snapshotLocked returns the entries in insertion order.
func (c *RegenCache) snapshotLocked() []*Entry {
	slots := make([]*slot, 0, len(c.entries))
	for _, s := range c.entries {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].seq < slots[j].seq })

	out := make([]*Entry, len(slots))
	for i, s := range slots {
		out[i] = s.entry
	}
	return out
}

func (c *RegenCache) save(ctx context.Context, entries []*Entry) {
	if err := persist.SaveJSON(ctx, c.store, persist.CacheKey, entries); err != nil {
		c.logger.Warn(ctx, "failed to persist regeneration cache",
			observe.F("store.key", persist.CacheKey), observe.F("error", err))
	}
}

// load restores fresh entries from the store, dropping expired ones.
func (c *RegenCache) load(ctx context.Context) {
	var entries []*Entry
	found, err := persist.LoadJSON(ctx, c.store, persist.CacheKey, &entries)
	if err != nil {
		c.logger.Warn(ctx, "failed to load regeneration cache",
			observe.F("store.key", persist.CacheKey), observe.F("error", err))
		return
	}
	if !found {
		return
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		if e == nil || e.Result == nil || e.Expired(now) {
			continue
		}
		id, ok := c.identity(e.Key)
		if !ok {
			continue
		}
		c.seq++
		c.entries[id] = &slot{entry: e, seq: c.seq}
	}
	c.evictLocked()
}

func utf16Len(data []byte) int {
	n := 0
	for _, r := range string(data) {
		n += utf16.RuneLen(r)
	}
	return n
}

var _ Cache = (*RegenCache)(nil)
