package validate

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jonwraymond/regenops/observe"
	"github.com/jonwraymond/regenops/persist"
)

// RateLog is a rolling per-story log of regeneration times.
//
// A story's history is read from the store on first use and kept in memory
// only while it holds times inside the retention window. Stories with no
// recorded regenerations are never held in memory. Histories are persisted
// under persist.RateLogKey as a JSON array of Unix millisecond timestamps.
//
// When the store cannot be read the in-memory history still counts, loading
// is retried on the next access, and nothing is written for that story
// until a load succeeds, so stored history is never overwritten by a
// partial view.
type RateLog struct {
	mu        sync.Mutex
	stories   map[string]*history
	store     persist.Store
	retention time.Duration
	logger    observe.Logger
}

type history struct {
	times    []time.Time
	hydrated bool
}

func newRateLog(store persist.Store, retention time.Duration, logger observe.Logger) *RateLog {
	if store == nil {
		store = persist.NoopStore{}
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &RateLog{
		stories:   make(map[string]*history),
		store:     store,
		retention: retention,
		logger:    logger,
	}
}

// CountSince returns the number of regenerations of storyID strictly after
// since. A non-nil error means persisted history could not be read; the
// count then reflects in-memory history only.
func (r *RateLog) CountSince(ctx context.Context, storyID string, since time.Time) (int, error) {
	err := r.hydrate(ctx, storyID)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	if h, ok := r.stories[storyID]; ok {
		for _, t := range h.times {
			if t.After(since) {
				n++
			}
		}
	}
	return n, err
}

// Record appends now to storyID's history, drops entries older than the
// retention window and persists the result. Histories of other stories
// left empty by the window are released.
func (r *RateLog) Record(ctx context.Context, storyID string, now time.Time) {
	key := persist.RateLogKey(storyID)
	loadErr := r.hydrate(ctx, storyID)
	if loadErr != nil {
		r.logger.Warn(ctx, "failed to load regeneration history",
			observe.F("store.key", key), observe.F("error", loadErr))
	}

	cutoff := now.Add(-r.retention)

	r.mu.Lock()
	h, ok := r.stories[storyID]
	if !ok {
		// Absent after a successful load means nothing was stored.
		h = &history{hydrated: loadErr == nil}
		r.stories[storyID] = h
	}
	h.times = append(h.times, time.UnixMilli(now.UnixMilli()))
	r.pruneLocked(cutoff)
	hydrated := h.hydrated
	snapshot := make([]int64, len(h.times))
	for i, t := range h.times {
		snapshot[i] = t.UnixMilli()
	}
	r.mu.Unlock()

	if !hydrated {
		return
	}
	if err := persist.SaveJSON(ctx, r.store, key, snapshot); err != nil {
		r.logger.Warn(ctx, "failed to record regeneration history",
			observe.F("store.key", key), observe.F("error", err))
	}
}

// pruneLocked drops times at or before cutoff and releases histories left
// empty.
func (r *RateLog) pruneLocked(cutoff time.Time) {
	for id, h := range r.stories {
		h.times = slices.DeleteFunc(h.times, func(t time.Time) bool { return !t.After(cutoff) })
		if len(h.times) == 0 {
			delete(r.stories, id)
		}
	}
}

// hydrate merges persisted history into memory the first time storyID is
// read successfully. Nothing is kept for a story with no stored history.
func (r *RateLog) hydrate(ctx context.Context, storyID string) error {
	r.mu.Lock()
	h, ok := r.stories[storyID]
	done := ok && h.hydrated
	r.mu.Unlock()
	if done {
		return nil
	}

	var stored []int64
	if _, err := persist.LoadJSON(ctx, r.store, persist.RateLogKey(storyID), &stored); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok = r.stories[storyID]
	if !ok {
		if len(stored) == 0 {
			return nil
		}
		h = &history{}
		r.stories[storyID] = h
	}
	if h.hydrated {
		return nil
	}
	for _, ms := range stored {
		if !slices.ContainsFunc(h.times, func(t time.Time) bool { return t.UnixMilli() == ms }) {
			h.times = append(h.times, time.UnixMilli(ms))
		}
	}
	slices.SortFunc(h.times, func(a, b time.Time) int { return a.Compare(b) })
	h.hydrated = true
	return nil
}
