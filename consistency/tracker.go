package consistency

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/regenops/observe"
	"github.com/jonwraymond/regenops/persist"
	"github.com/jonwraymond/regenops/story"
)

// DefaultMaxProfiles bounds the number of tracked profiles.
const DefaultMaxProfiles = 50

// noteTimeLayout timestamps consistency notes with millisecond precision.
const noteTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Report messages.
const (
	MsgNoProfile         = "No existing character profile found"
	SuggestConsistency   = "Consider maintaining character consistency for better story flow"
	SuggestNewCharacter  = "Major character changes detected - consider creating a new character instead"
	notSpecified         = "not specified"
	consistentScoreFloor = 70
)

// contradictions maps a personality trait to interests that clash with it.
// Matching is a case-insensitive substring test on the interest.
var contradictions = map[string][]string{
	"shy":        {"performing", "stage", "spotlight"},
	"quiet":      {"loud music", "concerts", "parties"},
	TraitIndoors: {"hiking", "camping", "outdoor sports"},
	"gentle":     {"fighting", "wrestling", "combat sports"},
}

// Tracker maintains character profiles, one per story.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent TrackCharacter calls
//     for one story are serialized; the last writer wins.
//   - Errors: persistence failures are logged and never returned.
//   - Ownership: returned profiles are copies.
type Tracker struct {
	mu       sync.RWMutex
	profiles map[string]*Profile

	extractor   Extractor
	store       persist.Store
	logger      observe.Logger
	now         func() time.Time
	maxProfiles int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source. Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithStore sets where profiles are persisted. Default: persist.NoopStore
func WithStore(s persist.Store) Option {
	return func(t *Tracker) {
		if s != nil {
			t.store = s
		}
	}
}

// WithLogger sets the logger. Default: observe.NopLogger
func WithLogger(l observe.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithExtractor replaces the trait extractor. Default: PatternExtractor
func WithExtractor(e Extractor) Option {
	return func(t *Tracker) {
		if e != nil {
			t.extractor = e
		}
	}
}

// WithMaxProfiles bounds the number of tracked profiles.
// Default: DefaultMaxProfiles
func WithMaxProfiles(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxProfiles = n
		}
	}
}

// New creates a Tracker and loads persisted profiles. Load failures leave
// the tracker empty.
func New(ctx context.Context, opts ...Option) *Tracker {
	t := &Tracker{
		profiles:    make(map[string]*Profile),
		extractor:   PatternExtractor{},
		store:       persist.NoopStore{},
		logger:      observe.NopLogger(),
		now:         time.Now,
		maxProfiles: DefaultMaxProfiles,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(observe.F("component", "consistency"))
	t.load(ctx)
	return t
}

// TrackCharacter builds or refreshes the profile for doc. Traits are
// re-extracted from the description, the version is incremented and
// existing notes are carried forward.
func (t *Tracker) TrackCharacter(ctx context.Context, doc *story.Document) (*Profile, error) {
	if doc == nil {
		return nil, ErrNilStory
	}
	if strings.TrimSpace(doc.ID) == "" {
		return nil, ErrEmptyStoryID
	}

	traits := t.extractor.Extract(doc.CharacterDescription)
	if traits.Physical.FavoriteColor == "" && doc.FavoriteColor != "" {
		traits.Physical.FavoriteColor = strings.ToLower(doc.FavoriteColor)
	}

	t.mu.Lock()
	profile := &Profile{
		StoryID:           doc.ID,
		Name:              doc.ChildName,
		Age:               doc.ChildAge,
		PhysicalTraits:    traits.Physical,
		PersonalityTraits: traits.Personality,
		BaseDescription:   doc.CharacterDescription,
		LastUpdated:       t.now(),
		Version:           1,
	}
	if prev, ok := t.profiles[doc.ID]; ok {
		profile.ConsistencyNotes = append([]string(nil), prev.ConsistencyNotes...)
		profile.Version = prev.Version + 1
	}
	t.profiles[doc.ID] = profile
	t.trimLocked()
	out := profile.Clone()
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.logger.Debug(ctx, "tracked character",
		observe.F("story_id", doc.ID), observe.F("version", out.Version))
	t.save(ctx, snapshot)
	return out, nil
}

// CheckConsistency compares proposed story parameters with the tracked
// profile. Without a profile the proposal is consistent with score 100.
func (t *Tracker) CheckConsistency(ctx context.Context, storyID string, proposed story.Params) Report {
	t.mu.RLock()
	profile := t.profiles[storyID].Clone()
	t.mu.RUnlock()

	if profile == nil {
		return Report{
			IsConsistent:  true,
			Warnings:      []string{MsgNoProfile},
			Suggestions:   []string{},
			ChangedTraits: []ChangedTrait{},
			Score:         100,
		}
	}

	report := Report{
		Warnings:      []string{},
		Suggestions:   []string{},
		ChangedTraits: []ChangedTrait{},
	}

	if name, ok := proposed.String(story.FieldChildName); ok && name != "" && name != profile.Name {
		report.ChangedTraits = append(report.ChangedTraits, ChangedTrait{
			Trait: "name", OldValue: profile.Name, NewValue: name, Severity: SeverityHigh,
		})
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Character name changing from %q to %q", profile.Name, name))
	}

	if age, ok := proposed.Int(story.FieldChildAge); ok && age != 0 && age != profile.Age {
		change := ageChange(profile.Age, age)
		report.ChangedTraits = append(report.ChangedTraits, change)
		if change.Severity == SeverityHigh {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("Significant age change from %d to %d", profile.Age, age))
		}
	}

	if pt, ok := proposed.PhysicalTraits(); ok {
		report.ChangedTraits = appendColorChange(report.ChangedTraits, "hairColor", profile.PhysicalTraits.HairColor, pt.HairColor, SeverityMedium)
		report.ChangedTraits = appendColorChange(report.ChangedTraits, "eyeColor", profile.PhysicalTraits.EyeColor, pt.EyeColor, SeverityMedium)
		report.ChangedTraits = appendColorChange(report.ChangedTraits, "favoriteColor", profile.PhysicalTraits.FavoriteColor, pt.FavoriteColor, SeverityLow)
	}

	if interests, ok := proposed.Strings(story.FieldInterests); ok {
		for _, trait := range profile.PersonalityTraits {
			clashes, ok := contradictions[trait]
			if !ok {
				continue
			}
			for _, interest := range interests {
				lower := strings.ToLower(interest)
				for _, c := range clashes {
					if strings.Contains(lower, c) {
						report.Warnings = append(report.Warnings,
							fmt.Sprintf("Interest %q may conflict with character trait %q", interest, trait))
						break
					}
				}
			}
		}
	}

	if len(report.ChangedTraits) > 0 {
		report.Suggestions = append(report.Suggestions, SuggestConsistency)
	}
	high := report.HighSeverityCount()
	if high > 0 {
		report.Suggestions = append(report.Suggestions, SuggestNewCharacter)
	}

	score := 100
	for _, c := range report.ChangedTraits {
		if !c.exempt {
			score -= c.Severity.penalty()
		}
	}
	report.Score = min(max(score, 0), 100)
	report.IsConsistent = report.Score >= consistentScoreFloor && high == 0

	t.logger.Debug(ctx, "checked consistency",
		observe.F("story_id", storyID),
		observe.F("score", report.Score),
		observe.F("changed", len(report.ChangedTraits)))
	return report
}

// ageChange grades an age difference: more than two years is high, more
// than one is medium. A one-year drift is low and not scored.
func ageChange(old, proposed int) ChangedTrait {
	diff := proposed - old
	if diff < 0 {
		diff = -diff
	}
	c := ChangedTrait{
		Trait:    "age",
		OldValue: strconv.Itoa(old),
		NewValue: strconv.Itoa(proposed),
	}
	switch {
	case diff > 2:
		c.Severity = SeverityHigh
	case diff > 1:
		c.Severity = SeverityMedium
	default:
		c.Severity = SeverityLow
		c.exempt = true
	}
	return c
}

func appendColorChange(changes []ChangedTrait, trait, old, proposed string, sev Severity) []ChangedTrait {
	if proposed == "" || strings.EqualFold(proposed, old) {
		return changes
	}
	if old == "" {
		old = notSpecified
	}
	return append(changes, ChangedTrait{Trait: trait, OldValue: old, NewValue: proposed, Severity: sev})
}

// GenerateConsistentDescription describes form, with the profile's tracked
// appearance overriding the form wherever the profile has a value.
func (t *Tracker) GenerateConsistentDescription(storyID string, form story.Form) string {
	t.mu.RLock()
	profile, ok := t.profiles[storyID]
	if ok {
		pt := profile.PhysicalTraits
		if pt.HairColor != "" {
			form.PhysicalTraits.HairColor = pt.HairColor
		}
		if pt.EyeColor != "" {
			form.PhysicalTraits.EyeColor = pt.EyeColor
		}
		if pt.FavoriteColor != "" {
			form.PhysicalTraits.FavoriteColor = pt.FavoriteColor
		}
	}
	t.mu.RUnlock()

	return Describe(form)
}

// AddConsistencyNote appends a timestamped note to the story's profile.
// It does nothing when no profile exists.
func (t *Tracker) AddConsistencyNote(ctx context.Context, storyID, note string) {
	t.mu.Lock()
	profile, ok := t.profiles[storyID]
	if !ok {
		t.mu.Unlock()
		return
	}
	now := t.now()
	profile.ConsistencyNotes = append(profile.ConsistencyNotes,
		now.UTC().Format(noteTimeLayout)+": "+note)
	profile.LastUpdated = now
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.save(ctx, snapshot)
}

// Profile returns a copy of the story's profile.
func (t *Tracker) Profile(storyID string) (*Profile, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.profiles[storyID]
	return p.Clone(), ok
}

// ClearProfiles forgets every profile and removes the persisted set.
func (t *Tracker) ClearProfiles(ctx context.Context) {
	t.mu.Lock()
	t.profiles = make(map[string]*Profile)
	t.mu.Unlock()

	if err := t.store.Delete(ctx, persist.ProfilesKey); err != nil {
		t.logger.Warn(ctx, "failed to clear persisted profiles",
			observe.F("store.key", persist.ProfilesKey), observe.F("error", err))
	}
}

// Stats summarizes the tracked profiles. Ties for the most consistent
// character go to the lowest story id.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.profiles) == 0 {
		return Stats{}
	}

	var versions, notes int
	var best *Profile
	for _, p := range t.profiles {
		versions += p.Version
		notes += len(p.ConsistencyNotes)
		if best == nil ||
			len(p.ConsistencyNotes) < len(best.ConsistencyNotes) ||
			(len(p.ConsistencyNotes) == len(best.ConsistencyNotes) && p.StoryID < best.StoryID) {
			best = p
		}
	}

	avg := float64(versions) / float64(len(t.profiles))
	return Stats{
		TotalProfiles:           len(t.profiles),
		AverageVersion:          math.Round(avg*10) / 10,
		MostConsistentCharacter: best.Name,
		TotalConsistencyNotes:   notes,
	}
}

// trimLocked drops the least recently updated profiles beyond the cap.
func (t *Tracker) trimLocked() {
	if len(t.profiles) <= t.maxProfiles {
		return
	}
	ordered := t.orderedLocked()
	for _, p := range ordered[t.maxProfiles:] {
		delete(t.profiles, p.StoryID)
	}
}

// orderedLocked returns profiles, most recently updated first.
func (t *Tracker) orderedLocked() []*Profile {
	out := make([]*Profile, 0, len(t.profiles))
	for _, p := range t.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.After(out[j].LastUpdated)
		}
		return out[i].StoryID < out[j].StoryID
	})
	return out
}

func (t *Tracker) snapshotLocked() []*Profile {
	ordered := t.orderedLocked()
	out := make([]*Profile, len(ordered))
	for i, p := range ordered {
		out[i] = p.Clone()
	}
	return out
}

func (t *Tracker) save(ctx context.Context, profiles []*Profile) {
	if err := persist.SaveJSON(ctx, t.store, persist.ProfilesKey, profiles); err != nil {
		t.logger.Warn(ctx, "failed to persist character profiles",
			observe.F("store.key", persist.ProfilesKey), observe.F("error", err))
	}
}

func (t *Tracker) load(ctx context.Context) {
	var profiles []*Profile
	found, err := persist.LoadJSON(ctx, t.store, persist.ProfilesKey, &profiles)
	if err != nil {
		t.logger.Warn(ctx, "failed to load character profiles",
			observe.F("store.key", persist.ProfilesKey), observe.F("error", err))
		return
	}
	if !found {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range profiles {
		if p == nil || p.StoryID == "" {
			continue
		}
		t.profiles[p.StoryID] = p
	}
	t.trimLocked()
}
