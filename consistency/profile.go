package consistency

import (
	"slices"
	"time"
)

// PhysicalTraits are the tracked aspects of a character's appearance.
// Empty strings mean "not specified".
type PhysicalTraits struct {
	HairColor          string   `json:"hairColor"`
	EyeColor           string   `json:"eyeColor"`
	FavoriteColor      string   `json:"favoriteColor"`
	AdditionalFeatures []string `json:"additionalFeatures,omitempty"`
}

// Profile is the accumulated record of a story's protagonist.
type Profile struct {
	StoryID           string         `json:"id"`
	Name              string         `json:"name"`
	Age               int            `json:"age"`
	PhysicalTraits    PhysicalTraits `json:"physicalTraits"`
	PersonalityTraits []string       `json:"personalityTraits"`
	BaseDescription   string         `json:"baseCharacterDescription"`
	ConsistencyNotes  []string       `json:"consistencyNotes"`
	LastUpdated       time.Time      `json:"lastUpdated"`

	// Version is incremented by every TrackCharacter call, starting at 1.
	Version int `json:"version"`
}

// Clone returns a deep copy of p.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.PhysicalTraits.AdditionalFeatures = slices.Clone(p.PhysicalTraits.AdditionalFeatures)
	out.PersonalityTraits = slices.Clone(p.PersonalityTraits)
	out.ConsistencyNotes = slices.Clone(p.ConsistencyNotes)
	return &out
}

// Severity grades a trait change.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// penalty is the score deduction for one change of this severity.
func (s Severity) penalty() int {
	switch s {
	case SeverityHigh:
		return 30
	case SeverityMedium:
		return 15
	case SeverityLow:
		return 5
	}
	return 0
}

// ChangedTrait records one proposed deviation from the profile.
type ChangedTrait struct {
	Trait    string   `json:"trait"`
	OldValue string   `json:"oldValue"`
	NewValue string   `json:"newValue"`
	Severity Severity `json:"severity"`

	// exempt changes are reported but not scored.
	exempt bool
}

// Report is the outcome of CheckConsistency.
type Report struct {
	IsConsistent  bool           `json:"isConsistent"`
	Warnings      []string       `json:"warnings"`
	Suggestions   []string       `json:"suggestions"`
	ChangedTraits []ChangedTrait `json:"changedTraits"`

	// Score is 100 minus the severity penalties, clamped to [0, 100].
	Score int `json:"consistencyScore"`
}

// HighSeverityCount returns the number of high-severity changes.
func (r Report) HighSeverityCount() int {
	n := 0
	for _, c := range r.ChangedTraits {
		if c.Severity == SeverityHigh {
			n++
		}
	}
	return n
}

// Stats summarizes the tracked profiles.
type Stats struct {
	TotalProfiles int `json:"totalProfiles"`

	// AverageVersion is the mean Version, rounded to one decimal.
	AverageVersion float64 `json:"averageVersion"`

	// MostConsistentCharacter is the name on the profile with the fewest
	// consistency notes.
	MostConsistentCharacter string `json:"mostConsistentCharacter,omitempty"`

	TotalConsistencyNotes int `json:"totalConsistencyNotes"`
}
