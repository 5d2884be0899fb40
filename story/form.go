package story

// Story-creation field names, as they appear in partial parameter records.
const (
	FieldChildName      = "childName"
	FieldChildAge       = "childAge"
	FieldPronoun        = "pronoun"
	FieldTraits         = "traits"
	FieldInterests      = "interests"
	FieldPhysicalTraits = "physicalTraits"
	FieldStoryTheme     = "storyTheme"
	FieldStoryLength    = "storyLength"

	FieldHairColor     = "hairColor"
	FieldEyeColor      = "eyeColor"
	FieldFavoriteColor = "favoriteColor"
)

// Themes accepted for a story.
var Themes = []string{"adventure", "friendship", "mystery", "fantasy", "educational"}

// Lengths accepted for a story.
var Lengths = []string{"short", "medium", "long"}

// Child age bounds, inclusive.
const (
	MinChildAge = 3
	MaxChildAge = 12
)

// PhysicalTraits describe how the child looks.
type PhysicalTraits struct {
	HairColor     string `json:"hairColor"`
	EyeColor      string `json:"eyeColor"`
	FavoriteColor string `json:"favoriteColor"`
}

// Form is a complete story-creation form.
type Form struct {
	ChildName      string         `json:"childName"`
	ChildAge       int            `json:"childAge"`
	Pronoun        string         `json:"pronoun"`
	Traits         []string       `json:"traits"`
	Interests      []string       `json:"interests"`
	PhysicalTraits PhysicalTraits `json:"physicalTraits"`
	StoryTheme     string         `json:"storyTheme"`
	StoryLength    string         `json:"storyLength"`
}

// FormFromDocument builds the form a regeneration of doc starts from,
// overlaying any modified parameters. Unset parameters keep the document's
// values; theme and length fall back to adventure and medium.
func FormFromDocument(doc *Document, params Params) Form {
	form := Form{
		StoryTheme:  "adventure",
		StoryLength: "medium",
	}
	if doc != nil {
		form.ChildName = doc.ChildName
		form.ChildAge = doc.ChildAge
		form.PhysicalTraits.FavoriteColor = doc.FavoriteColor
	}
	if v, ok := params.String(FieldChildName); ok && v != "" {
		form.ChildName = v
	}
	if v, ok := params.Int(FieldChildAge); ok && v != 0 {
		form.ChildAge = v
	}
	if v, ok := params.String(FieldPronoun); ok {
		form.Pronoun = v
	}
	if v, ok := params.Strings(FieldInterests); ok {
		form.Interests = v
	}
	if v, ok := params.Strings(FieldTraits); ok {
		form.Traits = v
	}
	if v, ok := params.String(FieldStoryTheme); ok && v != "" {
		form.StoryTheme = v
	}
	if v, ok := params.String(FieldStoryLength); ok && v != "" {
		form.StoryLength = v
	}
	if pt, ok := params.PhysicalTraits(); ok {
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
	return form
}
