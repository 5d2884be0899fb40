package consistency

import (
	"regexp"
	"slices"
	"strings"
)

// Traits is what an Extractor finds in a character description.
type Traits struct {
	Physical    PhysicalTraits
	Personality []string
}

// Extractor derives traits from a free-text character description.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Determinism: the same description must yield the same traits.
// - Output: values are lower-case and de-duplicated, in order of appearance.
type Extractor interface {
	Extract(description string) Traits
}

// Adjectives is the personality vocabulary recognized after "is".
var Adjectives = []string{
	"brave", "kind", "curious", "adventurous", "shy", "outgoing", "creative",
	"smart", "funny", "helpful", "quiet", "gentle", "playful", "happy", "friendly",
}

// Hobbies is the vocabulary recognized after "loves"; each match becomes the
// trait "loves <hobby>".
var Hobbies = []string{
	"reading", "playing", "exploring", "learning", "animals", "nature",
	"drawing", "painting", "music", "dancing", "science",
}

// TraitIndoors is recorded for characters who prefer staying inside.
const TraitIndoors = "indoors"

var (
	hairPattern     = regexp.MustCompile(`(?i)\b(?:has|with)\s+(\w+(?:\s+\w+)?)\s+hair\b`)
	eyePattern      = regexp.MustCompile(`(?i)\b(?:has|with|and)\s+(\w+(?:\s+\w+)?)\s+eyes\b`)
	favoritePattern = regexp.MustCompile(`(?i)\b(?:favorite|favourite)\s+(?:color|colour)\s+is\s+(\w+)`)
	indoorsPattern  = regexp.MustCompile(`(?i)\b(?:prefers|loves|likes)\s+(?:being|staying|playing)\s+indoors\b`)

	featurePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bhas\s+(freckles|dimples|glasses|braces)\b`),
		regexp.MustCompile(`(?i)\bwears\s+(glasses|braces|a hat)\b`),
		regexp.MustCompile(`(?i)\bwith\s+((?:curly|straight|wavy)\s+hair)\b`),
	}

	sentenceSplit = regexp.MustCompile(`[.!?;]+`)
	tokenPattern  = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*|,`)
)

// listFillers may appear between listed words without ending the list.
var listFillers = []string{",", "and", "a", "an", "very", "really", "quite", "so"}

// PatternExtractor is the default regular-expression Extractor.
type PatternExtractor struct{}

// NewPatternExtractor creates a PatternExtractor.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Extract implements Extractor.
func (PatternExtractor) Extract(description string) Traits {
	t := Traits{
		Physical: PhysicalTraits{
			HairColor:     firstGroup(hairPattern, description),
			EyeColor:      firstGroup(eyePattern, description),
			FavoriteColor: firstGroup(favoritePattern, description),
		},
	}

	var features []string
	for _, p := range featurePatterns {
		for _, m := range p.FindAllStringSubmatch(description, -1) {
			features = appendUnique(features, strings.ToLower(m[1]))
		}
	}
	t.Physical.AdditionalFeatures = features

	var personality []string
	for _, sentence := range sentenceSplit.Split(description, -1) {
		tokens := tokenPattern.FindAllString(strings.ToLower(sentence), -1)
		for i, tok := range tokens {
			switch tok {
			case "is", "are":
				for _, w := range listAfter(tokens[i+1:], Adjectives) {
					personality = appendUnique(personality, w)
				}
			case "loves":
				for _, w := range listAfter(tokens[i+1:], Hobbies) {
					personality = appendUnique(personality, "loves "+w)
				}
			}
		}
	}
	if indoorsPattern.MatchString(description) {
		personality = appendUnique(personality, TraitIndoors)
	}
	t.Personality = personality

	return t
}

var _ Extractor = PatternExtractor{}

// listAfter collects vocabulary words from the start of tokens, skipping
// fillers, until the first word outside the vocabulary.
func listAfter(tokens []string, vocabulary []string) []string {
	var out []string
	for _, tok := range tokens {
		if slices.Contains(listFillers, tok) {
			continue
		}
		if !slices.Contains(vocabulary, tok) {
			break
		}
		out = append(out, tok)
	}
	return out
}

func firstGroup(p *regexp.Regexp, s string) string {
	m := p.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
