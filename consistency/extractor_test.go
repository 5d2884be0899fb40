package consistency

import (
	"slices"
	"testing"

	"github.com/jonwraymond/regenops/story"
)

func TestPatternExtractor_Physical(t *testing.T) {
	tests := []struct {
		desc string
		want PhysicalTraits
	}{
		{
			desc: "Mia has brown hair and blue eyes.",
			want: PhysicalTraits{HairColor: "brown", EyeColor: "blue"},
		},
		{
			desc: "A girl with Red hair, who has green eyes. Her favorite color is Purple.",
			want: PhysicalTraits{HairColor: "red", EyeColor: "green", FavoriteColor: "purple"},
		},
		{
			desc: "Leo has freckles, wears glasses and walks with curly hair flowing. He has freckles.",
			want: PhysicalTraits{HairColor: "curly", AdditionalFeatures: []string{"freckles", "glasses", "curly hair"}},
		},
		{
			desc: "His favourite colour is teal.",
			want: PhysicalTraits{FavoriteColor: "teal"},
		},
		{
			desc: "",
			want: PhysicalTraits{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := PatternExtractor{}.Extract(tt.desc).Physical
			if got.HairColor != tt.want.HairColor || got.EyeColor != tt.want.EyeColor || got.FavoriteColor != tt.want.FavoriteColor {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
			if !slices.Equal(got.AdditionalFeatures, tt.want.AdditionalFeatures) {
				t.Errorf("features = %v, want %v", got.AdditionalFeatures, tt.want.AdditionalFeatures)
			}
		})
	}
}

func TestPatternExtractor_Personality(t *testing.T) {
	tests := []struct {
		desc string
		want []string
	}{
		{"Mia is brave, kind and curious.", []string{"brave", "kind", "curious"}},
		{"Sam is very shy. Sam loves reading and animals.", []string{"shy", "loves reading", "loves animals"}},
		{"Ava is a 7-year-old who is quiet and prefers staying indoors.", []string{"quiet", "indoors"}},
		{"Noah is tall and is brave. Noah is brave.", []string{"brave"}},
		{"Zoe loves dragons and reading.", nil},
		{"This island is gentle", []string{"gentle"}},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := NewPatternExtractor().Extract(tt.desc).Personality
			if !slices.Equal(got, tt.want) {
				t.Errorf("Personality = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		form story.Form
		want string
	}{
		{
			name: "everything",
			form: story.Form{
				ChildName: "Mia", ChildAge: 6,
				Traits:    []string{"brave", "kind"},
				Interests: []string{"dragons", "space"},
				PhysicalTraits: story.PhysicalTraits{
					HairColor: "brown", EyeColor: "blue", FavoriteColor: "green",
				},
			},
			want: "Mia is a 6-year-old, with brown hair and blue eyes who is brave, kind and loves dragons, space. Their favorite color is green.",
		},
		{
			name: "minimal",
			form: story.Form{ChildName: "Leo", ChildAge: 4},
			want: "Leo is a 4-year-old.",
		},
		{
			name: "eyes and interests only",
			form: story.Form{
				ChildName: "Ava", ChildAge: 9,
				Interests:      []string{"", "chess"},
				PhysicalTraits: story.PhysicalTraits{EyeColor: "hazel"},
			},
			want: "Ava is a 9-year-old, with hazel eyes who loves chess.",
		},
		{
			name: "hair and traits",
			form: story.Form{
				ChildName: "Sam", ChildAge: 5,
				Traits:         []string{"shy"},
				PhysicalTraits: story.PhysicalTraits{HairColor: "black"},
			},
			want: "Sam is a 5-year-old, with black hair who is shy.",
		},
		{
			name: "no name or age",
			form: story.Form{PhysicalTraits: story.PhysicalTraits{FavoriteColor: "red"}},
			want: "The child is a child. Their favorite color is red.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.form); got != tt.want {
				t.Errorf("Describe() =\n  %q\nwant\n  %q", got, tt.want)
			}
		})
	}
}

func TestDescribe_RoundTrip(t *testing.T) {
	form := story.Form{
		ChildName: "Mia", ChildAge: 6,
		Traits:    []string{"brave", "curious", "gentle"},
		Interests: []string{"reading", "nature"},
		PhysicalTraits: story.PhysicalTraits{
			HairColor: "auburn", EyeColor: "grey", FavoriteColor: "yellow",
		},
	}
	got := PatternExtractor{}.Extract(Describe(form))

	want := PhysicalTraits{HairColor: "auburn", EyeColor: "grey", FavoriteColor: "yellow"}
	if got.Physical.HairColor != want.HairColor || got.Physical.EyeColor != want.EyeColor || got.Physical.FavoriteColor != want.FavoriteColor {
		t.Errorf("physical = %+v, want %+v", got.Physical, want)
	}
	wantTraits := []string{"brave", "curious", "gentle", "loves reading", "loves nature"}
	if !slices.Equal(got.Personality, wantTraits) {
		t.Errorf("personality = %v, want %v", got.Personality, wantTraits)
	}
}
