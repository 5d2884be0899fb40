package cache

import (
	"errors"
	"strings"
	"testing"

	"github.com/jonwraymond/regenops/story"
)

func mustKey(t *testing.T, k RequestKey) string {
	t.Helper()
	id, err := DeriveKey(k)
	if err != nil {
		t.Fatalf("DeriveKey(%+v): %v", k, err)
	}
	return id
}

func TestDeriveKey_Format(t *testing.T) {
	tests := []struct {
		name string
		key  RequestKey
		want string
	}{
		{
			name: "story only",
			key:  RequestKey{StoryID: "s1", Kind: story.KindStory},
			want: "s1|story",
		},
		{
			name: "pages sorted numerically and de-duplicated",
			key:  RequestKey{StoryID: "s1", Kind: story.KindPage, PageNumbers: []int{10, 2, 2, 1}},
			want: "s1|page|pages:1,2,10",
		},
		{
			name: "empty pages treated as absent",
			key:  RequestKey{StoryID: "s1", Kind: story.KindPage, PageNumbers: []int{}},
			want: "s1|page",
		},
		{
			name: "empty params treated as absent",
			key:  RequestKey{StoryID: "s1", Kind: story.KindStory, ModifiedParams: story.Params{}},
			want: "s1|story",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustKey(t, tt.key); got != tt.want {
				t.Errorf("DeriveKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveKey_ParamsSegment(t *testing.T) {
	id := mustKey(t, RequestKey{
		StoryID:        "s1",
		Kind:           story.KindStory,
		ModifiedParams: story.Params{"childAge": 7},
	})
	if !strings.HasPrefix(id, "s1|story|params:") {
		t.Fatalf("unexpected key %q", id)
	}
	want := "s1|story|params:" + HashString(`{"childAge":7}`)
	if id != want {
		t.Errorf("DeriveKey() = %q, want %q", id, want)
	}
}

func TestDeriveKey_OrderIndependence(t *testing.T) {
	a := RequestKey{
		StoryID:     "s1",
		Kind:        story.KindPage,
		PageNumbers: []int{3, 1, 2},
		ModifiedParams: story.Params{
			"childName":  "Mia",
			"storyTheme": "mystery",
			"interests":  []any{"dragons", "space"},
			"physicalTraits": map[string]any{
				"hairColor": "red",
				"eyeColor":  "green",
			},
		},
	}
	b := RequestKey{
		StoryID:     "s1",
		Kind:        story.KindPage,
		PageNumbers: []int{2, 3, 1},
		ModifiedParams: story.Params{
			"physicalTraits": map[string]any{
				"eyeColor":  "green",
				"hairColor": "red",
			},
			"interests":  []any{"dragons", "space"},
			"storyTheme": "mystery",
			"childName":  "Mia",
		},
	}

	for i := 0; i < 20; i++ {
		if ka, kb := mustKey(t, a), mustKey(t, b); ka != kb {
			t.Fatalf("keys differ: %q vs %q", ka, kb)
		}
	}
}

func TestDeriveKey_StructAndMapParamsMatch(t *testing.T) {
	asMap := RequestKey{StoryID: "s1", Kind: story.KindStory, ModifiedParams: story.Params{
		"physicalTraits": map[string]any{"hairColor": "red", "eyeColor": "", "favoriteColor": ""},
	}}
	asStruct := RequestKey{StoryID: "s1", Kind: story.KindStory, ModifiedParams: story.Params{
		"physicalTraits": story.PhysicalTraits{HairColor: "red"},
	}}
	if mustKey(t, asMap) != mustKey(t, asStruct) {
		t.Error("struct and map params should derive the same key")
	}
}

func TestDeriveKey_Distinguishes(t *testing.T) {
	base := RequestKey{StoryID: "s1", Kind: story.KindStory, ModifiedParams: story.Params{"childAge": 7}}
	variants := []RequestKey{
		{StoryID: "s2", Kind: story.KindStory, ModifiedParams: story.Params{"childAge": 7}},
		{StoryID: "s1", Kind: story.KindImages, ModifiedParams: story.Params{"childAge": 7}},
		{StoryID: "s1", Kind: story.KindStory, ModifiedParams: story.Params{"childAge": 8}},
		{StoryID: "s1", Kind: story.KindStory},
	}
	baseID := mustKey(t, base)
	for _, v := range variants {
		if mustKey(t, v) == baseID {
			t.Errorf("key %+v collides with base", v)
		}
	}
}

func TestDeriveKey_UnencodableParams(t *testing.T) {
	_, err := DeriveKey(RequestKey{StoryID: "s1", Kind: story.KindStory, ModifiedParams: story.Params{"bad": make(chan int)}})
	if err == nil {
		t.Fatal("expected error for unencodable params")
	}
}

func TestHashString(t *testing.T) {
	tests := map[string]string{
		"":   "0",
		"a":  "2p",
		"ab": "2e9",
	}
	for in, want := range tests {
		if got := HashString(in); got != want {
			t.Errorf("HashString(%q) = %q, want %q", in, got, want)
		}
	}
	if HashString("é") != HashString("é") {
		t.Error("hash must be stable for identical strings")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	id, err := k.Key(RequestKey{StoryID: "s1", Kind: story.KindImages})
	if err != nil || id != "s1|images" {
		t.Fatalf("Key() = %q, %v", id, err)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name string
		key  RequestKey
		want error
	}{
		{"valid", RequestKey{StoryID: "s1", Kind: story.KindPage}, nil},
		{"blank story", RequestKey{StoryID: "  ", Kind: story.KindPage}, ErrInvalidKey},
		{"newline", RequestKey{StoryID: "s\n1", Kind: story.KindPage}, ErrInvalidKey},
		{"too long", RequestKey{StoryID: strings.Repeat("x", MaxKeyLength+1), Kind: story.KindPage}, ErrKeyTooLong},
		{"bad kind", RequestKey{StoryID: "s1", Kind: "audio"}, ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateKey(tt.key); !errors.Is(err, tt.want) {
				t.Errorf("ValidateKey() = %v, want %v", err, tt.want)
			}
		})
	}
}
