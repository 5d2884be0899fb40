package regen

import (
	"context"

	"github.com/jonwraymond/regenops/story"
)

// GenerateRequest is what a Generator is asked to produce.
type GenerateRequest struct {
	StoryID string     `json:"storyId"`
	Kind    story.Kind `json:"kind"`

	// PageNumbers lists the unique pages to regenerate for KindPage.
	PageNumbers []int `json:"pageNumbers,omitempty"`

	ModifiedParams story.Params `json:"modifiedParams,omitempty"`

	// CharacterDescription is the description the generator must follow.
	// For KindStory it is the consistent description derived from the
	// tracked profile.
	CharacterDescription string `json:"characterDescription"`

	// Form is the story-creation form for KindStory.
	Form *story.Form `json:"form,omitempty"`

	// Story is a copy of the story being regenerated.
	Story *story.Document `json:"story"`
}

// Generator produces regenerated content.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: implementations must honor cancellation.
//   - Result: a partial document. For KindStory the title and pages are
//     used; for KindImages and KindPage only pages are used, matched by
//     page number.
//   - Errors: returned unchanged to the caller of Service.Regenerate,
//     wrapped with the regeneration kind.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*story.Document, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (*story.Document, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (*story.Document, error) {
	return f(ctx, req)
}

var _ Generator = GeneratorFunc(nil)
