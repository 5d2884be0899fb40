package regen

import (
	"slices"

	"github.com/jonwraymond/regenops/story"
)

// Merge applies generated content to a copy of original according to the
// request kind. The original is never modified.
func Merge(original *story.Document, req GenerateRequest, generated *story.Document) (*story.Document, error) {
	if original == nil {
		return nil, ErrNilStory
	}
	if generated == nil {
		return nil, ErrEmptyResult
	}
	out := original.Clone()

	switch req.Kind {
	case story.KindStory:
		if len(generated.Pages) == 0 {
			return nil, ErrEmptyResult
		}
		if generated.Title != "" {
			out.Title = generated.Title
		}
		out.CharacterDescription = req.CharacterDescription
		if out.CharacterDescription == "" {
			out.CharacterDescription = generated.CharacterDescription
		}
		out.Pages = slices.Clone(generated.Pages)

	case story.KindImages:
		for i, p := range out.Pages {
			if g, ok := generated.Page(p.PageNumber); ok && g.ImageURL != "" {
				out.Pages[i].ImageURL = g.ImageURL
			}
		}

	case story.KindPage:
		for i, p := range out.Pages {
			if !slices.Contains(req.PageNumbers, p.PageNumber) {
				continue
			}
			g, ok := generated.Page(p.PageNumber)
			if !ok {
				continue
			}
			if g.Text != "" {
				out.Pages[i].Text = g.Text
			}
			if g.ImagePrompt != "" {
				out.Pages[i].ImagePrompt = g.ImagePrompt
			}
			if g.ImageURL != "" {
				out.Pages[i].ImageURL = g.ImageURL
			}
		}
	}
	return out, nil
}
