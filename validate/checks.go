package validate

import (
	"context"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonwraymond/regenops/story"
)

// checkStructure validates the request on its own, without the story.
func (v *Validator) checkStructure(f *findings, req Request) {
	if strings.TrimSpace(req.StoryID) == "" {
		f.fail(MsgStoryIDRequired)
	}

	switch {
	case req.Kind == "":
		f.fail(MsgKindRequired)
	case !req.Kind.Valid():
		f.fail(msgInvalidKind())
	}

	if req.Kind == story.KindPage {
		v.checkPageSelection(f, req.PageNumbers)
	}
	if req.Kind == story.KindStory && req.ModifiedParams != nil {
		v.checkParams(f, req.ModifiedParams)
	}
}

func (v *Validator) checkPageSelection(f *findings, pages []int) {
	if len(pages) == 0 {
		f.fail(MsgPagesRequired)
		return
	}
	if slices.ContainsFunc(pages, func(n int) bool { return n < 1 }) {
		f.fail(MsgPagesPositive)
	}
	if len(pages) > v.limits.MaxPageSelection {
		f.fail(msgTooManyPages(v.limits.MaxPageSelection))
	}
	if len(Request{PageNumbers: pages}.UniquePages()) != len(pages) {
		f.warn(MsgDuplicatePages)
	}
}

// checkParams validates each modified story parameter independently.
func (v *Validator) checkParams(f *findings, params story.Params) {
	checkChoice(f, params, story.FieldStoryTheme, story.Themes, msgInvalidTheme())
	checkChoice(f, params, story.FieldStoryLength, story.Lengths, msgInvalidLength())

	if raw, ok := params[story.FieldInterests]; ok && raw != nil {
		items, isArray := story.AsSlice(raw)
		if !isArray {
			f.fail(MsgInterestsNotArray)
		} else {
			if len(items) > v.limits.MaxInterests {
				f.warn(msgTooManyInterests(v.limits.MaxInterests))
			}
			if slices.ContainsFunc(items, func(item any) bool {
				s, isString := item.(string)
				return !isString || story.IsBlank(s)
			}) {
				f.warn(MsgInvalidInterests)
			}
		}
	}

	if params.Has(story.FieldChildName) {
		name, isString := params.String(story.FieldChildName)
		switch {
		case !isString || story.IsBlank(name):
			f.fail(MsgChildNameRequired)
		case utf8.RuneCountInString(name) > v.limits.MaxChildNameLength:
			f.warn(MsgChildNameLong)
		}
	}

	if params.Has(story.FieldChildAge) {
		age, isInt := params.Int(story.FieldChildAge)
		if !isInt || age < story.MinChildAge || age > story.MaxChildAge {
			f.fail(msgChildAge())
		}
	}
}

// checkChoice fails when key holds a non-empty value outside allowed.
func checkChoice(f *findings, params story.Params, key string, allowed []string, msg string) {
	raw, ok := params[key]
	if !ok || raw == nil || raw == "" {
		return
	}
	s, isString := raw.(string)
	if !isString || !slices.Contains(allowed, s) {
		f.fail(msg)
	}
}

// checkStoryState validates the target story itself.
func (v *Validator) checkStoryState(f *findings, req Request, doc *story.Document, now time.Time) {
	if doc == nil {
		f.fail(MsgStoryNotFound)
		return
	}
	if doc.ID != req.StoryID {
		f.fail(MsgStoryIDMismatch)
	}
	if len(doc.Pages) == 0 {
		f.fail(MsgNoPages)
	}

	if age := doc.Age(now); age < v.limits.MinStoryAge {
		minutes := math.Round(age.Minutes()*10) / 10
		f.warn(msgStoryTooNew(minutes))
	}
	if len(doc.Pages) > v.limits.LongStoryPages {
		f.warn(MsgLongStory)
	}
}

// checkKind validates the request against the story's content.
func (v *Validator) checkKind(f *findings, req Request, doc *story.Document) {
	switch req.Kind {
	case story.KindPage:
		var missing, imageless []int
		for _, n := range req.UniquePages() {
			if n < 1 {
				continue
			}
			page, ok := doc.Page(n)
			switch {
			case !ok:
				missing = append(missing, n)
			case !page.HasImage():
				imageless = append(imageless, n)
			}
		}
		if len(missing) > 0 {
			f.fail(msgMissingPages(missing, doc.MaxPageNumber()))
		}
		if len(imageless) > 0 {
			f.warn(msgPagesWithoutImages(imageless))
		}

	case story.KindImages:
		if doc.ImageCount() == 0 {
			f.warn(MsgNoImages)
		}

	case story.KindStory:
		if req.ModifiedParams != nil && req.ModifiedParams.Empty() {
			f.warn(MsgNoModifiedParams)
		}
	}
}

// checkRateLimit counts the story's recent regenerations.
func (v *Validator) checkRateLimit(ctx context.Context, f *findings, storyID string, now time.Time) {
	if strings.TrimSpace(storyID) == "" {
		return
	}
	count, err := v.rates.CountSince(ctx, storyID, now.Add(-v.limits.RateWindow))
	if err != nil {
		f.warn(MsgRateLimitUnavailable)
	}

	limit := v.limits.MaxPerHour
	switch {
	case count >= limit:
		f.fail(msgRateLimitExceeded(limit))
	case float64(count) >= float64(limit)*v.limits.WarnFraction:
		f.warn(msgApproachingRateLimit(count, limit))
	}
}

// metadata estimates duration and cost and suggests cheaper alternatives.
func (v *Validator) metadata(req Request, doc *story.Document) Metadata {
	var seconds, cost float64
	pages := len(doc.Pages)
	selected := 0
	for _, n := range req.UniquePages() {
		if _, ok := doc.Page(n); ok {
			selected++
		}
	}

	switch req.Kind {
	case story.KindImages:
		seconds, cost = float64(pages)*10, float64(pages)*0.10
	case story.KindPage:
		seconds, cost = float64(selected)*15, float64(selected)*0.15
	case story.KindStory:
		seconds, cost = float64(pages)*20, float64(pages)*0.20
	}

	md := Metadata{
		EstimatedDurationSeconds: int(math.Round(seconds)),
		EstimatedCost:            math.Round(cost*100) / 100,
	}
	if req.Kind == story.KindStory && pages > 5 {
		md.RecommendedAlternatives = append(md.RecommendedAlternatives, AltRegeneratePages)
	}
	if req.Kind == story.KindPage && selected > 3 {
		md.RecommendedAlternatives = append(md.RecommendedAlternatives, AltRegenerateImages)
	}
	return md
}
