package regen

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/regenops/cache"
	"github.com/jonwraymond/regenops/consistency"
	"github.com/jonwraymond/regenops/story"
	"github.com/jonwraymond/regenops/validate"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return epoch }

func testStory() *story.Document {
	return &story.Document{
		ID:                   "s1",
		Title:                "The Brave Explorer",
		CharacterDescription: "Mia has brown hair. She is shy.",
		ChildName:            "Mia",
		ChildAge:             5,
		CreatedAt:            epoch.Add(-time.Hour),
		Pages: []story.Page{
			{PageNumber: 1, Text: "one", ImagePrompt: "p1", ImageURL: "img-1"},
			{PageNumber: 2, Text: "two", ImagePrompt: "p2", ImageURL: "img-2"},
			{PageNumber: 3, Text: "three", ImagePrompt: "p3", ImageURL: "img-3"},
		},
	}
}

type recordingGenerator struct {
	mu     sync.Mutex
	calls  int32
	last   GenerateRequest
	result *story.Document
	err    error
}

func (g *recordingGenerator) Generate(_ context.Context, req GenerateRequest) (*story.Document, error) {
	atomic.AddInt32(&g.calls, 1)
	g.mu.Lock()
	g.last = req
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g.result.Clone(), nil
}

func (g *recordingGenerator) request() GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

type harness struct {
	svc       *Service
	validator *validate.Validator
	tracker   *consistency.Tracker
	gen       *recordingGenerator
}

func newHarness(t *testing.T, withCache bool) *harness {
	t.Helper()
	ctx := context.Background()
	h := &harness{
		validator: validate.New(validate.DefaultLimits(), validate.WithClock(clock)),
		tracker:   consistency.New(ctx, consistency.WithClock(clock)),
		gen:       &recordingGenerator{},
	}
	deps := Deps{Validator: h.validator, Tracker: h.tracker, Generator: h.gen}
	if withCache {
		deps.Cache = cache.New(ctx, cache.DefaultPolicy(), cache.WithClock(clock))
	}
	svc, err := New(deps, WithClock(clock), WithRequestIDs(func() string { return "req-1" }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.svc = svc
	return h
}

func TestNew_MissingDependency(t *testing.T) {
	ctx := context.Background()
	v := validate.New(validate.DefaultLimits())
	tr := consistency.New(ctx)
	g := GeneratorFunc(func(context.Context, GenerateRequest) (*story.Document, error) { return nil, nil })

	tests := []struct {
		name string
		deps Deps
		want string
	}{
		{"validator", Deps{Tracker: tr, Generator: g}, "validator"},
		{"tracker", Deps{Validator: v, Generator: g}, "tracker"},
		{"generator", Deps{Validator: v, Tracker: tr}, "generator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.deps)
			if !errors.Is(err, ErrMissingDependency) || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("New() error = %v", err)
			}
		})
	}
}

func TestRegenerate_Story(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	doc := testStory()
	if _, err := h.tracker.TrackCharacter(ctx, doc); err != nil {
		t.Fatal(err)
	}
	h.gen.result = &story.Document{
		Title:                "A New Adventure",
		CharacterDescription: "ignored",
		Pages:                []story.Page{{PageNumber: 1, Text: "new one", ImageURL: "new-1"}},
	}

	out, err := h.svc.Regenerate(ctx, validate.Request{
		StoryID:        "s1",
		Kind:           story.KindStory,
		ModifiedParams: story.Params{"childName": "Maya", "physicalTraits": map[string]any{"hairColor": "blonde"}},
	}, doc)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	gr := h.gen.request()
	if gr.Form == nil || gr.Form.ChildName != "Maya" || gr.Form.ChildAge != 5 {
		t.Errorf("form = %+v", gr.Form)
	}
	if !strings.Contains(gr.CharacterDescription, "brown hair") {
		t.Errorf("description not pinned to profile: %q", gr.CharacterDescription)
	}

	if out.RequestID != "req-1" || out.Kind != story.KindStory || out.CacheHit {
		t.Errorf("outcome = %+v", out)
	}
	if out.Message() != "Successfully regenerated story" {
		t.Errorf("Message() = %q", out.Message())
	}
	if out.Story.Title != "A New Adventure" || out.Story.CharacterDescription != gr.CharacterDescription {
		t.Errorf("merged story = %+v", out.Story)
	}
	if len(out.Story.Pages) != 1 || out.Story.Pages[0].Text != "new one" {
		t.Errorf("pages = %+v", out.Story.Pages)
	}
	if doc.Title != "The Brave Explorer" || len(doc.Pages) != 3 {
		t.Error("original story was modified")
	}

	if out.Consistency == nil || out.Consistency.Score != 55 {
		t.Fatalf("consistency = %+v", out.Consistency)
	}
	if !slices.Equal(out.Warnings, []string{`Character name changing from "Mia" to "Maya"`}) {
		t.Errorf("warnings = %v", out.Warnings)
	}
	if out.Metadata.EstimatedDurationSeconds != 60 {
		t.Errorf("metadata = %+v", out.Metadata)
	}

	p, ok := h.tracker.Profile("s1")
	if !ok || p.Version != 2 {
		t.Fatalf("profile = %+v", p)
	}
	if !slices.Equal(p.ConsistencyNotes, []string{"2025-03-01T12:00:00.000Z: Regeneration with 1 consistency warnings"}) {
		t.Errorf("notes = %v", p.ConsistencyNotes)
	}
	if got := h.validator.RecentRegenerations(ctx, "s1"); got != 1 {
		t.Errorf("RecentRegenerations = %d, want 1", got)
	}
}

func TestRegenerate_LowConsistencyWarning(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	doc := testStory()
	_, _ = h.tracker.TrackCharacter(ctx, doc)
	h.gen.result = &story.Document{Pages: []story.Page{{PageNumber: 1, Text: "x"}}}

	out, err := h.svc.Regenerate(ctx, validate.Request{
		StoryID:        "s1",
		Kind:           story.KindStory,
		ModifiedParams: story.Params{"childName": "Zed", "childAge": 12},
	}, doc)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	want := "Low character consistency score (40%). Consider reviewing changes."
	if out.Warnings[len(out.Warnings)-1] != want {
		t.Errorf("warnings = %v", out.Warnings)
	}
	p, _ := h.tracker.Profile("s1")
	if !slices.Equal(p.ConsistencyNotes, []string{"2025-03-01T12:00:00.000Z: Regeneration with 2 consistency warnings"}) {
		t.Errorf("notes = %v", p.ConsistencyNotes)
	}
}

func TestRegenerate_Images(t *testing.T) {
	h := newHarness(t, false)
	h.gen.result = &story.Document{Pages: []story.Page{
		{PageNumber: 1, ImageURL: "fresh-1"},
		{PageNumber: 3, ImageURL: ""},
	}}

	out, err := h.svc.Regenerate(context.Background(), validate.Request{
		StoryID:                      "s1",
		Kind:                         story.KindImages,
		OriginalCharacterDescription: "as first drawn",
	}, testStory())
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	if gr := h.gen.request(); gr.CharacterDescription != "as first drawn" || gr.Form != nil {
		t.Errorf("request = %+v", gr)
	}
	var got []string
	for _, p := range out.Story.Pages {
		got = append(got, p.ImageURL)
	}
	if !slices.Equal(got, []string{"fresh-1", "img-2", "img-3"}) {
		t.Errorf("images = %v", got)
	}
	if out.Consistency != nil {
		t.Error("images regeneration should not check consistency")
	}
}

func TestRegenerate_Pages(t *testing.T) {
	h := newHarness(t, false)
	h.gen.result = &story.Document{Pages: []story.Page{
		{PageNumber: 1, Text: "not requested", ImageURL: "nope"},
		{PageNumber: 2, Text: "two again", ImageURL: "img-2b"},
	}}

	out, err := h.svc.Regenerate(context.Background(), validate.Request{
		StoryID:     "s1",
		Kind:        story.KindPage,
		PageNumbers: []int{2, 2},
	}, testStory())
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	if gr := h.gen.request(); !slices.Equal(gr.PageNumbers, []int{2}) {
		t.Errorf("PageNumbers = %v", gr.PageNumbers)
	}
	want := []story.Page{
		{PageNumber: 1, Text: "one", ImagePrompt: "p1", ImageURL: "img-1"},
		{PageNumber: 2, Text: "two again", ImagePrompt: "p2", ImageURL: "img-2b"},
		{PageNumber: 3, Text: "three", ImagePrompt: "p3", ImageURL: "img-3"},
	}
	if !slices.Equal(out.Story.Pages, want) {
		t.Errorf("pages = %+v", out.Story.Pages)
	}
	if len(out.Warnings) == 0 {
		t.Error("duplicate page numbers should warn")
	}
}

func TestRegenerate_ValidationError(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.svc.Regenerate(context.Background(), validate.Request{
		StoryID:     "s1",
		Kind:        story.KindPage,
		PageNumbers: []int{1, 99},
	}, testStory())

	var verr *ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if verr.RateLimited() {
		t.Error("RateLimited() = true")
	}
	if !strings.Contains(err.Error(), "99") {
		t.Errorf("error = %v", err)
	}
	if atomic.LoadInt32(&h.gen.calls) != 0 {
		t.Error("generator called for invalid request")
	}
}

func TestRegenerate_RateLimited(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		h.validator.RecordRegeneration(ctx, "s1")
	}

	_, err := h.svc.Regenerate(ctx, validate.Request{StoryID: "s1", Kind: story.KindImages}, testStory())
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.RateLimited() {
		t.Fatalf("error = %v, want rate limited", err)
	}
}

func TestRegenerate_NilStory(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.svc.Regenerate(context.Background(), validate.Request{StoryID: "s1", Kind: story.KindImages}, nil)
	if !errors.Is(err, ErrNilStory) {
		t.Errorf("error = %v", err)
	}
}

func TestRegenerate_GeneratorFailure(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	boom := errors.New("model overloaded")
	h.gen.err = boom

	_, err := h.svc.Regenerate(ctx, validate.Request{StoryID: "s1", Kind: story.KindImages}, testStory())
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v", err)
	}
	if got := h.validator.RecentRegenerations(ctx, "s1"); got != 0 {
		t.Errorf("failed regeneration recorded: %d", got)
	}
	if _, ok := h.tracker.Profile("s1"); ok {
		t.Error("failed regeneration tracked")
	}
}

func TestRegenerate_CacheHit(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	h.gen.result = &story.Document{Pages: []story.Page{{PageNumber: 2, ImageURL: "img-2b"}}}
	req := validate.Request{StoryID: "s1", Kind: story.KindPage, PageNumbers: []int{2}}

	first, err := h.svc.Regenerate(ctx, req, testStory())
	if err != nil || first.CacheHit {
		t.Fatalf("first = %+v, %v", first, err)
	}

	req.PageNumbers = []int{2, 2}
	second, err := h.svc.Regenerate(ctx, req, testStory())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.CacheHit {
		t.Error("equivalent request missed the cache")
	}
	if atomic.LoadInt32(&h.gen.calls) != 1 {
		t.Errorf("generator calls = %d, want 1", atomic.LoadInt32(&h.gen.calls))
	}
	if !slices.Equal(first.Story.Pages, second.Story.Pages) {
		t.Error("cached result differs")
	}
	if got := h.validator.RecentRegenerations(ctx, "s1"); got != 1 {
		t.Errorf("RecentRegenerations = %d, want 1", got)
	}
}

func TestDescribe(t *testing.T) {
	withCache := newHarness(t, true).svc.Describe()
	without := newHarness(t, false).svc.Describe()

	if !slices.Equal(withCache.SupportedTypes, []story.Kind{story.KindStory, story.KindImages, story.KindPage}) {
		t.Errorf("SupportedTypes = %v", withCache.SupportedTypes)
	}
	if !slices.Contains(withCache.Features, "Result caching") || slices.Contains(without.Features, "Result caching") {
		t.Errorf("features = %v / %v", withCache.Features, without.Features)
	}
}

func TestRegenerate_GenerationInvalidatesStaleResults(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	pageReq := validate.Request{StoryID: "s1", Kind: story.KindPage, PageNumbers: []int{2}}

	h.gen.result = &story.Document{Pages: []story.Page{{PageNumber: 2, Text: "two-b", ImageURL: "img-2b"}}}
	first, err := h.svc.Regenerate(ctx, pageReq, testStory())
	if err != nil {
		t.Fatalf("page: %v", err)
	}

	h.gen.result = &story.Document{Pages: []story.Page{
		{PageNumber: 1, ImageURL: "all-1"},
		{PageNumber: 2, ImageURL: "all-2"},
		{PageNumber: 3, ImageURL: "all-3"},
	}}
	second, err := h.svc.Regenerate(ctx, validate.Request{StoryID: "s1", Kind: story.KindImages}, first.Story)
	if err != nil {
		t.Fatalf("images: %v", err)
	}

	h.gen.result = &story.Document{Pages: []story.Page{{PageNumber: 2, Text: "two-c", ImageURL: "img-2c"}}}
	third, err := h.svc.Regenerate(ctx, pageReq, second.Story)
	if err != nil {
		t.Fatalf("page again: %v", err)
	}
	if third.CacheHit {
		t.Error("page result from before the images regeneration was served")
	}
	if atomic.LoadInt32(&h.gen.calls) != 3 {
		t.Errorf("generator calls = %d, want 3", atomic.LoadInt32(&h.gen.calls))
	}
	p1, _ := third.Story.Page(1)
	p2, _ := third.Story.Page(2)
	if p1.ImageURL != "all-1" || p2.ImageURL != "img-2c" {
		t.Errorf("pages = %+v", third.Story.Pages)
	}
}
