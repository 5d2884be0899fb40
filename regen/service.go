package regen

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/regenops/cache"
	"github.com/jonwraymond/regenops/consistency"
	"github.com/jonwraymond/regenops/observe"
	"github.com/jonwraymond/regenops/story"
	"github.com/jonwraymond/regenops/validate"
)

// LowScoreThreshold is the consistency score below which an extra warning
// is attached to a story regeneration.
const LowScoreThreshold = 50

// Deps are the collaborators of a Service. Cache is optional; without it
// every request is generated.
type Deps struct {
	Validator *validate.Validator
	Tracker   *consistency.Tracker
	Generator Generator
	Cache     cache.Cache
}

// Outcome is the result of a successful regeneration.
type Outcome struct {
	RequestID string
	Kind      story.Kind
	Story     *story.Document

	// Warnings are the validation warnings followed by any consistency
	// warnings.
	Warnings []string

	// Consistency is set for story regenerations with modified parameters.
	Consistency *consistency.Report

	Metadata validate.Metadata

	// Duration covers generation and merging, or the cache lookup on a hit.
	Duration time.Duration

	// CacheHit is true when the story came from the cache.
	CacheHit bool

	// Shared is true when the story came from a concurrent identical
	// request.
	Shared bool
}

// Message is the human readable summary of the outcome.
func (o *Outcome) Message() string {
	return "Successfully regenerated " + o.Kind.String()
}

// Service runs regeneration requests.
//
// Contract:
//   - Concurrency: safe for concurrent use. Identical concurrent requests
//     share one generation when a cache is configured.
//   - Errors: invalid requests return *ValidationError; generator failures
//     are wrapped and returned. Nothing is cached, tracked or recorded for
//     a failed request.
//   - Side effects: profile tracking, consistency notes and rate-limit
//     recording happen once per actual generation, never on a cache hit.
//   - Caching: a generation changes the story, so it drops every cached
//     result for that story before its own result is stored.
type Service struct {
	validator *validate.Validator
	tracker   *consistency.Tracker
	generator Generator
	cache     cache.Cache
	cached    *cache.Middleware

	obs    *observe.Middleware
	logger observe.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Default: observe.NopLogger
func WithLogger(l observe.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObservability wraps every regeneration in a span with metrics.
func WithObservability(m *observe.Middleware) Option {
	return func(s *Service) {
		s.obs = m
	}
}

// WithClock sets the time source used for durations. Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRequestIDs sets the request ID source. Default: uuid.NewString
func WithRequestIDs(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// New creates a Service.
func New(deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Validator == nil:
		return nil, fmt.Errorf("%w: validator", ErrMissingDependency)
	case deps.Tracker == nil:
		return nil, fmt.Errorf("%w: tracker", ErrMissingDependency)
	case deps.Generator == nil:
		return nil, fmt.Errorf("%w: generator", ErrMissingDependency)
	}

	s := &Service{
		validator: deps.Validator,
		tracker:   deps.Tracker,
		generator: deps.Generator,
		logger:    observe.NopLogger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(observe.F("component", "regen"))
	if deps.Cache != nil {
		s.cache = deps.Cache
		s.cached = cache.NewMiddleware(deps.Cache, nil, s.logger)
	}
	return s, nil
}

// Regenerate validates req against doc and, if it is allowed, produces the
// regenerated story.
func (s *Service) Regenerate(ctx context.Context, req validate.Request, doc *story.Document) (*Outcome, error) {
	if doc == nil {
		return nil, ErrNilStory
	}

	out := &Outcome{RequestID: s.newID(), Kind: req.Kind}
	meta := observe.OpMeta{Op: "regenerate", StoryID: req.StoryID, Kind: req.Kind.String()}
	err := s.obs.Observe(ctx, meta, func(ctx context.Context) error {
		return s.regenerate(ctx, req, doc, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) regenerate(ctx context.Context, req validate.Request, doc *story.Document, out *Outcome) error {
	log := s.logger.With(
		observe.F("request_id", out.RequestID),
		observe.F("story_id", req.StoryID),
		observe.F("kind", req.Kind.String()))

	verdict := s.validator.ValidateRequest(ctx, req, doc)
	if !verdict.IsValid {
		log.Info(ctx, "regeneration rejected", observe.F("errors", verdict.Errors))
		return &ValidationError{Result: verdict}
	}
	out.Metadata = verdict.Metadata
	out.Warnings = slices.Clone(verdict.Warnings)

	if req.Kind == story.KindStory && req.ModifiedParams != nil {
		report := s.tracker.CheckConsistency(ctx, req.StoryID, req.ModifiedParams)
		out.Consistency = &report
		out.Warnings = append(out.Warnings, report.Warnings...)
		if report.Score < LowScoreThreshold {
			out.Warnings = append(out.Warnings, fmt.Sprintf(
				"Low character consistency score (%d%%). Consider reviewing changes.", report.Score))
		}
	}
	if len(out.Warnings) > 0 {
		log.Warn(ctx, "regeneration warnings", observe.F("warnings", out.Warnings))
	}

	generate := func(ctx context.Context) (*story.Document, error) {
		return s.generate(ctx, req, doc, out.Consistency)
	}

	start := s.now()
	var (
		result *story.Document
		err    error
	)
	if s.cached != nil {
		var o cache.Outcome
		result, o, err = s.cached.Execute(ctx, requestKey(req), generate)
		out.CacheHit, out.Shared = o.Hit, o.Shared
	} else {
		result, err = generate(ctx)
	}
	out.Duration = s.now().Sub(start)
	if err != nil {
		return err
	}
	out.Story = result

	log.Info(ctx, "regeneration completed",
		observe.F("cache_hit", out.CacheHit),
		observe.F("generation_ms", out.Duration.Milliseconds()))
	return nil
}

// generate runs the generator, merges its content and commits the side
// effects of a successful regeneration.
func (s *Service) generate(ctx context.Context, req validate.Request, doc *story.Document, report *consistency.Report) (*story.Document, error) {
	gr := GenerateRequest{
		StoryID:        req.StoryID,
		Kind:           req.Kind,
		ModifiedParams: req.ModifiedParams,
		Story:          doc.Clone(),
	}
	switch req.Kind {
	case story.KindStory:
		form := story.FormFromDocument(doc, req.ModifiedParams)
		gr.Form = &form
		gr.CharacterDescription = s.tracker.GenerateConsistentDescription(req.StoryID, form)
	case story.KindImages:
		gr.CharacterDescription = req.OriginalCharacterDescription
		if gr.CharacterDescription == "" {
			gr.CharacterDescription = doc.CharacterDescription
		}
	case story.KindPage:
		gr.PageNumbers = req.UniquePages()
		gr.CharacterDescription = doc.CharacterDescription
	}

	generated, err := s.generator.Generate(ctx, gr)
	if err != nil {
		return nil, fmt.Errorf("regen: generate %s: %w", req.Kind, err)
	}
	merged, err := Merge(doc, gr, generated)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateStory(ctx, req.StoryID)
	}
	if _, err := s.tracker.TrackCharacter(ctx, merged); err != nil {
		s.logger.Warn(ctx, "failed to track character",
			observe.F("story_id", req.StoryID), observe.F("error", err))
	}
	if report != nil && len(report.Warnings) > 0 {
		s.tracker.AddConsistencyNote(ctx, req.StoryID,
			fmt.Sprintf("Regeneration with %d consistency warnings", len(report.Warnings)))
	}
	s.validator.RecordRegeneration(ctx, req.StoryID)
	return merged, nil
}

// requestKey is the cache identity of req. Pages only matter for page
// regenerations and parameters only for story regenerations.
func requestKey(req validate.Request) cache.RequestKey {
	key := cache.RequestKey{StoryID: req.StoryID, Kind: req.Kind}
	switch req.Kind {
	case story.KindPage:
		key.PageNumbers = req.PageNumbers
	case story.KindStory:
		key.ModifiedParams = req.ModifiedParams
	}
	return key
}

// Capabilities describes what the service supports.
type Capabilities struct {
	Message        string       `json:"message"`
	SupportedTypes []story.Kind `json:"supportedTypes"`
	Description    string       `json:"description"`
	Features       []string     `json:"features"`
}

// Describe returns the service capabilities.
func (s *Service) Describe() Capabilities {
	features := []string{
		"Content validation",
		"Rate limiting",
		"Metadata generation",
		"Character consistency",
		"Error handling",
	}
	if s.cached != nil {
		features = append(features, "Result caching")
	}
	return Capabilities{
		Message:        "Regenerate Content API",
		SupportedTypes: slices.Clone(story.Kinds),
		Description:    "Regenerate story content with validation and caching",
		Features:       features,
	}
}
