package validate

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/jonwraymond/regenops/observe"
	"github.com/jonwraymond/regenops/persist"
	"github.com/jonwraymond/regenops/story"
)

// Request is a regeneration request as received from the API layer.
type Request struct {
	StoryID     string     `json:"storyId"`
	Kind        story.Kind `json:"regenerationType"`
	PageNumbers []int      `json:"pageNumbers,omitempty"`

	// ModifiedParams is only meaningful for KindStory. A nil map means the
	// field was omitted; an empty map means it was sent without changes.
	ModifiedParams story.Params `json:"modifiedParams,omitempty"`

	OriginalCharacterDescription string `json:"originalCharacterDescription,omitempty"`
}

// UniquePages returns the requested page numbers without duplicates, in
// first-seen order.
func (r Request) UniquePages() []int {
	seen := make(map[int]struct{}, len(r.PageNumbers))
	out := make([]int, 0, len(r.PageNumbers))
	for _, n := range r.PageNumbers {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Result is the verdict on a request.
type Result struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Metadata Metadata `json:"metadata"`
}

// RateLimited reports whether the request was rejected by the rate limit.
func (r Result) RateLimited() bool {
	return slices.ContainsFunc(r.Errors, func(e string) bool {
		return strings.HasPrefix(e, MsgRateLimitPrefix)
	})
}

// Metadata estimates what a regeneration will cost.
type Metadata struct {
	EstimatedDurationSeconds int      `json:"estimatedDuration"`
	EstimatedCost            float64  `json:"costEstimate"`
	RecommendedAlternatives  []string `json:"recommendedAlternatives,omitempty"`
}

// Limits configures the validator thresholds.
type Limits struct {
	// MaxPageSelection caps page numbers per page request. Default: 10
	MaxPageSelection int

	// MinStoryAge is the age below which a "very new" warning is emitted.
	// Default: 2 minutes
	MinStoryAge time.Duration

	// LongStoryPages is the page count above which a slowness warning is
	// emitted. Default: 10
	LongStoryPages int

	// MaxPerHour is the per-story regeneration ceiling. Default: 20
	MaxPerHour int

	// WarnFraction of MaxPerHour triggers the approaching-limit warning.
	// Default: 0.8
	WarnFraction float64

	// RateWindow is the trailing window counted against MaxPerHour.
	// Default: 1 hour
	RateWindow time.Duration

	// HistoryRetention bounds how long regeneration times are kept.
	// Default: 24 hours
	HistoryRetention time.Duration

	// MaxInterests is the number of interests used. Default: 10
	MaxInterests int

	// MaxChildNameLength is the length above which a warning is emitted.
	// Default: 50
	MaxChildNameLength int
}

// DefaultLimits returns the default thresholds.
func DefaultLimits() Limits {
	return Limits{
		MaxPageSelection:   10,
		MinStoryAge:        2 * time.Minute,
		LongStoryPages:     10,
		MaxPerHour:         20,
		WarnFraction:       0.8,
		RateWindow:         time.Hour,
		HistoryRetention:   24 * time.Hour,
		MaxInterests:       10,
		MaxChildNameLength: 50,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxPageSelection <= 0 {
		l.MaxPageSelection = d.MaxPageSelection
	}
	if l.MinStoryAge <= 0 {
		l.MinStoryAge = d.MinStoryAge
	}
	if l.LongStoryPages <= 0 {
		l.LongStoryPages = d.LongStoryPages
	}
	if l.MaxPerHour <= 0 {
		l.MaxPerHour = d.MaxPerHour
	}
	if l.WarnFraction <= 0 || l.WarnFraction > 1 {
		l.WarnFraction = d.WarnFraction
	}
	if l.RateWindow <= 0 {
		l.RateWindow = d.RateWindow
	}
	if l.HistoryRetention <= 0 {
		l.HistoryRetention = d.HistoryRetention
	}
	if l.MaxInterests <= 0 {
		l.MaxInterests = d.MaxInterests
	}
	if l.MaxChildNameLength <= 0 {
		l.MaxChildNameLength = d.MaxChildNameLength
	}
	return l
}

// Validator checks regeneration requests.
//
// Contract:
//   - Concurrency: safe for concurrent use. Two callers racing on the same
//     story may both pass the rate check before either records.
//   - Errors: ValidateRequest never fails; problems are reported in Result.
type Validator struct {
	limits  Limits
	rates   *RateLog
	logger  observe.Logger
	metrics observe.Metrics
	now     func() time.Time
}

// Option configures a Validator.
type Option func(*options)

type options struct {
	store   persist.Store
	logger  observe.Logger
	metrics observe.Metrics
	now     func() time.Time
}

// WithClock sets the time source. Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithStore sets where regeneration history is persisted.
// Default: persist.NoopStore
func WithStore(s persist.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithLogger sets the logger. Default: observe.NopLogger
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records validation verdicts. Default: observe.NoopMetrics
func WithMetrics(m observe.Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// New creates a Validator.
func New(limits Limits, opts ...Option) *Validator {
	o := options{
		store:   persist.NoopStore{},
		logger:  observe.NopLogger(),
		metrics: observe.NoopMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	limits = limits.withDefaults()
	logger := o.logger.With(observe.F("component", "validator"))

	return &Validator{
		limits:  limits,
		rates:   newRateLog(o.store, limits.HistoryRetention, logger),
		logger:  logger,
		metrics: o.metrics,
		now:     o.now,
	}
}

// Limits returns the effective thresholds.
func (v *Validator) Limits() Limits { return v.limits }

// ValidateRequest checks req against doc. doc may be nil when the story
// could not be found.
func (v *Validator) ValidateRequest(ctx context.Context, req Request, doc *story.Document) Result {
	now := v.now()
	var f findings

	v.checkStructure(&f, req)
	v.checkStoryState(&f, req, doc, now)
	if doc != nil {
		v.checkKind(&f, req, doc)
	}
	v.checkRateLimit(ctx, &f, req.StoryID, now)

	result := Result{
		IsValid:  len(f.errors) == 0,
		Errors:   dedupe(f.errors),
		Warnings: dedupe(f.warnings),
	}
	if doc != nil {
		result.Metadata = v.metadata(req, doc)
	}

	v.metrics.RecordValidation(ctx, string(req.Kind), result.IsValid)
	if !result.IsValid {
		v.logger.Debug(ctx, "regeneration request rejected",
			observe.F("story_id", req.StoryID),
			observe.F("kind", string(req.Kind)),
			observe.F("errors", result.Errors))
	}
	return result
}

// RecordRegeneration appends now to storyID's regeneration history.
// Persistence failures are logged and swallowed.
func (v *Validator) RecordRegeneration(ctx context.Context, storyID string) {
	if strings.TrimSpace(storyID) == "" {
		return
	}
	v.rates.Record(ctx, storyID, v.now())
}

// RecentRegenerations returns how many regenerations of storyID fall in the
// trailing rate window.
func (v *Validator) RecentRegenerations(ctx context.Context, storyID string) int {
	n, _ := v.rates.CountSince(ctx, storyID, v.now().Add(-v.limits.RateWindow))
	return n
}

// findings accumulates check output.
type findings struct {
	errors   []string
	warnings []string
}

func (f *findings) fail(msg string) { f.errors = append(f.errors, msg) }
func (f *findings) warn(msg string) { f.warnings = append(f.warnings, msg) }

// dedupe removes exact duplicates, keeping first occurrences. The result is
// never nil.
func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, s := range items {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
