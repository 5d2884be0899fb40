package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/regenops/cache"
	"github.com/jonwraymond/regenops/consistency"
	"github.com/jonwraymond/regenops/health"
	"github.com/jonwraymond/regenops/regen"
	"github.com/jonwraymond/regenops/story"
	"github.com/jonwraymond/regenops/validate"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return epoch }

func testStory() *story.Document {
	return &story.Document{
		ID:                   "s1",
		Title:                "The Brave Explorer",
		CharacterDescription: "Mia has brown hair and blue eyes. She is shy.",
		ChildName:            "Mia",
		ChildAge:             5,
		CreatedAt:            epoch.Add(-time.Hour),
		Pages: []story.Page{
			{PageNumber: 1, Text: "one", ImagePrompt: "p1", ImageURL: "img-1"},
			{PageNumber: 2, Text: "two", ImagePrompt: "p2", ImageURL: "img-2"},
		},
	}
}

type fixture struct {
	handler   http.Handler
	validator *validate.Validator
	tracker   *consistency.Tracker
	cache     *cache.RegenCache
	gen       regen.GeneratorFunc
	genErr    error
}

func newFixture(t *testing.T, withService bool) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		validator: validate.New(validate.DefaultLimits(), validate.WithClock(clock)),
		tracker:   consistency.New(ctx, consistency.WithClock(clock)),
		cache:     cache.New(ctx, cache.DefaultPolicy(), cache.WithClock(clock)),
	}
	deps := Deps{Validator: f.validator, Tracker: f.tracker, Cache: f.cache, Health: health.NewAggregator(time.Second)}
	if withService {
		gen := regen.GeneratorFunc(func(_ context.Context, req regen.GenerateRequest) (*story.Document, error) {
			if f.genErr != nil {
				return nil, f.genErr
			}
			out := &story.Document{}
			for _, p := range req.Story.Pages {
				out.Pages = append(out.Pages, story.Page{PageNumber: p.PageNumber, ImageURL: "new-" + p.ImageURL})
			}
			return out, nil
		})
		svc, err := regen.New(regen.Deps{Validator: f.validator, Tracker: f.tracker, Generator: gen, Cache: f.cache},
			regen.WithClock(clock), regen.WithRequestIDs(func() string { return "req-1" }))
		require.NoError(t, err)
		deps.Service = svc
	}
	s, err := New(deps)
	require.NoError(t, err)
	f.handler = s.Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNew_MissingDependency(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, ErrMissingDependency)
	_, err = New(Deps{Validator: validate.New(validate.DefaultLimits())})
	assert.ErrorContains(t, err, "tracker")
}

func TestRegenerate_Images(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/v1/regenerate", RegenerateRequest{
		Request:       validate.Request{StoryID: "s1", Kind: story.KindImages},
		OriginalStory: testStory(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[RegenerateResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Successfully regenerated images", resp.Message)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.False(t, resp.CacheHit)
	require.Len(t, resp.UpdatedStory.Pages, 2)
	assert.Equal(t, "new-img-1", resp.UpdatedStory.Pages[0].ImageURL)
	assert.Equal(t, "one", resp.UpdatedStory.Pages[0].Text)
	assert.NotNil(t, resp.ValidationWarnings)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	rec = f.do(t, http.MethodPost, "/v1/regenerate", RegenerateRequest{
		Request:       validate.Request{StoryID: "s1", Kind: story.KindImages},
		OriginalStory: testStory(),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[RegenerateResponse](t, rec).CacheHit)
}

func TestRegenerate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		prepare    func(f *fixture)
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing story",
			body:       RegenerateRequest{Request: validate.Request{StoryID: "s1", Kind: story.KindImages}},
			wantStatus: http.StatusNotFound,
			wantError:  msgStoryMissing,
		},
		{
			name: "validation",
			body: RegenerateRequest{
				Request:       validate.Request{StoryID: "s1", Kind: story.KindPage, PageNumbers: []int{7}},
				OriginalStory: testStory(),
			},
			wantStatus: http.StatusBadRequest,
			wantError:  msgValidationFailed,
		},
		{
			name: "rate limited",
			body: RegenerateRequest{Request: validate.Request{StoryID: "s1", Kind: story.KindImages}, OriginalStory: testStory()},
			prepare: func(f *fixture) {
				for i := 0; i < 20; i++ {
					f.validator.RecordRegeneration(context.Background(), "s1")
				}
			},
			wantStatus: http.StatusTooManyRequests,
			wantError:  msgRateLimited,
		},
		{
			name:       "generator failure",
			body:       RegenerateRequest{Request: validate.Request{StoryID: "s1", Kind: story.KindImages}, OriginalStory: testStory()},
			prepare:    func(f *fixture) { f.genErr = errors.New("model overloaded") },
			wantStatus: http.StatusInternalServerError,
			wantError:  msgRegenerateFailed,
		},
		{
			name:       "malformed body",
			body:       "not an object",
			wantStatus: http.StatusBadRequest,
			wantError:  msgBadBody,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			if tt.prepare != nil {
				tt.prepare(f)
			}
			rec := f.do(t, http.MethodPost, "/v1/regenerate", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestRegenerate_ValidationBodyListsErrors(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodPost, "/v1/regenerate", RegenerateRequest{
		Request:       validate.Request{StoryID: "s1", Kind: story.KindPage, PageNumbers: []int{7}},
		OriginalStory: testStory(),
	})
	resp := decode[ErrorResponse](t, rec)
	assert.NotEmpty(t, resp.ValidationErrors)
}

func TestRegenerate_NotConfigured(t *testing.T) {
	f := newFixture(t, false)
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := f.do(t, method, "/v1/regenerate", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, method)
	}
}

func TestCapabilities(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/v1/regenerate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	caps := decode[regen.Capabilities](t, rec)
	assert.Equal(t, []story.Kind{story.KindStory, story.KindImages, story.KindPage}, caps.SupportedTypes)
	assert.Contains(t, caps.Features, "Result caching")
}

func TestValidate(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/v1/validate", RegenerateRequest{
		Request:       validate.Request{StoryID: "s1", Kind: story.KindPage, PageNumbers: []int{1, 1}},
		OriginalStory: testStory(),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[validate.Result](t, rec)
	assert.True(t, res.IsValid)
	assert.Contains(t, res.Warnings, validate.MsgDuplicatePages)

	rec = f.do(t, http.MethodPost, "/v1/validate", RegenerateRequest{Request: validate.Request{StoryID: "s1", Kind: story.KindImages}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConsistencyRoutes(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/v1/consistency/s1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/consistency/track", testStory())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[consistency.Profile](t, rec)
	assert.Equal(t, "Mia", p.Name)
	assert.Equal(t, 1, p.Version)

	rec = f.do(t, http.MethodGet, "/v1/consistency/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "brown", decode[consistency.Profile](t, rec).PhysicalTraits.HairColor)

	rec = f.do(t, http.MethodPost, "/v1/consistency/check", ConsistencyCheckRequest{
		StoryID:        "s1",
		ModifiedParams: story.Params{"childName": "Maya"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[consistency.Report](t, rec)
	assert.Equal(t, 70, report.Score)
	assert.False(t, report.IsConsistent)
	assert.Equal(t, 1, report.HighSeverityCount())

	rec = f.do(t, http.MethodPost, "/v1/consistency/check", ConsistencyCheckRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/consistency/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[consistency.Stats](t, rec).TotalProfiles)

	rec = f.do(t, http.MethodPost, "/v1/consistency/track", story.Document{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/v1/consistency", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.tracker.Stats().TotalProfiles)
}

func TestCacheRoutes(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, cache.RequestKey{StoryID: "s1", Kind: story.KindImages}, testStory()))
	require.NoError(t, f.cache.Set(ctx, cache.RequestKey{StoryID: "s2", Kind: story.KindImages}, testStory()))

	rec := f.do(t, http.MethodGet, "/v1/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[cache.Stats](t, rec).TotalEntries)

	rec = f.do(t, http.MethodDelete, "/v1/cache/s1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.cache.Stats().TotalEntries)

	rec = f.do(t, http.MethodDelete, "/v1/cache", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.cache.Stats().TotalEntries)
}

func TestCacheRoutes_Disabled(t *testing.T) {
	s, err := New(Deps{
		Validator: validate.New(validate.DefaultLimits()),
		Tracker:   consistency.New(context.Background()),
	})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthRoutes(t *testing.T) {
	f := newFixture(t, false)
	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		rec := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	f := newFixture(t, false)
	req := httptest.NewRequest(http.MethodGet, "/v1/consistency/stats", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t, false)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/metrics", nil).Code)

	s, err := New(Deps{
		Validator: f.validator,
		Tracker:   f.tracker,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("regen_cache_hits_total 3\n"))
		}),
	})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "regen_cache_hits_total")
}
