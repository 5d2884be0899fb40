package regen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonwraymond/regenops/observe"
	"github.com/jonwraymond/regenops/resilience"
	"github.com/jonwraymond/regenops/story"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// HTTPGeneratorConfig configures an HTTPGenerator.
type HTTPGeneratorConfig struct {
	// Endpoint receives a POST with a JSON GenerateRequest and answers with
	// a JSON story document. Required.
	Endpoint string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout bounds each attempt. Default: 2m
	Timeout time.Duration

	// MaxAttempts bounds attempts for transient failures. Default: 3
	MaxAttempts int

	// RetryDelay is the first backoff delay. Default: 500ms
	RetryDelay time.Duration

	// MaxConcurrent bounds in-flight generations. Default: 4
	MaxConcurrent int

	// RatePerSecond limits outgoing generations when positive.
	RatePerSecond float64

	// Breaker guards the upstream. Zero values take resilience defaults.
	Breaker resilience.CircuitBreakerConfig

	// Client is the HTTP client. Default: a client without its own timeout.
	Client *http.Client

	Logger observe.Logger
}

// HTTPGenerator is a Generator backed by an upstream HTTP service.
type HTTPGenerator struct {
	endpoint string
	apiKey   string
	client   *http.Client
	executor *resilience.Executor
	breaker  *resilience.CircuitBreaker
	logger   observe.Logger
}

var _ Generator = (*HTTPGenerator)(nil)

// NewHTTPGenerator validates cfg and creates an HTTPGenerator.
func NewHTTPGenerator(cfg HTTPGeneratorConfig) (*HTTPGenerator, error) {
	u, err := url.ParseRequestURI(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, cfg.Endpoint)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Breaker.IsFailure == nil {
		cfg.Breaker.IsFailure = transient
	}
	logger := cfg.Logger.With(observe.F("component", "generator"), observe.F("endpoint", u.Redacted()))

	breaker := resilience.NewCircuitBreaker(cfg.Breaker)
	opts := []resilience.ExecutorOption{
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.Timeout,
		})),
		resilience.WithCircuitBreaker(breaker),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     10 * time.Second,
			Jitter:       true,
			RetryIf:      transient,
			RetryAfter:   retryAfter,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				logger.Warn(context.Background(), "retrying generation",
					observe.F("attempt", attempt), observe.F("delay", delay.String()), observe.F("error", err))
			},
		})),
		resilience.WithTimeout(cfg.Timeout),
	}
	if cfg.RatePerSecond > 0 {
		opts = append(opts, resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        cfg.RatePerSecond,
			Burst:       max(1, int(cfg.RatePerSecond)),
			WaitOnLimit: true,
			MaxWait:     cfg.Timeout,
		})))
	}

	return &HTTPGenerator{
		endpoint: u.String(),
		apiKey:   cfg.APIKey,
		client:   cfg.Client,
		executor: resilience.NewExecutor(opts...),
		breaker:  breaker,
		logger:   logger,
	}, nil
}

// Generate posts req to the upstream endpoint.
func (g *HTTPGenerator) Generate(ctx context.Context, req GenerateRequest) (*story.Document, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("regen: encode generate request: %w", err)
	}

	var doc *story.Document
	err = g.executor.Execute(ctx, func(ctx context.Context) error {
		d, err := g.post(ctx, body)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// BreakerState reports the upstream circuit breaker state.
func (g *HTTPGenerator) BreakerState() resilience.State {
	return g.breaker.State()
}

func (g *HTTPGenerator) post(ctx context.Context, body []byte) (*story.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("regen: create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("regen: call generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	var doc story.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &doc, nil
}

// errorMessage extracts {"error": "..."} from an error body, falling back
// to the raw text.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return string(bytes.TrimSpace(raw))
}

// transient reports whether err may succeed on another attempt.
func transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.Temporary()
	}
	return !errors.Is(err, ErrMalformedResponse)
}

// parseRetryAfter reads a Retry-After header in either delay-seconds or
// HTTP-date form.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func retryAfter(err error) time.Duration {
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.RetryAfter
	}
	return 0
}
