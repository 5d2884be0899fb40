package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/regenops/cache"
	"github.com/jonwraymond/regenops/config"
	"github.com/jonwraymond/regenops/consistency"
	"github.com/jonwraymond/regenops/health"
	"github.com/jonwraymond/regenops/httpapi"
	"github.com/jonwraymond/regenops/observe"
	"github.com/jonwraymond/regenops/persist"
	"github.com/jonwraymond/regenops/regen"
	"github.com/jonwraymond/regenops/resilience"
	"github.com/jonwraymond/regenops/validate"
)

// breakered is a component guarded by a circuit breaker.
type breakered interface {
	BreakerState() resilience.State
}

// app is the assembled set of components.
type app struct {
	cfg       *config.Config
	observer  observe.Observer
	logger    observe.Logger
	store     persist.Store
	cache     *cache.RegenCache
	validator *validate.Validator
	tracker   *consistency.Tracker
	generator *regen.HTTPGenerator
	service   *regen.Service
	health    *health.Aggregator
}

// newApp wires every component from cfg. Without a generator URL the
// service is left nil.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe(Version))
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("observer middleware: %w", err)
	}
	logger := obs.Logger()

	store, err := persist.Open(ctx, cfg.Persist())
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
	}

	a := &app{
		cfg:      cfg,
		observer: obs,
		logger:   logger,
		store:    store,
	}
	a.cache = cache.New(ctx, cfg.CachePolicy(),
		cache.WithStore(store),
		cache.WithLogger(logger),
		cache.WithMetrics(mw.Metrics()),
	)
	a.validator = validate.New(cfg.Limits(),
		validate.WithStore(store),
		validate.WithLogger(logger),
		validate.WithMetrics(mw.Metrics()),
	)
	a.tracker = consistency.New(ctx,
		consistency.WithStore(store),
		consistency.WithLogger(logger),
		consistency.WithMaxProfiles(cfg.MaxProfiles),
	)

	if cfg.HasGenerator() {
		a.generator, err = regen.NewHTTPGenerator(cfg.Generator(logger))
		if err != nil {
			_ = a.close(ctx)
			return nil, err
		}
		a.service, err = regen.New(regen.Deps{
			Validator: a.validator,
			Tracker:   a.tracker,
			Generator: a.generator,
			Cache:     a.cache,
		}, regen.WithLogger(logger), regen.WithObservability(mw))
		if err != nil {
			_ = a.close(ctx)
			return nil, err
		}
	} else {
		logger.Warn(ctx, "no generator configured, regeneration disabled")
	}

	a.health = a.checks()
	return a, nil
}

func (a *app) checks() *health.Aggregator {
	agg := health.NewAggregator(health.DefaultTimeout)
	agg.Register(health.StoreChecker(a.store))
	agg.Register(health.CacheChecker(a.cache, a.cfg.CacheMaxEntries))
	agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{}))
	if b, ok := a.store.(breakered); ok {
		agg.Register(health.BreakerChecker("store_breaker", b.BreakerState, false))
	}
	if a.generator != nil {
		agg.Register(health.BreakerChecker("generator_breaker", a.generator.BreakerState, true))
	}
	return agg
}

func (a *app) api() (*httpapi.Server, error) {
	var metrics http.Handler
	if a.cfg.MetricsExporter == "prometheus" {
		metrics = promhttp.Handler()
	}
	return httpapi.New(httpapi.Deps{
		Validator: a.validator,
		Tracker:   a.tracker,
		Service:   a.service,
		Cache:     a.cache,
		Health:    a.health,
		Metrics:   metrics,
	}, httpapi.WithLogger(a.logger))
}

// close releases the store and flushes telemetry. Sync errors are ignored:
// zap reports them for terminals and pipes that cannot fsync.
func (a *app) close(ctx context.Context) error {
	_ = a.logger.Sync()
	return errors.Join(a.store.Close(), a.observer.Shutdown(ctx))
}
