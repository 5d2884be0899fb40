package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonwraymond/regenops/cache"
	"github.com/jonwraymond/regenops/consistency"
	"github.com/jonwraymond/regenops/health"
	"github.com/jonwraymond/regenops/observe"
	"github.com/jonwraymond/regenops/regen"
	"github.com/jonwraymond/regenops/validate"
)

// Deps are the components the API serves. Validator and Tracker are
// required. A nil Service answers regeneration with 503; a nil Cache
// answers cache routes with 404; a nil Health omits the readiness checks.
type Deps struct {
	Validator *validate.Validator
	Tracker   *consistency.Tracker
	Service   *regen.Service
	Cache     cache.Cache
	Health    *health.Aggregator

	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
}

// Server holds the handlers.
type Server struct {
	deps   Deps
	logger observe.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server.
func New(deps Deps, opts ...Option) (*Server, error) {
	switch {
	case deps.Validator == nil:
		return nil, fmt.Errorf("%w: validator", ErrMissingDependency)
	case deps.Tracker == nil:
		return nil, fmt.Errorf("%w: tracker", ErrMissingDependency)
	}
	s := &Server{deps: deps, logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(observe.F("component", "httpapi"))
	return s, nil
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(s.logger))
	s.Register(r)
	return r
}

// Register adds the routes to r.
func (s *Server) Register(r gin.IRouter) {
	agg := s.deps.Health
	if agg == nil {
		agg = health.NewAggregator(0)
	}
	r.GET("/healthz", gin.WrapF(health.LivenessHandler()))
	r.GET("/readyz", gin.WrapF(health.ReadinessHandler(agg)))
	r.GET("/health", gin.WrapF(health.DetailedHandler(agg)))
	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}

	v1 := r.Group("/v1")
	v1.POST("/regenerate", s.regenerate)
	v1.GET("/regenerate", s.capabilities)
	v1.POST("/validate", s.validate)

	cons := v1.Group("/consistency")
	cons.POST("/check", s.checkConsistency)
	cons.POST("/track", s.trackCharacter)
	cons.GET("/stats", s.consistencyStats)
	cons.GET("/:storyId", s.profile)
	cons.DELETE("", s.clearProfiles)

	c := v1.Group("/cache")
	c.GET("/stats", s.cacheStats)
	c.DELETE("/:storyId", s.invalidateStory)
	c.DELETE("", s.clearCache)
}
