package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/jonwraymond/regenops/cache"
	"github.com/jonwraymond/regenops/observe"
	"github.com/jonwraymond/regenops/persist"
	"github.com/jonwraymond/regenops/regen"
	"github.com/jonwraymond/regenops/secret"
	"github.com/jonwraymond/regenops/validate"
)

// Prefix is the environment variable prefix.
const Prefix = "REGEN"

var (
	// ErrInvalidStore is returned for an unknown REGEN_STORE backend.
	ErrInvalidStore = errors.New("config: invalid store backend")

	// ErrInvalidValue is returned for out-of-range numeric settings.
	ErrInvalidValue = errors.New("config: invalid value")
)

// Config is the complete service configuration.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	ServiceName     string        `envconfig:"SERVICE_NAME" default:"regend"`

	LogLevel         string  `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding      string  `envconfig:"LOG_ENCODING" default:"json"`
	TracingExporter  string  `envconfig:"TRACING_EXPORTER" default:"none"`
	TracingSamplePct float64 `envconfig:"TRACING_SAMPLE_PCT" default:"1"`
	MetricsExporter  string  `envconfig:"METRICS_EXPORTER" default:"none"`

	Store          string `envconfig:"STORE" default:"memory"`
	StoreResilient bool   `envconfig:"STORE_RESILIENT" default:"true"`
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix    string `envconfig:"REDIS_PREFIX" default:"regen:"`
	SQLitePath     string `envconfig:"SQLITE_PATH" default:"regen.db"`

	CacheTTL           time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	CacheMaxEntries    int           `envconfig:"CACHE_MAX_ENTRIES" default:"50"`
	CacheSweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"5m"`
	RateLimitPerHour   int           `envconfig:"RATE_LIMIT_PER_HOUR" default:"20"`
	MaxProfiles        int           `envconfig:"MAX_PROFILES" default:"50"`

	// GeneratorURL is the upstream generation endpoint. Without it the
	// service validates and checks consistency but cannot regenerate.
	GeneratorURL           string        `envconfig:"GENERATOR_URL"`
	GeneratorAPIKey        string        `envconfig:"GENERATOR_API_KEY"`
	GeneratorTimeout       time.Duration `envconfig:"GENERATOR_TIMEOUT" default:"2m"`
	GeneratorMaxAttempts   int           `envconfig:"GENERATOR_MAX_ATTEMPTS" default:"3"`
	GeneratorMaxConcurrent int           `envconfig:"GENERATOR_MAX_CONCURRENT" default:"4"`
	GeneratorRatePerSecond float64       `envconfig:"GENERATOR_RATE_PER_SECOND" default:"0"`

	SecretProviders []string `envconfig:"SECRET_PROVIDERS" default:"env,file"`
	SecretsDir      string   `envconfig:"SECRETS_DIR" default:"/run/secrets"`
}

// Load reads envFiles (missing files are ignored; with none given, ".env"),
// processes REGEN_ variables, resolves secret references and validates the
// result.
func Load(ctx context.Context, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.resolveSecrets(ctx); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolveSecrets(ctx context.Context) error {
	r, err := secret.DefaultRegistry.Resolver(true, c.SecretProviders, map[string]string{"dir": c.SecretsDir})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer r.Close()

	err = r.ResolveAll(ctx, map[string]*string{
		"REGEN_REDIS_ADDR":        &c.RedisAddr,
		"REGEN_REDIS_PASSWORD":    &c.RedisPassword,
		"REGEN_GENERATOR_URL":     &c.GeneratorURL,
		"REGEN_GENERATOR_API_KEY": &c.GeneratorAPIKey,
	})
	if err != nil {
		return fmt.Errorf("config: resolve secrets: %w", err)
	}
	return nil
}

// Validate checks value ranges and backend names.
func (c *Config) Validate() error {
	backends := []string{persist.BackendNone, persist.BackendMemory, persist.BackendRedis, persist.BackendSQLite}
	if !slices.Contains(backends, c.Store) {
		return fmt.Errorf("%w: %q", ErrInvalidStore, c.Store)
	}

	positive := []struct {
		name string
		ok   bool
	}{
		{"REGEN_CACHE_TTL", c.CacheTTL > 0},
		{"REGEN_CACHE_MAX_ENTRIES", c.CacheMaxEntries > 0},
		{"REGEN_CACHE_SWEEP_INTERVAL", c.CacheSweepInterval > 0},
		{"REGEN_RATE_LIMIT_PER_HOUR", c.RateLimitPerHour > 0},
		{"REGEN_MAX_PROFILES", c.MaxProfiles > 0},
		{"REGEN_GENERATOR_TIMEOUT", c.GeneratorTimeout > 0},
		{"REGEN_SHUTDOWN_TIMEOUT", c.ShutdownTimeout > 0},
	}
	for _, p := range positive {
		if !p.ok {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidValue, p.name)
		}
	}
	if c.GeneratorRatePerSecond < 0 {
		return fmt.Errorf("%w: REGEN_GENERATOR_RATE_PER_SECOND must not be negative", ErrInvalidValue)
	}

	obs := c.Observe("")
	return obs.Validate()
}

// Observe returns the telemetry configuration.
func (c *Config) Observe(version string) observe.Config {
	return observe.Config{
		ServiceName: c.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.TracingExporter != "" && c.TracingExporter != "none",
			Exporter:  c.TracingExporter,
			SamplePct: c.TracingSamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.MetricsExporter != "" && c.MetricsExporter != "none",
			Exporter: c.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled:  true,
			Level:    c.LogLevel,
			Encoding: c.LogEncoding,
		},
	}
}

// Persist returns the store configuration.
func (c *Config) Persist() persist.OpenConfig {
	return persist.OpenConfig{
		Backend: c.Store,
		Redis: persist.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.RedisPrefix,
		},
		SQLitePath: c.SQLitePath,
		Resilient:  c.StoreResilient,
	}
}

// CachePolicy returns the regeneration cache policy.
func (c *Config) CachePolicy() cache.Policy {
	p := cache.DefaultPolicy()
	p.TTL = c.CacheTTL
	p.MaxEntries = c.CacheMaxEntries
	p.SweepInterval = c.CacheSweepInterval
	return p
}

// Limits returns the validator thresholds.
func (c *Config) Limits() validate.Limits {
	l := validate.DefaultLimits()
	l.MaxPerHour = c.RateLimitPerHour
	return l
}

// HasGenerator reports whether an upstream generator is configured.
func (c *Config) HasGenerator() bool {
	return c.GeneratorURL != ""
}

// Generator returns the upstream generator configuration.
func (c *Config) Generator(logger observe.Logger) regen.HTTPGeneratorConfig {
	return regen.HTTPGeneratorConfig{
		Endpoint:      c.GeneratorURL,
		APIKey:        c.GeneratorAPIKey,
		Timeout:       c.GeneratorTimeout,
		MaxAttempts:   c.GeneratorMaxAttempts,
		MaxConcurrent: c.GeneratorMaxConcurrent,
		RatePerSecond: c.GeneratorRatePerSecond,
		Logger:        logger,
	}
}
