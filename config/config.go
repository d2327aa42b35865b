package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/counterhealth/eventcounter"
	"github.com/jonwraymond/counterhealth/instrument"
	"github.com/jonwraymond/counterhealth/observe"
	"github.com/jonwraymond/counterhealth/resilience"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COUNTERHEALTH"

var (
	// ErrInvalidAddr is returned when the HTTP listen address is empty.
	ErrInvalidAddr = errors.New("config: http addr is required")

	// ErrInvalidInterval is returned when the aggregation interval is not positive.
	ErrInvalidInterval = errors.New("config: interval must be positive")

	// ErrInvalidFilter is returned when a filter entry is incomplete or inconsistent.
	ErrInvalidFilter = errors.New("config: invalid filter")
)

// Config holds the daemon configuration.
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Observe   ObserveConfig   `mapstructure:"observe"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Interval  time.Duration   `mapstructure:"interval"`
	Isolation IsolationConfig `mapstructure:"isolation"`
	Filters   []FilterConfig  `mapstructure:"filters"`
}

// ServiceConfig names the running service.
type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// HTTPConfig configures the diagnostics server.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ObserveConfig configures telemetry.
type ObserveConfig struct {
	Tracing struct {
		Enabled   bool    `mapstructure:"enabled"`
		Exporter  string  `mapstructure:"exporter"`
		SamplePct float64 `mapstructure:"sample_pct"`
	} `mapstructure:"tracing"`
	Metrics struct {
		Enabled  bool   `mapstructure:"enabled"`
		Exporter string `mapstructure:"exporter"`
	} `mapstructure:"metrics"`
	Logging struct {
		Enabled bool   `mapstructure:"enabled"`
		Level   string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// AuthConfig protects the detailed health endpoint. With no API keys and no
// JWT secret the endpoint is open. API key principals are lower-cased on load.
type AuthConfig struct {
	APIKeyHeader string            `mapstructure:"api_key_header"`
	APIKeys      map[string]string `mapstructure:"api_keys"`
	JWTSecret    string            `mapstructure:"jwt_secret"`
	JWTIssuer    string            `mapstructure:"jwt_issuer"`
	JWTAudience  string            `mapstructure:"jwt_audience"`
}

// Enabled reports whether any authenticator is configured.
func (c AuthConfig) Enabled() bool {
	return len(c.APIKeys) > 0 || c.JWTSecret != ""
}

// IsolationConfig configures per-filter circuit breakers.
type IsolationConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxFailures  int           `mapstructure:"max_failures"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
}

// FilterConfig describes one threshold filter.
type FilterConfig struct {
	Source    string  `mapstructure:"source"`
	Counter   string  `mapstructure:"counter"`
	Direction string  `mapstructure:"direction"`
	Degraded  float64 `mapstructure:"degraded"`
	Unhealthy float64 `mapstructure:"unhealthy"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "counterhealth")
	v.SetDefault("service.version", "dev")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", "5s")
	v.SetDefault("interval", eventcounter.DefaultInterval.String())

	v.SetDefault("observe.tracing.enabled", false)
	v.SetDefault("observe.tracing.exporter", "stdout")
	v.SetDefault("observe.tracing.sample_pct", 1.0)
	v.SetDefault("observe.metrics.enabled", true)
	v.SetDefault("observe.metrics.exporter", "prometheus")
	v.SetDefault("observe.logging.enabled", true)
	v.SetDefault("observe.logging.level", "info")

	v.SetDefault("auth.api_key_header", "X-API-Key")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "")
	v.SetDefault("auth.jwt_audience", "")

	v.SetDefault("isolation.enabled", false)
	v.SetDefault("isolation.max_failures", 5)
	v.SetDefault("isolation.reset_timeout", "30s")

	v.SetDefault("filters", []map[string]any{
		{"source": instrument.RuntimeSourceName, "counter": instrument.CounterCPUUsage, "direction": "max", "degraded": 80, "unhealthy": 95},
		{"source": instrument.RuntimeSourceName, "counter": instrument.CounterGoroutineCount, "direction": "max", "degraded": 5000, "unhealthy": 20000},
	})
}

// Load reads configuration from path, if non-empty, then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration, including the observer settings it maps to.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return ErrInvalidAddr
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w, got: %s", ErrInvalidInterval, c.Interval)
	}

	obs := c.ObserverConfig()
	if err := obs.Validate(); err != nil {
		return err
	}

	counters := make(map[string]int, len(c.Filters))
	for i, f := range c.Filters {
		if err := f.validate(); err != nil {
			return fmt.Errorf("%w: filters[%d]: %v", ErrInvalidFilter, i, err)
		}
		// The counter name keys the diagnostic entry.
		key := strings.ToLower(f.Counter)
		if prev, dup := counters[key]; dup {
			return fmt.Errorf("%w: filters[%d]: counter %q already watched by filters[%d]", ErrInvalidFilter, i, f.Counter, prev)
		}
		counters[key] = i
	}
	return nil
}

func (f FilterConfig) validate() error {
	if f.Source == "" {
		return errors.New("source is required")
	}
	if f.Counter == "" {
		return errors.New("counter is required")
	}
	dir, err := f.direction()
	if err != nil {
		return err
	}
	if dir == eventcounter.DirectionMax && f.Degraded > f.Unhealthy {
		return fmt.Errorf("degraded %v above unhealthy %v", f.Degraded, f.Unhealthy)
	}
	if dir == eventcounter.DirectionMin && f.Degraded < f.Unhealthy {
		return fmt.Errorf("degraded %v below unhealthy %v", f.Degraded, f.Unhealthy)
	}
	return nil
}

// direction defaults to max when unset.
func (f FilterConfig) direction() (eventcounter.Direction, error) {
	if f.Direction == "" {
		return eventcounter.DirectionMax, nil
	}
	return eventcounter.ParseDirection(f.Direction)
}

// ObserverConfig maps the telemetry settings onto observe.Config.
func (c *Config) ObserverConfig() observe.Config {
	return observe.Config{
		ServiceName: c.Service.Name,
		Version:     c.Service.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Observe.Tracing.Enabled,
			Exporter:  c.Observe.Tracing.Exporter,
			SamplePct: c.Observe.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observe.Metrics.Enabled,
			Exporter: c.Observe.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: c.Observe.Logging.Enabled,
			Level:   c.Observe.Logging.Level,
		},
	}
}

// BreakerConfig maps the isolation settings onto a circuit breaker config.
func (c *Config) BreakerConfig() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		MaxFailures:  c.Isolation.MaxFailures,
		ResetTimeout: c.Isolation.ResetTimeout,
	}
}

// ThresholdFilters builds the configured filters.
func (c *Config) ThresholdFilters() ([]eventcounter.Filter, error) {
	filters := make([]eventcounter.Filter, 0, len(c.Filters))
	for i, f := range c.Filters {
		dir, err := f.direction()
		if err != nil {
			return nil, fmt.Errorf("%w: filters[%d]: %v", ErrInvalidFilter, i, err)
		}
		filters = append(filters, eventcounter.NewThresholdFilter(f.Source, f.Counter, f.Unhealthy, f.Degraded, dir))
	}
	return filters, nil
}
