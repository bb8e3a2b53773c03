// Package config loads service configuration from config.yaml and FX_* environment variables
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete service configuration
type Config struct {
	LogLevel   string           `mapstructure:"log_level"`
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Providers  []ProviderConfig `mapstructure:"providers"`
	Prediction PredictionConfig `mapstructure:"prediction"`
	Routes     RoutesConfig     `mapstructure:"routes"`
	Batch      BatchConfig      `mapstructure:"batch"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig locates the BadgerDB data directory
type StorageConfig struct {
	DataDir  string `mapstructure:"data_dir"`
	InMemory bool   `mapstructure:"in_memory"`
}

// CacheConfig selects the rate cache backend. Backend is "memory" or "redis".
type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	TTL             time.Duration `mapstructure:"ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

// RedisConfig is used when the cache backend is redis
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ResolverConfig tunes rate resolution
type ResolverConfig struct {
	AnchorCurrency string        `mapstructure:"anchor_currency"`
	LookupTimeout  time.Duration `mapstructure:"lookup_timeout"`
}

// AggregatorConfig bounds each provider call
type AggregatorConfig struct {
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
}

// ProviderConfig describes one external rate provider. Type is "treasury"
// or "http".
type ProviderConfig struct {
	Name    string  `mapstructure:"name"`
	Type    string  `mapstructure:"type"`
	BaseURL string  `mapstructure:"base_url"`
	APIKey  string  `mapstructure:"api_key"`
	Weight  float64 `mapstructure:"weight"`
}

// PredictionConfig sizes the history window used for forecasts
type PredictionConfig struct {
	Window     int `mapstructure:"window"`
	MinSamples int `mapstructure:"min_samples"`
}

// RoutesConfig tunes route scoring. DefaultHistoryScore applies to routes
// without recorded performance.
type RoutesConfig struct {
	DefaultHistoryScore float64 `mapstructure:"default_history_score"`
	Smoothing           float64 `mapstructure:"smoothing"`
	SeedCatalog         bool    `mapstructure:"seed_catalog"`
}

// BatchConfig bounds batch optimization fan-out
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	ProviderTypeTreasury = "treasury"
	ProviderTypeHTTP     = "http"
)

// Load reads config.yaml from the given search paths (./configs and . when
// none are given), overlays FX_* environment variables and validates the result.
// A missing config file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./configs", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix("FX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")

	// Storage
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.in_memory", false)

	// Cache
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.janitor_interval", "5m")

	// Redis
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Resolver
	v.SetDefault("resolver.anchor_currency", "USD")
	v.SetDefault("resolver.lookup_timeout", "5s")

	// Aggregator
	v.SetDefault("aggregator.provider_timeout", "5s")
	v.SetDefault("providers", []map[string]interface{}{
		{"name": "treasury", "type": ProviderTypeTreasury, "weight": 1.0},
	})

	// Prediction
	v.SetDefault("prediction.window", 30)
	v.SetDefault("prediction.min_samples", 10)

	// Routes
	v.SetDefault("routes.default_history_score", 75.0)
	v.SetDefault("routes.smoothing", 0.2)
	v.SetDefault("routes.seed_catalog", true)

	// Batch
	v.SetDefault("batch.concurrency", 5)
}

// Validate checks the values that cannot be defaulted silently
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Routes.Smoothing <= 0 || c.Routes.Smoothing > 1 {
		return fmt.Errorf("routes.smoothing must be in (0,1], got %v", c.Routes.Smoothing)
	}
	if c.Routes.DefaultHistoryScore <= 0 || c.Routes.DefaultHistoryScore > 100 {
		return fmt.Errorf("routes.default_history_score must be in (0,100], got %v", c.Routes.DefaultHistoryScore)
	}

	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("providers[%d]: name is required", i)
		}
		switch p.Type {
		case ProviderTypeTreasury:
		case ProviderTypeHTTP:
			if p.BaseURL == "" {
				return fmt.Errorf("providers[%d] %s: base_url is required for http providers", i, p.Name)
			}
		default:
			return fmt.Errorf("providers[%d] %s: unknown type %q", i, p.Name, p.Type)
		}
	}

	return nil
}

// Address returns the listen address for the HTTP server
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
