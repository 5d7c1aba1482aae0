package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tunogya/subpattern/pkg/logger"
)

// Config represents the application configuration
type Config struct {
	Log      logger.Config  `yaml:"log"`
	Engine   EngineConfig   `yaml:"engine"`
	Segment  SegmentConfig  `yaml:"segment"`
	Feature  FeatureConfig  `yaml:"feature"`
	Match    MatchConfig    `yaml:"match"`
	Provider ProviderConfig `yaml:"provider"`
	DuckDB   DuckDBConfig   `yaml:"duckdb"`
	Milvus   MilvusConfig   `yaml:"milvus"`
	NATS     NATSConfig     `yaml:"nats"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// EngineConfig holds batch runner settings
type EngineConfig struct {
	Workers    int           `yaml:"workers" default:"8" validate:"min=1,max=256"`
	RunTimeout time.Duration `yaml:"run_timeout" default:"30m" validate:"min=0"` // 0 disables the deadline
}

// SegmentConfig holds segment extraction settings
type SegmentConfig struct {
	MinDuration    int `yaml:"min_duration" default:"5" validate:"min=1"`
	MinOpenBars    int `yaml:"min_open_bars" default:"2" validate:"min=1"`
	FeatureVersion int `yaml:"feature_version" default:"1" validate:"min=1"`
}

type FeatureConfig struct {
	VectorDim int `yaml:"vector_dim" default:"32" validate:"min=2,max=1024"`
}

// MatchConfig holds similarity matching settings
type MatchConfig struct {
	Threshold  float64 `yaml:"threshold" default:"0.7" validate:"gte=0,lte=1"`
	TopK       int     `yaml:"top_k" default:"20" validate:"min=1"`
	CrossStock bool    `yaml:"cross_stock"`
}

// ProviderConfig holds retry and rate limit settings for external collaborators
type ProviderConfig struct {
	RetryAttempts int           `yaml:"retry_attempts" default:"3" validate:"min=1"`
	RetryDelay    time.Duration `yaml:"retry_delay" default:"2s"`
	MaxDelay      time.Duration `yaml:"max_delay" default:"30s"`
	RatePerMinute int           `yaml:"rate_per_minute" validate:"min=0"` // requests per minute, 0 is unlimited
}

type DuckDBConfig struct {
	Path string `yaml:"path" default:"subpattern.duckdb" validate:"required"`
}

type MilvusConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Address    string `yaml:"address" default:"localhost:19530" validate:"required_if=Enabled true"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Collection string `yaml:"collection" default:"subpattern_segments" validate:"required_if=Enabled true"`
	NList      int    `yaml:"nlist" default:"128" validate:"min=1"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" default:"nats://localhost:4222" validate:"required_if=Enabled true"`
	Stream  string `yaml:"stream" default:"subpattern" validate:"required_if=Enabled true"`
	Durable string `yaml:"durable" default:"subpattern-writer"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" default:"localhost:6379" validate:"required_if=Enabled true"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"min=0"`
	Prefix   string        `yaml:"prefix" default:"subpattern:"`
	TTL      time.Duration `yaml:"ttl" default:"24h"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:":9090" validate:"required_if=Enabled true"`
}

// Environment variables that override file settings
const (
	EnvDuckDBPath = "SUBPATTERN_DUCKDB_PATH"
	EnvNATSURL    = "SUBPATTERN_NATS_URL"
	EnvMilvusAddr = "SUBPATTERN_MILVUS_ADDR"
	EnvRedisAddr  = "SUBPATTERN_REDIS_ADDR"
	EnvWorkers    = "SUBPATTERN_WORKERS"
	EnvLogLevel   = "SUBPATTERN_LOG_LEVEL"
)

var validate = validator.New()

// Default returns the configuration built from default tags.
// It panics if a default tag is malformed.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config: invalid default tag: %v", err))
	}
	return cfg
}

// Load reads a YAML file over the defaults, applies environment overrides and validates.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section against its validate tags
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDuckDBPath); ok && v != "" {
		c.DuckDB.Path = v
	}
	if v, ok := lookup(EnvNATSURL); ok && v != "" {
		c.NATS.URL = v
		c.NATS.Enabled = true
	}
	if v, ok := lookup(EnvMilvusAddr); ok && v != "" {
		c.Milvus.Address = v
		c.Milvus.Enabled = true
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		c.Engine.Workers = n
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}
