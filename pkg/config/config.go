package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all recocache configuration.
type Config struct {
	Listen   string         `yaml:"listen"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Cache    CacheConfig    `yaml:"cache"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Log      LogConfig      `yaml:"log"`
}

// UpstreamConfig defines the remote recommendation service.
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	TopN    int           `yaml:"top_n"`
}

// CacheConfig controls the recommendation cache.
type CacheConfig struct {
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	DedupeInflight bool          `yaml:"dedupe_inflight"`
	TTL            TTLConfig     `yaml:"ttl"`
}

// TTLConfig sets the lifetime of each lookup kind. Zero means the default.
type TTLConfig struct {
	Place    time.Duration `yaml:"place"`
	User     time.Duration `yaml:"user"`
	Nearby   time.Duration `yaml:"nearby"`
	Category time.Duration `yaml:"category"`
}

// TrackerConfig controls the SQLite lookup history.
type TrackerConfig struct {
	Enabled   bool          `yaml:"enabled"`
	DBPath    string        `yaml:"db_path"`
	Retention time.Duration `yaml:"retention"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" (default) or "text"
}

// DefaultTTL returns the per-kind lifetimes. User results are shortest since
// they change with the user's own ratings; category results are longest.
func DefaultTTL() TTLConfig {
	return TTLConfig{
		Place:    10 * time.Minute,
		User:     5 * time.Minute,
		Nearby:   15 * time.Minute,
		Category: 20 * time.Minute,
	}
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Upstream: UpstreamConfig{
			BaseURL: "https://api.explore-jakarta.my.id",
			Timeout: 10 * time.Second,
			TopN:    6,
		},
		Cache: CacheConfig{
			SweepInterval:  10 * time.Minute,
			DedupeInflight: true,
			TTL:            DefaultTTL(),
		},
		Tracker: TrackerConfig{
			Enabled:   true,
			DBPath:    "recocache.db",
			Retention: 7 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path if it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream.base_url is required")
	}
	if c.Upstream.TopN <= 0 {
		return fmt.Errorf("upstream.top_n must be positive, got %d", c.Upstream.TopN)
	}
	if c.Upstream.Timeout < 0 {
		return fmt.Errorf("upstream.timeout must not be negative, got %s", c.Upstream.Timeout)
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache.sweep_interval must be positive, got %s", c.Cache.SweepInterval)
	}
	ttls := []struct {
		name string
		ttl  time.Duration
	}{
		{"place", c.Cache.TTL.Place},
		{"user", c.Cache.TTL.User},
		{"nearby", c.Cache.TTL.Nearby},
		{"category", c.Cache.TTL.Category},
	}
	for _, e := range ttls {
		if e.ttl < 0 {
			return fmt.Errorf("cache.ttl.%s must not be negative, got %s", e.name, e.ttl)
		}
	}
	if c.Tracker.Enabled && c.Tracker.DBPath == "" {
		return errors.New("tracker.db_path is required when tracker is enabled")
	}
	return nil
}
