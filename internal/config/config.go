// Package config loads the server configuration from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/zaloga/internal/pricing"
)

// Config is the full server configuration.
type Config struct {
	Addr      string `yaml:"addr"`
	DB        string `yaml:"db"`
	Log       string `yaml:"log"`
	AdminUser string `yaml:"admin_user"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Pricing struct {
		AdjustmentBP   int64 `yaml:"adjustment_bp"`
		MinMarginCents int64 `yaml:"min_margin_cents"`
	} `yaml:"pricing"`

	Repricing struct {
		SampleSize int `yaml:"sample_size"`
	} `yaml:"repricing"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{
		Addr:      ":8080",
		DB:        "zaloga.sqlite3",
		AdminUser: "Admin",
	}
	c.Logging.Level = "info"
	c.Logging.Format = "text"
	c.Pricing.AdjustmentBP = -100
	c.Pricing.MinMarginCents = 200
	c.Repricing.SampleSize = 20
	c.Redis.TTL = 24 * time.Hour
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	return c
}

// Load reads path on top of the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.DB == "" {
		return errors.New("db must not be empty")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if err := c.Policy().Validate(); err != nil {
		return err
	}
	if c.Repricing.SampleSize < 1 {
		return errors.New("repricing.sample_size must be at least 1")
	}
	if c.Redis.TTL <= 0 {
		return errors.New("redis.ttl must be positive")
	}
	if c.Metrics.Enabled && (c.Metrics.Path == "" || c.Metrics.Path[0] != '/') {
		return errors.New("metrics.path must start with /")
	}
	return nil
}

// Policy returns the configured default pricing policy.
func (c *Config) Policy() pricing.Policy {
	return pricing.Policy{
		AdjustmentBP: c.Pricing.AdjustmentBP,
		MinMargin:    c.Pricing.MinMarginCents,
	}
}
