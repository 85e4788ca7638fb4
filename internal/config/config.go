// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Entity     EntityConfig     `mapstructure:"entity"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ExtractionConfig governs the fetch/extract pipeline.
type ExtractionConfig struct {
	MaxRetries     int    `mapstructure:"max_retries"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxProducts    int    `mapstructure:"max_products"`
	CrawlDelayMs   int    `mapstructure:"crawl_delay_ms"`
	FollowLinks    bool   `mapstructure:"follow_links"`
}

// BatchConfig bounds concurrent batch processing.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// DatabaseConfig controls access to the relational database. An empty DSN
// selects the in-memory store.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ClassifierConfig configures the optional context classification service.
type ClassifierConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// EntityConfig configures the optional entity lookup service.
type EntityConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STRYKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("extraction.max_retries", 3)
	v.SetDefault("extraction.timeout_seconds", 30)
	v.SetDefault("extraction.user_agent", "Mozilla/5.0 (compatible; WebStryker/1.0)")
	v.SetDefault("extraction.max_products", 20)
	v.SetDefault("extraction.crawl_delay_ms", 300)
	v.SetDefault("extraction.follow_links", true)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("classifier.model", "gpt-4o-mini")
	v.SetDefault("classifier.timeout_seconds", 15)
	v.SetDefault("entity.timeout_seconds", 10)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Extraction.MaxRetries <= 0 {
		return fmt.Errorf("extraction.max_retries must be > 0")
	}
	if c.Extraction.TimeoutSeconds <= 0 {
		return fmt.Errorf("extraction.timeout_seconds must be > 0")
	}
	if c.Extraction.MaxProducts <= 0 {
		return fmt.Errorf("extraction.max_products must be > 0")
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FetchTimeout converts the configured timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Extraction.TimeoutSeconds) * time.Second
}

// CrawlDelay converts the configured crawl delay into a duration.
func (c Config) CrawlDelay() time.Duration {
	return time.Duration(c.Extraction.CrawlDelayMs) * time.Millisecond
}
