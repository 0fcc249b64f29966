// Package config provides configuration loading for sectiond.
//
// Configuration is loaded from a YAML file with environment variable
// overrides and sensible defaults. Every segmentation, scoring, and
// similarity tunable lives here rather than as embedded constants, so the
// heuristics can be recalibrated against new document styles without code
// changes.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/sectiond/internal/embeddings"
	"github.com/fyrsmithlabs/sectiond/internal/engine"
	"github.com/fyrsmithlabs/sectiond/internal/insight"
	"github.com/fyrsmithlabs/sectiond/internal/scoring"
	"github.com/fyrsmithlabs/sectiond/internal/segment"
	"github.com/fyrsmithlabs/sectiond/internal/similarity"
	"github.com/fyrsmithlabs/sectiond/internal/telemetry"
)

// Config holds the complete sectiond configuration.
type Config struct {
	Server     ServerConfig      `koanf:"server"`
	Logging    LoggingConfig     `koanf:"logging"`
	Segmenter  segment.Config    `koanf:"segmenter"`
	Scoring    scoring.Config    `koanf:"scoring"`
	Insights   insight.Config    `koanf:"insights"`
	Similarity similarity.Config `koanf:"similarity"`
	Embeddings EmbeddingsConfig  `koanf:"embeddings"`
	Engine     engine.Config     `koanf:"engine"`
	Telemetry  telemetry.Config  `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxUploadBytes caps the total multipart upload size per request.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output encoding: json or console.
	Format string `koanf:"format"`
}

// EmbeddingsConfig holds embedding provider and cache configuration.
type EmbeddingsConfig struct {
	embeddings.ProviderConfig

	// CacheEntries caps the content-addressed vector cache (LRU by entry
	// count).
	CacheEntries int `koanf:"cache_entries"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 64 << 20 // 64MB
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Embeddings defaults (fastembed is default - local, no external deps)
	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "fastembed"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080"
	}
	if cfg.Embeddings.CacheEntries == 0 {
		cfg.Embeddings.CacheEntries = embeddings.DefaultCacheEntries
	}

	// Component defaults
	cfg.Segmenter.ApplyDefaults()
	cfg.Scoring.ApplyDefaults()
	cfg.Insights.ApplyDefaults()
	cfg.Similarity.ApplyDefaults()
	cfg.Engine.ApplyDefaults()
	cfg.Telemetry.ApplyDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}

	if err := c.Segmenter.Validate(); err != nil {
		return fmt.Errorf("segmenter: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Insights.Validate(); err != nil {
		return fmt.Errorf("insights: %w", err)
	}
	if err := c.Similarity.Validate(); err != nil {
		return fmt.Errorf("similarity: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}
