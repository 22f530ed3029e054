// Package config provides configuration management for the askdb CLI.
//
// Everything the pipeline needs at runtime (provider credential, database
// path, model, timeouts) is loaded once at startup into an explicit Config
// value and passed down; there are no process-wide singletons beyond the
// loader's koanf instance.
package config

import (
	"context"
	"log/slog"
	"time"
)

// Default configuration values.
const (
	DefaultModel        = "gpt-4o-mini"
	DefaultBaseURL      = "https://api.openai.com/v1"
	DefaultTimeoutSecs  = 30
	DefaultHistoryTurns = 15
	DefaultExportDir    = "outputs"
	DefaultOutput       = "table"

	// PlaceholderAPIKey is the value shipped in example env files; it is
	// rejected as if the key were absent.
	PlaceholderAPIKey = "sk-REPLACE_ME"
)

// ExportsConfig controls automatic saving of runs.
type ExportsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

// Config holds all CLI configuration options.
type Config struct {
	APIKey       string        `koanf:"api_key"`
	Database     string        `koanf:"database"`
	Model        string        `koanf:"model"`
	BaseURL      string        `koanf:"base_url"`
	TimeoutSecs  int           `koanf:"timeout"`
	HistoryTurns int           `koanf:"history_turns"`
	Exports      ExportsConfig `koanf:"exports"`
	Verbose      bool          `koanf:"verbose"`
	Output       string        `koanf:"output"`
}

// Timeout returns the per-call provider timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return DefaultTimeoutSecs * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ExportDir returns the configured export directory or the default.
func (c *Config) ExportDir() string {
	if c.Exports.Dir != "" {
		return c.Exports.Dir
	}
	return DefaultExportDir
}

type configKey struct{}
type loggerKey struct{}

// IntoContext stores the config in a context.
func IntoContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from a context, or a default Config if
// none was stored.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		Model:        DefaultModel,
		BaseURL:      DefaultBaseURL,
		TimeoutSecs:  DefaultTimeoutSecs,
		HistoryTurns: DefaultHistoryTurns,
		Output:       DefaultOutput,
	}
}

// WithLogger stores the logger in a context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from a context, falling back to a discard
// logger.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
