// Package config provides bootstrap configuration for llm-router: the
// settings a process needs before the database is open (listen address,
// database path, logging) plus request limits. Everything user-tunable at
// runtime lives in the settings store instead.
package config

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
)

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config is the complete bootstrap configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
	Providers ProvidersConfig `yaml:"providers" toml:"providers"`
}

// ServerConfig defines listener-level settings.
type ServerConfig struct {
	Listen        string          `yaml:"listen" toml:"listen"`
	APIKey        string          `yaml:"api_key" toml:"api_key"`
	TimeoutMS     int             `yaml:"timeout_ms" toml:"timeout_ms"`
	MaxConcurrent int64           `yaml:"max_concurrent" toml:"max_concurrent"`
	MaxBodyBytes  int64           `yaml:"max_body_bytes" toml:"max_body_bytes"`
	EnableHTTP2   bool            `yaml:"enable_http2" toml:"enable_http2"`
	RateLimit     RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// RateLimitConfig throttles the admin API. Zero RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" toml:"rps"`
	Burst int     `yaml:"burst" toml:"burst"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path          string `yaml:"path" toml:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" toml:"busy_timeout_ms"`
}

// LoggingConfig defines operational log behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // json, pretty, console (auto)
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or a file path
	Pretty bool   `yaml:"pretty" toml:"pretty"`
}

// TelemetryConfig sizes the capture pipeline.
type TelemetryConfig struct {
	// Buffer is the async write queue capacity. Default 256.
	Buffer int `yaml:"buffer" toml:"buffer"`
	// StatsTTLMS is how long the stats aggregate is cached. Default 5000.
	StatsTTLMS int `yaml:"stats_ttl_ms" toml:"stats_ttl_ms"`
	// DisableCache turns the stats cache into a passthrough.
	DisableCache bool `yaml:"disable_cache" toml:"disable_cache"`
}

// ProvidersConfig holds provider-related bootstrap values.
type ProvidersConfig struct {
	// Fallback is the provider id that active-provider resolution returns
	// when the setting is unset or dangling.
	Fallback string `yaml:"fallback" toml:"fallback"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:        "127.0.0.1:8000",
			TimeoutMS:     0,
			MaxConcurrent: 0,
			MaxBodyBytes:  10 << 20,
			RateLimit:     RateLimitConfig{RPS: 0, Burst: 0},
		},
		Database: DatabaseConfig{
			Path:          "llm-router.db",
			BusyTimeoutMS: 5000,
		},
		Logging: LoggingConfig{
			Level:  LevelInfo,
			Format: "console",
			Output: "stdout",
		},
		Telemetry: TelemetryConfig{
			Buffer:     256,
			StatsTTLMS: 5000,
		},
		Providers: ProvidersConfig{
			Fallback: "local-default",
		},
	}
}

// ParseLevel converts the configured level to a zerolog level.
// Unknown levels fall back to info.
func (l LoggingConfig) ParseLevel() zerolog.Level {
	switch l.Level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo, "":
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// GetRequestTimeoutOption returns the server request timeout as an Option.
// None means no timeout is enforced.
func (s ServerConfig) GetRequestTimeoutOption() mo.Option[time.Duration] {
	if s.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(s.TimeoutMS) * time.Millisecond)
}

// GetStatsTTL returns the stats cache TTL with the default applied.
func (t TelemetryConfig) GetStatsTTL() time.Duration {
	if t.StatsTTLMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(t.StatsTTLMS) * time.Millisecond
}

// GetBusyTimeout returns the SQLite busy timeout with the default applied.
func (d DatabaseConfig) GetBusyTimeout() time.Duration {
	if d.BusyTimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.BusyTimeoutMS) * time.Millisecond
}
