package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration file. The format is chosen by
// extension: .toml parses as TOML, everything else as YAML. Environment
// variables in ${VAR} form are expanded before parsing. Values not present
// in the file keep their defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	return LoadFromReader(file, format)
}

// LoadFromReader parses configuration from r in the given format
// ("yaml" or "toml"), overlaying the compiled defaults.
func LoadFromReader(r io.Reader, format string) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := os.ExpandEnv(string(content))

	cfg := Default()
	switch format {
	case "toml":
		if err := toml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for problems, collecting all of them.
func (c *Config) Validate() error {
	validation := &ValidationError{}

	if c.Server.Listen == "" {
		validation.Addf("server.listen must not be empty")
	}
	if c.Database.Path == "" {
		validation.Addf("database.path must not be empty")
	}
	if c.Server.MaxBodyBytes < 0 {
		validation.Addf("server.max_body_bytes must be >= 0, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.RateLimit.RPS < 0 {
		validation.Addf("server.rate_limit.rps must be >= 0, got %g", c.Server.RateLimit.RPS)
	}
	if c.Server.RateLimit.RPS > 0 && c.Server.RateLimit.Burst <= 0 {
		validation.Addf("server.rate_limit.burst must be > 0 when rps is set")
	}
	switch c.Logging.Level {
	case "", LevelDebug, LevelInfo, LevelWarn, LevelError:
	default:
		validation.Addf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	return validation.ToError()
}
