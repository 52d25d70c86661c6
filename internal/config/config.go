// Package config loads json2relcsv settings from a YAML file with
// environment fallbacks.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted after the config file
const (
	EnvLogLevel  = "JSON2RELCSV_LOG_LEVEL"
	EnvLogFormat = "JSON2RELCSV_LOG_FORMAT"
	EnvOutDir    = "JSON2RELCSV_OUT_DIR"
	EnvLoadURL   = "JSON2RELCSV_LOAD_URL"
)

// EnvDatabaseURL is read only when --load-database-url is passed. Its
// presence alone never triggers a load.
const EnvDatabaseURL = "DATABASE_URL"

// ErrConfigNotFound is returned when an explicitly named config file is missing
var ErrConfigNotFound = errors.New("config file not found")

// DefaultMaxInputBytes caps the size of a JSON document read from input
const DefaultMaxInputBytes = 64 << 20

// Output formats
const (
	FormatCSV  = "csv"
	FormatCopy = "copy"
)

// Config holds all application configuration.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	Inference InferenceConfig `yaml:"inference"`
	Output    OutputConfig    `yaml:"output"`
	Load      LoadConfig      `yaml:"load"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InputConfig holds input limits.
type InputConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// InferenceConfig holds schema inference settings.
type InferenceConfig struct {
	MaxDepth      int  `yaml:"max_depth"`
	BareRootNames bool `yaml:"bare_root_names"`
}

// OutputConfig holds settings for written files.
type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Format  string   `yaml:"format"` // "csv" or "copy"
	Workers int      `yaml:"workers"`
	Tables  []string `yaml:"tables"`
}

// LoadConfig holds the database sink target.
type LoadConfig struct {
	URL string `yaml:"url"`
}

// LoggingConfig holds log/slog settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Input:     InputConfig{MaxBytes: DefaultMaxInputBytes},
		Inference: InferenceConfig{MaxDepth: 512},
		Output: OutputConfig{
			Dir:     ".",
			Format:  FormatCSV,
			Workers: 4,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a Config from the YAML file at path, then applies environment
// fallbacks. An empty path yields DefaultConfig; a named file must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills settings from the environment. Variables override the file.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := getenv(EnvOutDir); v != "" {
		c.Output.Dir = v
	}
	if v := getenv(EnvLoadURL); v != "" {
		c.Load.URL = v
	}
}

// Validate fills zero values with defaults and rejects invalid settings.
func (c *Config) Validate() error {
	def := DefaultConfig()

	if c.Input.MaxBytes <= 0 {
		c.Input.MaxBytes = def.Input.MaxBytes
	}
	if c.Inference.MaxDepth <= 0 {
		c.Inference.MaxDepth = def.Inference.MaxDepth
	}
	if c.Output.Dir == "" {
		c.Output.Dir = def.Output.Dir
	}
	if c.Output.Workers <= 0 {
		c.Output.Workers = def.Output.Workers
	}

	c.Output.Format = strings.ToLower(c.Output.Format)
	switch c.Output.Format {
	case "":
		c.Output.Format = def.Output.Format
	case FormatCSV, FormatCopy:
	default:
		return fmt.Errorf("invalid output.format %q (want %s or %s)", c.Output.Format, FormatCSV, FormatCopy)
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "":
		c.Logging.Level = def.Logging.Level
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}

	c.Logging.Format = strings.ToLower(c.Logging.Format)
	switch c.Logging.Format {
	case "":
		c.Logging.Format = def.Logging.Format
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q (want text or json)", c.Logging.Format)
	}

	return nil
}
