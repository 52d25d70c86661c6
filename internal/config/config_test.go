package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "json2relcsv.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvLogLevel, EnvLogFormat, EnvOutDir, EnvLoadURL, EnvDatabaseURL} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := DefaultConfig()
	if cfg.Output.Dir != def.Output.Dir || cfg.Output.Format != FormatCSV {
		t.Errorf("expected default output settings, got %+v", cfg.Output)
	}
	if cfg.Inference.MaxDepth != 512 {
		t.Errorf("expected max depth 512, got %d", cfg.Inference.MaxDepth)
	}
	if cfg.Input.MaxBytes != DefaultMaxInputBytes {
		t.Errorf("expected max bytes %d, got %d", DefaultMaxInputBytes, cfg.Input.MaxBytes)
	}
	if cfg.Load.URL != "" {
		t.Errorf("expected no load url, got %s", cfg.Load.URL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Load(path)
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("expected path in error, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
inference:
  max_depth: 64
  bare_root_names: true
output:
  dir: out
  format: COPY
  tables: [root, root_items]
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Inference.MaxDepth != 64 || !cfg.Inference.BareRootNames {
		t.Errorf("unexpected inference config: %+v", cfg.Inference)
	}
	if cfg.Output.Dir != "out" || cfg.Output.Format != FormatCopy {
		t.Errorf("unexpected output config: %+v", cfg.Output)
	}
	if strings.Join(cfg.Output.Tables, ",") != "root,root_items" {
		t.Errorf("unexpected tables: %v", cfg.Output.Tables)
	}
	if cfg.Output.Workers != 4 {
		t.Errorf("expected default workers 4, got %d", cfg.Output.Workers)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "output:\n  dir: from-file\nload:\n  url: sqlite://file.db\n")

	t.Setenv(EnvOutDir, "from-env")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvDatabaseURL, "postgres://fallback")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Output.Dir != "from-env" {
		t.Errorf("expected env to override out dir, got %s", cfg.Output.Dir)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json log format, got %s", cfg.Logging.Format)
	}
	if cfg.Load.URL != "sqlite://file.db" {
		t.Errorf("expected DATABASE_URL not to override file url, got %s", cfg.Load.URL)
	}
}

func TestLoadIgnoresDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDatabaseURL, "postgres://prod/app")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Load.URL != "" {
		t.Errorf("expected DATABASE_URL alone not to enable loading, got %s", cfg.Load.URL)
	}
}

func TestApplyEnvLoadURL(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		env      map[string]string
		expected string
	}{
		{"none", "", nil, ""},
		{"database url ignored", "", map[string]string{EnvDatabaseURL: "postgres://db"}, ""},
		{"explicit", "", map[string]string{EnvLoadURL: "mysql://x", EnvDatabaseURL: "postgres://db"}, "mysql://x"},
		{"explicit overrides file", "sqlite://a.db", map[string]string{EnvLoadURL: "sqlite://b.db"}, "sqlite://b.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Load.URL = tt.file
			cfg.applyEnv(func(k string) string { return tt.env[k] })
			if cfg.Load.URL != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, cfg.Load.URL)
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "output: [", "parse config"},
		{"bad format", "output:\n  format: parquet\n", "output.format"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad log format", "logging:\n  format: xml\n", "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
