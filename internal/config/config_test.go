package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nishad/srafetch/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.Tools.FastqDump != "fastq-dump" {
		t.Errorf("expected fastq-dump, got %q", cfg.Tools.FastqDump)
	}
	if cfg.Tools.Parallel != "parallel" {
		t.Errorf("expected parallel, got %q", cfg.Tools.Parallel)
	}
	if cfg.Dispatch.Jobs != 0 {
		t.Errorf("expected unbounded dispatch (0), got %d", cfg.Dispatch.Jobs)
	}
	if cfg.Compression.Level != 1 {
		t.Errorf("expected compression level 1, got %d", cfg.Compression.Level)
	}
	if cfg.Journal.Enabled {
		t.Error("expected journal to be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("Load should return defaults for non-existent file, got error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config for non-existent file")
	}
}

func TestLoadValidFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
tools:
  prefetch: /opt/sratoolkit/bin/prefetch
dispatch:
  jobs: 8
compression:
  level: 3
  fallback: false
journal:
  enabled: true
  path: /tmp/srafetch-test/journal.db
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Tools.Prefetch != "/opt/sratoolkit/bin/prefetch" {
		t.Errorf("unexpected prefetch %q", cfg.Tools.Prefetch)
	}
	if cfg.Tools.Pigz != "pigz" {
		t.Errorf("unset tools should keep defaults, got pigz=%q", cfg.Tools.Pigz)
	}
	if cfg.Dispatch.Jobs != 8 {
		t.Errorf("expected jobs 8, got %d", cfg.Dispatch.Jobs)
	}
	if cfg.Compression.Level != 3 || cfg.Compression.Fallback {
		t.Errorf("unexpected compression %+v", cfg.Compression)
	}
	if !cfg.Journal.Enabled || cfg.Journal.Path != "/tmp/srafetch-test/journal.db" {
		t.Errorf("unexpected journal %+v", cfg.Journal)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("invalid: yaml: [broken"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
	if !errors.IsKind(err, errors.KindConfig) {
		t.Errorf("expected config kind, got %v", errors.GetKind(err))
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative jobs", func(c *Config) { c.Dispatch.Jobs = -1 }, "dispatch.jobs"},
		{"level zero", func(c *Config) { c.Compression.Level = 0 }, "compression.level"},
		{"level ten", func(c *Config) { c.Compression.Level = 10 }, "compression.level"},
		{"empty tool", func(c *Config) { c.Tools.FastqDump = "" }, "tools.fastq_dump"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	if got := GetConfigPath("/explicit.yaml"); got != "/explicit.yaml" {
		t.Errorf("explicit path should win, got %q", got)
	}

	t.Setenv("SRAFETCH_CONFIG", "/env/config.yaml")
	if got := GetConfigPath(""); got != "/env/config.yaml" {
		t.Errorf("expected env path, got %q", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := expandPath("~/journal.db"); got != filepath.Join(home, "journal.db") {
		t.Errorf("unexpected expansion %q", got)
	}
	if got := expandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path should be unchanged, got %q", got)
	}
	if got := expandPath(""); got != "" {
		t.Errorf("empty path should stay empty, got %q", got)
	}
}

func TestLoadExplicit(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadExplicit(filepath.Join(dir, "typo.yaml"))
	if !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config error for a missing named file, got %v", err)
	}

	path := filepath.Join(dir, "srafetch.yaml")
	if err := os.WriteFile(path, []byte("dispatch:\n  jobs: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadExplicit(path)
	if err != nil {
		t.Fatalf("LoadExplicit failed: %v", err)
	}
	if cfg.Dispatch.Jobs != 2 {
		t.Errorf("expected jobs 2, got %d", cfg.Dispatch.Jobs)
	}
}
