package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nishad/srafetch/internal/errors"
	"github.com/nishad/srafetch/internal/paths"
	"gopkg.in/yaml.v3"
)

// Config represents the srafetch configuration
type Config struct {
	Tools       ToolsConfig       `yaml:"tools"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
	Compression CompressionConfig `yaml:"compression"`
	Journal     JournalConfig     `yaml:"journal"`
}

// ToolsConfig names the external programs. Values may be bare names
// resolved on PATH or absolute paths.
type ToolsConfig struct {
	Esearch   string `yaml:"esearch"`
	Efetch    string `yaml:"efetch"`
	Prefetch  string `yaml:"prefetch"`
	Parallel  string `yaml:"parallel"`
	FastqDump string `yaml:"fastq_dump"`
	Pigz      string `yaml:"pigz"`
}

// DispatchConfig controls the external job dispatcher
type DispatchConfig struct {
	Jobs int `yaml:"jobs"` // 0 runs every unit at once
}

// CompressionConfig controls read file compression
type CompressionConfig struct {
	Level    int  `yaml:"level"`    // 1 (fastest) .. 9
	Fallback bool `yaml:"fallback"` // compress in-process when pigz is missing
}

// JournalConfig controls the SQLite stage journal
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Tools: ToolsConfig{
			Esearch:   "esearch",
			Efetch:    "efetch",
			Prefetch:  "prefetch",
			Parallel:  "parallel",
			FastqDump: "fastq-dump",
			Pigz:      "pigz",
		},
		Dispatch: DispatchConfig{
			Jobs: 0,
		},
		Compression: CompressionConfig{
			Level:    1,
			Fallback: true,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    paths.GetJournalPath(),
		},
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	const op errors.Op = "config.Load"

	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.E(op, errors.KindConfig, err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.E(op, errors.KindConfig, err, "failed to parse config file")
	}

	config.Journal.Path = expandPath(config.Journal.Path)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadExplicit loads a config file the user named. Unlike Load, a missing
// file is an error.
func LoadExplicit(path string) (*Config, error) {
	const op errors.Op = "config.LoadExplicit"

	if _, err := os.Stat(path); err != nil {
		return nil, errors.E(op, errors.KindConfig, err, fmt.Sprintf("config file %s not found", path))
	}
	return Load(path)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	const op errors.Op = "config.Validate"

	if c.Dispatch.Jobs < 0 {
		return errors.E(op, errors.KindConfig, fmt.Sprintf("dispatch.jobs must be >= 0, got %d", c.Dispatch.Jobs))
	}
	if c.Compression.Level < 1 || c.Compression.Level > 9 {
		return errors.E(op, errors.KindConfig, fmt.Sprintf("compression.level must be 1-9, got %d", c.Compression.Level))
	}
	tools := map[string]string{
		"esearch":    c.Tools.Esearch,
		"efetch":     c.Tools.Efetch,
		"prefetch":   c.Tools.Prefetch,
		"parallel":   c.Tools.Parallel,
		"fastq_dump": c.Tools.FastqDump,
		"pigz":       c.Tools.Pigz,
	}
	for name, bin := range tools {
		if bin == "" {
			return errors.E(op, errors.KindConfig, fmt.Sprintf("tools.%s must not be empty", name))
		}
	}
	return nil
}

// GetConfigPath returns the config file to load. An explicit path wins,
// then SRAFETCH_CONFIG, then ./srafetch.yaml, then the XDG location.
func GetConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if path := os.Getenv("SRAFETCH_CONFIG"); path != "" {
		return path
	}

	if _, err := os.Stat("srafetch.yaml"); err == nil {
		return "srafetch.yaml"
	}

	return paths.GetConfigFile()
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}

	return path
}
