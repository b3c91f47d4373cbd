// Package config holds dlint's CLI configuration: rule toggles that
// resolve the analysis's open questions, and output preferences. It is
// read from a global file, then a project-level one, then overridden by
// environment variables, in that increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how `dlint cdg` and `dlint divergence` render
// their results.
type OutputFormat string

const (
	OutputText    OutputFormat = "text"
	OutputJSON    OutputFormat = "json"
	OutputMsgpack OutputFormat = "msgpack"
)

// Config holds all configuration for dlint.
type Config struct {
	// FriendlyNames pretty-prints instructions using friendly names for
	// well-known types and constants (e.g. "%float" instead of "%12")
	// inside diagnostic messages, matching the underlying tool's own
	// default text disassembly mode.
	FriendlyNames bool `yaml:"friendly_names" env:"DLINT_FRIENDLY_NAMES"`

	// ImageLoadsDivergent treats a load through the Image storage class
	// as non-uniform. See divergence.Options for the reasoning; off by
	// default.
	ImageLoadsDivergent bool `yaml:"image_loads_divergent" env:"DLINT_IMAGE_LOADS_DIVERGENT"`

	// OutputFormat controls how findings from `dlint cdg` and `dlint
	// divergence` are rendered. `dlint lint` always emits text
	// diagnostics on stderr regardless of this setting, matching the
	// underlying tool's message-consumer contract.
	OutputFormat OutputFormat `yaml:"output_format" env:"DLINT_OUTPUT_FORMAT"`

	// Verbose enables internal progress tracing (decoded module size,
	// verdict-cache reuse, skipped unchanged modules) through
	// internal/log; no per-function timings are logged. It has no
	// effect on diagnostic output.
	Verbose bool `yaml:"verbose" env:"DLINT_VERBOSE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		FriendlyNames:       true,
		ImageLoadsDivergent: false,
		OutputFormat:        OutputText,
		Verbose:             false,
	}
}

// globalConfigFilePath returns the global config file path
// (~/.dlint/config.yaml).
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dlint/config.yaml"
	}
	return filepath.Join(home, ".dlint", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path
// (./.dlint.yaml).
func projectConfigFilePath() string {
	return ".dlint.yaml"
}

// Load reads configuration with the following priority (highest to
// lowest):
//  1. Environment variables
//  2. Project-level config (./.dlint.yaml)
//  3. Global config (~/.dlint/config.yaml)
//  4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	globalConfigPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalConfigPath, err)
		}
	}

	projectConfigPath := projectConfigFilePath()
	if data, err := os.ReadFile(projectConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectConfigPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path,
// creating parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DLINT_FRIENDLY_NAMES"); v != "" {
		cfg.FriendlyNames = parseBool(v)
	}
	if v := os.Getenv("DLINT_IMAGE_LOADS_DIVERGENT"); v != "" {
		cfg.ImageLoadsDivergent = parseBool(v)
	}
	if v := os.Getenv("DLINT_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}
	if v := os.Getenv("DLINT_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
}

// Validate checks that the configuration has valid required fields.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case OutputText, OutputJSON, OutputMsgpack:
	default:
		return fmt.Errorf("invalid output_format: %s (must be 'text', 'json' or 'msgpack')", c.OutputFormat)
	}
	return nil
}

func parseBool(s string) bool {
	return s == "true" || s == "1" || s == "yes"
}
