// Package config loads the reasoner's YAML configuration, following the
// teacher's internal/config.Load: build defaults, overlay the file if
// present, apply environment overrides, validate.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoggingConfig controls internal/logging's construction and the
// optional audit-trail sink.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	AuditPath string `yaml:"audit_path"`
}

// Config holds the reasoner's full runtime configuration (spec.md §6.5).
type Config struct {
	Port           int           `yaml:"port"`
	MaxKBSize      int           `yaml:"max_kb_size"`
	RulesFile      string        `yaml:"rules_file"`
	LLMURL         string        `yaml:"llm_url"`
	LLMModel       string        `yaml:"llm_model"`
	BroadcastInput bool          `yaml:"broadcast_input"`
	Logging        LoggingConfig `yaml:"logging"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Port:           4223,
		MaxKBSize:      100000,
		RulesFile:      "",
		LLMURL:         "",
		LLMModel:       "",
		BroadcastInput: false,
		Logging: LoggingConfig{
			Level:     "info",
			AuditPath: "",
		},
	}
}

// Load reads path as YAML over Default(), applies environment overrides,
// and validates the result. A missing file is not an error: it yields
// the default configuration, matching the teacher's "config file not
// found, using defaults" behavior.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("REASOND_LLM_URL"); url != "" {
		c.LLMURL = url
	}
	if model := os.Getenv("REASOND_LLM_MODEL"); model != "" {
		c.LLMModel = model
	}
	if audit := os.Getenv("REASOND_AUDIT_PATH"); audit != "" {
		c.Logging.AuditPath = audit
	}
}

// Validate rejects configurations the reasoner cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxKBSize <= 0 {
		return fmt.Errorf("max_kb_size must be positive, got %d", c.MaxKBSize)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	return nil
}
