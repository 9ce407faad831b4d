// Package config provides configuration for the bootstrap core: values
// come from an optional YAML file with environment-variable overrides,
// validated before use. Development hosts get fsnotify-based hot reload
// through Watcher.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment identifies the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config holds all tunables of the bootstrap core.
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development staging production"`
	LogLevel    string      `yaml:"log_level" validate:"required,oneof=debug info warn error"`

	// PhaseTimeout bounds each readiness wait inside a phase, not the
	// phase itself; phases either complete or fail.
	PhaseTimeout time.Duration `yaml:"phase_timeout" validate:"required"`

	Diagnostics Diagnostics `yaml:"diagnostics"`
	Tracing     Tracing     `yaml:"tracing"`
}

// Diagnostics configures the host's operational HTTP surface.
type Diagnostics struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"required_if=Enabled true"`
}

// Tracing configures OpenTelemetry export.
type Tracing struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Environment:  Development,
		LogLevel:     "info",
		PhaseTimeout: 10 * time.Second,
		Diagnostics: Diagnostics{
			Enabled: true,
			Addr:    ":9090",
		},
		Tracing: Tracing{
			Enabled:    false,
			Endpoint:   "localhost:4317",
			SampleRate: 1.0,
		},
	}
}

// Load reads configuration: defaults, then the YAML file named by
// APPSHELL_CONFIG (if set), then environment overrides, then validation.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("APPSHELL_CONFIG"); path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return cfg, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("APPSHELL_ENVIRONMENT"); v != "" {
		cfg.Environment = Environment(v)
	}
	if v := os.Getenv("APPSHELL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("APPSHELL_PHASE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PhaseTimeout = d
		}
	}
	if v := os.Getenv("APPSHELL_DIAGNOSTICS_ADDR"); v != "" {
		cfg.Diagnostics.Addr = v
		cfg.Diagnostics.Enabled = true
	}
	if v := os.Getenv("APPSHELL_TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = v == "true"
	}
	if v := os.Getenv("APPSHELL_TRACING_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("APPSHELL_TRACING_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Tracing.SampleRate = f
		}
	}
}

// Validate checks the configuration against its struct constraints.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment reports whether this is a development configuration.
func (c Config) IsDevelopment() bool {
	return c.Environment == Development
}
