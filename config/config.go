// Package config loads moded's server settings from config.yaml.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when config.yaml is absent or omits a field.
const (
	DefaultSessionTimeout = 30 * time.Minute
	DefaultSweepInterval  = time.Minute
)

// Config is the top-level server configuration.
type Config struct {
	SessionTimeout Duration `yaml:"session_timeout,omitempty"`
	SweepInterval  Duration `yaml:"sweep_interval,omitempty"`
	Debug          bool     `yaml:"debug,omitempty"`

	// ModeFiles lists additional mode definition files loaded at global
	// scope, after the standard global modes.yaml.
	ModeFiles []string `yaml:"mode_files,omitempty"`
}

// Duration is a wrapper around time.Duration that implements YAML
// unmarshaling from human-readable strings like "30m", "2h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		SessionTimeout: Duration{DefaultSessionTimeout},
		SweepInterval:  Duration{DefaultSweepInterval},
	}
}

// Load reads and parses the config file at the given path.
// A missing file is not an error — defaults are returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.SessionTimeout.Duration <= 0 {
		return fmt.Errorf("session_timeout must be positive, got %s", c.SessionTimeout)
	}
	if c.SweepInterval.Duration <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %s", c.SweepInterval)
	}
	return nil
}
