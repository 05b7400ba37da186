package cli

// This file contains configuration loading for the pipewatch CLI.
// Settings come from a TOML file with environment overrides; the
// personal access token is only ever read from the environment.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pipewatch/pipewatch/azdo"
)

// RetrySettings tunes the client's backoff policy.
type RetrySettings struct {
	MaxRetries          int     `toml:"max_retries"`
	InitialDelaySeconds float64 `toml:"initial_delay_seconds"`
	MaxDelaySeconds     float64 `toml:"max_delay_seconds"`
	BackoffMultiplier   float64 `toml:"backoff_multiplier"`
}

// Config holds all pipewatch configuration.
type Config struct {
	// Organization URL, e.g. "https://dev.azure.com/myorg"
	OrganizationURL string `toml:"organization_url"`
	// Default project and pipeline for commands that don't override them
	Project  string `toml:"project"`
	Pipeline int    `toml:"pipeline"`

	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	MaxLogLines         int `toml:"max_log_lines"`
	LogConcurrency      int `toml:"log_concurrency"`

	Retry RetrySettings `toml:"retry"`

	// Personal access token; environment only, never persisted
	PAT string `toml:"-"`
}

// LoadConfig reads configuration from the given TOML file path. If the
// file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - PIPEWATCH_ORG_URL overrides organization_url
//   - PIPEWATCH_PROJECT overrides project
//   - PIPEWATCH_PAT (or AZURE_DEVOPS_PAT) supplies the token
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns ./pipewatch.toml when present, otherwise the
// per-user config location.
func DefaultConfigPath() string {
	if _, err := os.Stat("pipewatch.toml"); err == nil {
		return "pipewatch.toml"
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pipewatch", "config.toml")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PIPEWATCH_ORG_URL"); v != "" {
		cfg.OrganizationURL = v
	}
	if v := os.Getenv("PIPEWATCH_PROJECT"); v != "" {
		cfg.Project = v
	}
	if v := os.Getenv("PIPEWATCH_PAT"); v != "" {
		cfg.PAT = v
	} else if v := os.Getenv("AZURE_DEVOPS_PAT"); v != "" {
		cfg.PAT = v
	}
}

// PollInterval returns the configured poll interval or the engine
// default when unset.
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds > 0 {
		return time.Duration(c.PollIntervalSeconds) * time.Second
	}
	return 0
}

// RetryConfig translates the file settings into the client's retry
// policy, keeping defaults for anything unset.
func (c Config) RetryConfig() azdo.RetryConfig {
	cfg := azdo.DefaultRetryConfig()
	if c.Retry.MaxRetries > 0 {
		cfg.MaxRetries = c.Retry.MaxRetries
	}
	if c.Retry.InitialDelaySeconds > 0 {
		cfg.InitialDelay = time.Duration(c.Retry.InitialDelaySeconds * float64(time.Second))
	}
	if c.Retry.MaxDelaySeconds > 0 {
		cfg.MaxDelay = time.Duration(c.Retry.MaxDelaySeconds * float64(time.Second))
	}
	if c.Retry.BackoffMultiplier > 1 {
		cfg.BackoffMultiplier = c.Retry.BackoffMultiplier
	}
	return cfg
}
