// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the bridge configuration. Zero values are filled in by
// PostProcess so a minimal config file only needs server_url and a token.
type Config struct {
	// ServerURL is the base URL of the on-premises backend, e.g.
	// "https://jira.internal.example.com". An optional path prefix
	// (context path) is kept as-is.
	ServerURL string `yaml:"server_url"`
	// PersonalAccessToken is the bearer credential attached to every
	// request. Overridable via JIRA_BRIDGE_TOKEN.
	PersonalAccessToken string `yaml:"personal_access_token"`
	// DefaultVersion is the API version used when probing fails.
	DefaultVersion string `yaml:"default_version"`

	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryBaseDelay  time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay   time.Duration `yaml:"retry_max_delay"`
	VersionCacheTTL time.Duration `yaml:"version_cache_ttl"`
	UserCacheTTL    time.Duration `yaml:"user_cache_ttl"`
	ReadCacheTTL    time.Duration `yaml:"read_cache_ttl"`

	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitCooldown         time.Duration `yaml:"circuit_cooldown"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// LoadConfig reads a YAML config file, applies environment overrides, and
// fills defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets deployment environments inject the URL and credential
// without writing them into the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("JIRA_BRIDGE_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("JIRA_BRIDGE_TOKEN"); v != "" {
		c.PersonalAccessToken = v
	}
	if v := os.Getenv("JIRA_BRIDGE_DEFAULT_VERSION"); v != "" {
		c.DefaultVersion = v
	}
}

// PostProcess validates required fields and fills defaults.
func (c *Config) PostProcess() error {
	if c.ServerURL == "" {
		return fmt.Errorf("%w: server_url is required", ErrNotConfigured)
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: server_url %q is not an absolute URL", ErrNotConfigured, c.ServerURL)
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")

	if c.DefaultVersion == "" {
		c.DefaultVersion = "2"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 500 * time.Millisecond
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 10 * time.Second
	}
	if c.VersionCacheTTL <= 0 {
		c.VersionCacheTTL = time.Hour
	}
	if c.UserCacheTTL <= 0 {
		c.UserCacheTTL = 15 * time.Minute
	}
	if c.ReadCacheTTL <= 0 {
		c.ReadCacheTTL = 30 * time.Second
	}
	if c.CircuitFailureThreshold <= 0 {
		c.CircuitFailureThreshold = 5
	}
	if c.CircuitCooldown <= 0 {
		c.CircuitCooldown = 30 * time.Second
	}
	return nil
}
