// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigMinimal(t *testing.T) {
	t.Parallel()
	path := writeConfigFile(t, `
server_url: https://jira.internal.example.com
personal_access_token: secret
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServerURL != "https://jira.internal.example.com" {
		t.Errorf("ServerURL: got %q", cfg.ServerURL)
	}
	if cfg.DefaultVersion != "2" {
		t.Errorf("DefaultVersion default: got %q, want 2", cfg.DefaultVersion)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout default: got %s", cfg.RequestTimeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries default: got %d", cfg.MaxRetries)
	}
	if cfg.CircuitFailureThreshold != 5 {
		t.Errorf("CircuitFailureThreshold default: got %d", cfg.CircuitFailureThreshold)
	}
}

func TestLoadConfigExplicitValues(t *testing.T) {
	t.Parallel()
	path := writeConfigFile(t, `
server_url: https://jira.example.com/
personal_access_token: secret
default_version: latest
request_timeout: 5s
max_retries: 7
retry_base_delay: 250ms
circuit_failure_threshold: 2
circuit_cooldown: 90s
user_cache_ttl: 1m
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServerURL != "https://jira.example.com" {
		t.Errorf("trailing slash should be trimmed, got %q", cfg.ServerURL)
	}
	if cfg.DefaultVersion != "latest" {
		t.Errorf("DefaultVersion: got %q", cfg.DefaultVersion)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout: got %s", cfg.RequestTimeout)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("MaxRetries: got %d", cfg.MaxRetries)
	}
	if cfg.RetryBaseDelay != 250*time.Millisecond {
		t.Errorf("RetryBaseDelay: got %s", cfg.RetryBaseDelay)
	}
	if cfg.CircuitCooldown != 90*time.Second {
		t.Errorf("CircuitCooldown: got %s", cfg.CircuitCooldown)
	}
	if cfg.UserCacheTTL != time.Minute {
		t.Errorf("UserCacheTTL: got %s", cfg.UserCacheTTL)
	}
}

func TestLoadConfigMissingServerURL(t *testing.T) {
	t.Parallel()
	path := writeConfigFile(t, `personal_access_token: secret`)
	_, err := LoadConfig(path)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err: got %v, want ErrNotConfigured", err)
	}
}

func TestLoadConfigRelativeURLRejected(t *testing.T) {
	t.Parallel()
	path := writeConfigFile(t, `server_url: jira.example.com`)
	_, err := LoadConfig(path)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err: got %v, want ErrNotConfigured for relative URL", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	t.Parallel()
	path := writeConfigFile(t, "server_url: [unterminated")
	if _, err := LoadConfig(path); err == nil {
		t.Error("invalid YAML should error")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server_url: https://from-file.example.com
personal_access_token: file-token
`)
	t.Setenv("JIRA_BRIDGE_URL", "https://from-env.example.com")
	t.Setenv("JIRA_BRIDGE_TOKEN", "env-token")
	t.Setenv("JIRA_BRIDGE_DEFAULT_VERSION", "latest")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServerURL != "https://from-env.example.com" {
		t.Errorf("ServerURL: got %q, env should win", cfg.ServerURL)
	}
	if cfg.PersonalAccessToken != "env-token" {
		t.Errorf("PersonalAccessToken: got %q, env should win", cfg.PersonalAccessToken)
	}
	if cfg.DefaultVersion != "latest" {
		t.Errorf("DefaultVersion: got %q, env should win", cfg.DefaultVersion)
	}
}

func TestConfigKeepsContextPath(t *testing.T) {
	t.Parallel()
	cfg := Config{ServerURL: "https://example.com/jira/", PersonalAccessToken: "x"}
	if err := cfg.PostProcess(); err != nil {
		t.Fatalf("PostProcess: %v", err)
	}
	if cfg.ServerURL != "https://example.com/jira" {
		t.Errorf("ServerURL: got %q, context path should be kept", cfg.ServerURL)
	}
}
