package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPathMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.BaseURL() != defaultBaseURL {
		t.Fatalf("base url = %q", cfg.BaseURL())
	}
	if cfg.GatewayTimeout() != 10*time.Second {
		t.Fatalf("timeout = %v", cfg.GatewayTimeout())
	}
	if cfg.LoadRetries() != 2 {
		t.Fatalf("retries = %d", cfg.LoadRetries())
	}
	if cfg.SearchDebounce() != 300*time.Millisecond {
		t.Fatalf("debounce = %v", cfg.SearchDebounce())
	}
	if cfg.SettleDelay() != 500*time.Millisecond {
		t.Fatalf("settle = %v", cfg.SettleDelay())
	}
	if cfg.PageSize() != 50 {
		t.Fatalf("page size = %d", cfg.PageSize())
	}
}

func TestLoadFromPathParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[gateway]
base_url = "http://10.0.0.5:9000/"
timeout_seconds = 30

[sync]
load_retries = 0
retry_unit_ms = 250
page_size = 10

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.BaseURL() != "http://10.0.0.5:9000" {
		t.Fatalf("base url = %q, trailing slash must be stripped", cfg.BaseURL())
	}
	if cfg.GatewayTimeout() != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.GatewayTimeout())
	}
	if cfg.LoadRetries() != 0 {
		t.Fatalf("retries = %d, explicit zero must disable retries", cfg.LoadRetries())
	}
	if cfg.RetryUnit() != 250*time.Millisecond {
		t.Fatalf("retry unit = %v", cfg.RetryUnit())
	}
	if cfg.PageSize() != 10 {
		t.Fatalf("page size = %d", cfg.PageSize())
	}
	if cfg.LogLevel() != "debug" {
		t.Fatalf("level = %q", cfg.LogLevel())
	}
}

func TestLoadFromPathEnvOverrides(t *testing.T) {
	t.Setenv("PARLEY_BASE_URL", "http://override:8080")
	t.Setenv("PARLEY_LOG_LEVEL", "warn")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.BaseURL() != "http://override:8080" {
		t.Fatalf("base url = %q", cfg.BaseURL())
	}
	if cfg.LogLevel() != "warn" {
		t.Fatalf("level = %q", cfg.LogLevel())
	}
}

func TestLoadFromPathRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[gateway\nbase_url ="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected parse error")
	}
}
