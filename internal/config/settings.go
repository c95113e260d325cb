package config

import (
	"errors"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultBaseURL          = "http://127.0.0.1:8000"
	defaultTimeoutSeconds   = 10
	defaultLoadRetries      = 2
	defaultRetryUnitMS      = 1000
	defaultSearchDebounceMS = 300
	defaultSettleDelayMS    = 500
	defaultPageSize         = 50
)

type Config struct {
	Gateway GatewayConfig `toml:"gateway"`
	Sync    SyncConfig    `toml:"sync"`
	Logging LoggingConfig `toml:"logging"`
}

type GatewayConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type SyncConfig struct {
	LoadRetries      *int `toml:"load_retries"`
	RetryUnitMS      int  `toml:"retry_unit_ms"`
	SearchDebounceMS int  `toml:"search_debounce_ms"`
	SettleDelayMS    int  `toml:"settle_delay_ms"`
	PageSize         int  `toml:"page_size"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

func Default() Config {
	return Config{
		Gateway: GatewayConfig{
			BaseURL:        defaultBaseURL,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at the default path, overlaying defaults and
// then environment overrides. A missing file yields the defaults.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFromPath(path)
}

func LoadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PARLEY_BASE_URL")); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PARLEY_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
}

func (c Config) BaseURL() string {
	url := strings.TrimSpace(c.Gateway.BaseURL)
	if url == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(url, "/")
}

func (c Config) GatewayTimeout() time.Duration {
	seconds := c.Gateway.TimeoutSeconds
	if seconds <= 0 {
		seconds = defaultTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

// LoadRetries returns the retry budget for the bulk session load. An explicit
// zero disables retries; absent means the default of two.
func (c Config) LoadRetries() int {
	if c.Sync.LoadRetries == nil || *c.Sync.LoadRetries < 0 {
		return defaultLoadRetries
	}
	return *c.Sync.LoadRetries
}

func (c Config) RetryUnit() time.Duration {
	return positiveMillis(c.Sync.RetryUnitMS, defaultRetryUnitMS)
}

func (c Config) SearchDebounce() time.Duration {
	return positiveMillis(c.Sync.SearchDebounceMS, defaultSearchDebounceMS)
}

func (c Config) SettleDelay() time.Duration {
	return positiveMillis(c.Sync.SettleDelayMS, defaultSettleDelayMS)
}

func (c Config) PageSize() int {
	if c.Sync.PageSize <= 0 {
		return defaultPageSize
	}
	return c.Sync.PageSize
}

func positiveMillis(ms, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}
