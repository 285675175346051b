package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Contract defaults.
const (
	DefaultBaseURL        = "http://localhost:5000"
	DefaultPollIntervalMS = 8000
	DefaultTransitionMS   = 1200
	DefaultTimeoutSec     = 10
)

// Config holds all fintrack configuration.
type Config struct {
	API           APIConfig           `toml:"api"`
	Notifications NotificationsConfig `toml:"notifications"`
	Transitions   TransitionsConfig   `toml:"transitions"`
	Appearance    AppearanceConfig    `toml:"appearance"`
	Log           LogConfig           `toml:"log"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL    string `toml:"base_url"`
	TimeoutSec int    `toml:"timeout_sec"`
}

// NotificationsConfig controls the notification watcher.
type NotificationsConfig struct {
	Enabled        bool `toml:"enabled"`
	PollIntervalMS int  `toml:"poll_interval_ms"`
}

// TransitionsConfig controls animated screen transitions.
type TransitionsConfig struct {
	DurationMS int `toml:"duration_ms"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// LogConfig controls diagnostics logging.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:    DefaultBaseURL,
			TimeoutSec: DefaultTimeoutSec,
		},
		Notifications: NotificationsConfig{
			Enabled:        true,
			PollIntervalMS: DefaultPollIntervalMS,
		},
		Transitions: TransitionsConfig{
			DurationMS: DefaultTransitionMS,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fintrack")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "fintrack")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// StateDir returns the directory for persisted client state and logs.
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "fintrack")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "fintrack")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config file at path, returning defaults if it doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // config path is chosen by the local user
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes the config to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // see LoadFrom
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// GetBaseURL returns the backend URL from env var or config, in that order.
func GetBaseURL(cfg Config) string {
	if u := strings.TrimSpace(os.Getenv("FINTRACK_API_URL")); u != "" {
		return u
	}
	if cfg.API.BaseURL != "" {
		return cfg.API.BaseURL
	}
	return DefaultBaseURL
}

// GetEnvToken returns a bearer token supplied through FINTRACK_TOKEN, if any.
// It takes precedence over the token in persisted state.
func GetEnvToken() string {
	return strings.TrimSpace(os.Getenv("FINTRACK_TOKEN"))
}

// PollInterval returns the notification poll interval, falling back to the
// default for missing or non-positive values.
func (c Config) PollInterval() time.Duration {
	if c.Notifications.PollIntervalMS <= 0 {
		return DefaultPollIntervalMS * time.Millisecond
	}
	return time.Duration(c.Notifications.PollIntervalMS) * time.Millisecond
}

// TransitionDuration returns the animated transition length.
func (c Config) TransitionDuration() time.Duration {
	if c.Transitions.DurationMS <= 0 {
		return DefaultTransitionMS * time.Millisecond
	}
	return time.Duration(c.Transitions.DurationMS) * time.Millisecond
}

// Timeout returns the per-request HTTP timeout.
func (c Config) Timeout() time.Duration {
	if c.API.TimeoutSec <= 0 {
		return DefaultTimeoutSec * time.Second
	}
	return time.Duration(c.API.TimeoutSec) * time.Second
}
