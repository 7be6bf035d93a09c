package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Scan     ScanConfig    `yaml:"scan"`
	Hub      HubConfig     `yaml:"hub"`
	Capture  CaptureConfig `yaml:"capture"`
	Bridge   BridgeConfig  `yaml:"bridge"`
	LogLevel string        `yaml:"log_level"`
}

// ScanConfig holds hub discovery settings.
type ScanConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Name    string        `yaml:"name"`    // advertised name filter, empty for any
	Address string        `yaml:"address"` // address filter, empty for any
}

// HubConfig holds protocol engine settings.
type HubConfig struct {
	AutoSubscribe      bool          `yaml:"auto_subscribe"`
	SubscriptionBuffer int           `yaml:"subscription_buffer"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
	WriteDelay         time.Duration `yaml:"write_delay"` // pause after each BLE write, 0 for none
}

// CaptureConfig holds protocol capture settings.
type CaptureConfig struct {
	Path string `yaml:"path"` // empty disables recording
}

// BridgeConfig holds the websocket bridge settings.
type BridgeConfig struct {
	Listen string `yaml:"listen"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hubctl")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Timeout: 10 * time.Second,
		},
		Hub: HubConfig{
			AutoSubscribe:      true,
			SubscriptionBuffer: 32,
			ConnectTimeout:     15 * time.Second,
		},
		Bridge: BridgeConfig{
			Listen: "127.0.0.1:8420",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in capture.path is expanded to the user's home
// directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Capture.Path = expandTilde(cfg.Capture.Path)

	return cfg, nil
}

const defaultHeader = `# hubctl configuration
# Durations use Go syntax: 500ms, 10s, 1m.
`

// WriteDefault writes the default config to DefaultConfigPath, creating
// the directory. It returns the path written, or "" when a config file
// already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Scan.Timeout <= 0 {
		return fmt.Errorf("scan.timeout must be > 0")
	}

	if c.Hub.SubscriptionBuffer <= 0 {
		return fmt.Errorf("hub.subscription_buffer must be > 0")
	}

	if c.Hub.ConnectTimeout <= 0 {
		return fmt.Errorf("hub.connect_timeout must be > 0")
	}

	if c.Hub.WriteDelay < 0 {
		return fmt.Errorf("hub.write_delay must be >= 0")
	}

	if c.Bridge.Listen == "" {
		return fmt.Errorf("bridge.listen must not be empty")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a log_level value to a slog level. Unknown values
// map to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
