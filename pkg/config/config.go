// Package config handles loading and saving cw configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/coursework/config.yaml
//   - State:   ~/.local/state/coursework/ (session, log file)
//
// Values are layered: defaults, then the YAML file, then environment
// variables (optionally from a .env file), then command-line flags applied
// by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appDirName = "coursework"

// Environment variables understood by ApplyEnv.
const (
	EnvAPIURL       = "CW_API_URL"
	EnvLegacyAPIURL = "NEXT_PUBLIC_API_URL" // shared with the web front-end's .env
	EnvPlayer       = "CW_PLAYER"
	EnvLogLevel     = "CW_LOG_LEVEL"
	EnvLogFile      = "CW_LOG_FILE"
)

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
	File  string `yaml:"file,omitempty"`  // defaults to <state dir>/cw.log
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	SidebarWidth int  `yaml:"sidebar_width,omitempty"` // Learning area sidebar columns
	HideSidebar  bool `yaml:"hide_sidebar,omitempty"`  // Start the learning area without the sidebar
}

// HTTPConfig tunes the API client.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Config is the top-level configuration for cw.
type Config struct {
	APIURL string     `yaml:"api_url,omitempty"`
	Player string     `yaml:"player,omitempty"` // Command used to open video URLs
	Log    LogConfig  `yaml:"log,omitempty"`
	UI     UIConfig   `yaml:"ui,omitempty"`
	HTTP   HTTPConfig `yaml:"http,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		APIURL: "http://localhost:5000",
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			SidebarWidth: 36,
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// ConfigDir returns the XDG config directory for cw.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appDirName)
}

// StateDir returns the XDG state directory for cw.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appDirName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// LogPath returns the configured log file, falling back to the state dir.
func (c Config) LogPath() string {
	if c.Log.File != "" {
		return expandHome(c.Log.File)
	}
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "cw.log")
}

// Load reads the config file from the XDG config directory and applies the
// environment (including an optional .env in the working directory).
// Returns DefaultConfig plus env if the file doesn't exist.
func Load() (Config, error) {
	_ = godotenv.Load()

	path := ConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		return cfg, nil
	}
	cfg, err := LoadFrom(path)
	cfg.ApplyEnv()
	return cfg, err
}

// LoadFrom reads config from a specific path without consulting the
// environment. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = DefaultConfig().HTTP.Timeout
	}
	if cfg.UI.SidebarWidth <= 0 {
		cfg.UI.SidebarWidth = DefaultConfig().UI.SidebarWidth
	}

	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. CW_API_URL wins
// over NEXT_PUBLIC_API_URL.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvLegacyAPIURL)); v != "" {
		c.APIURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.APIURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv(EnvPlayer)); v != "" {
		c.Player = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		c.Log.File = v
	}
}

// Validate checks fields that cannot be defaulted.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required (set %s or api_url in %s)", EnvAPIURL, ConfigPath())
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api_url %q must start with http:// or https://", c.APIURL)
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
