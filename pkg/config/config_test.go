package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.APIURL != "http://localhost:5000" {
		t.Errorf("unexpected default api url %q", cfg.APIURL)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.Log.Level)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.HTTP.Timeout)
	}
	if cfg.UI.SidebarWidth != 36 {
		t.Errorf("expected sidebar width 36, got %d", cfg.UI.SidebarWidth)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default config, got level %q", cfg.Log.Level)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
api_url: https://lms.example.com/
player: mpv --fs
log:
  level: debug
  file: ~/logs/cw.log
ui:
  sidebar_width: 40
  hide_sidebar: true
http:
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.APIURL != "https://lms.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.APIURL)
	}
	if cfg.Player != "mpv --fs" {
		t.Errorf("unexpected player %q", cfg.Player)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("unexpected level %q", cfg.Log.Level)
	}
	if cfg.UI.SidebarWidth != 40 || !cfg.UI.HideSidebar {
		t.Errorf("unexpected ui config %+v", cfg.UI)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.HTTP.Timeout)
	}

	home, _ := os.UserHomeDir()
	if got := cfg.LogPath(); got != filepath.Join(home, "logs", "cw.log") {
		t.Errorf("expected ~ expanded in log path, got %q", got)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api_url: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFrom_ZeroValuesFallBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("http:\n  timeout: 0s\nui:\n  sidebar_width: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Timeout != 30*time.Second || cfg.UI.SidebarWidth != 36 {
		t.Errorf("expected defaults restored, got %+v %+v", cfg.HTTP, cfg.UI)
	}
}

func TestApplyEnvPrecedence(t *testing.T) {
	t.Setenv(EnvLegacyAPIURL, "http://legacy:3000")
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvPlayer, "vlc")
	t.Setenv(EnvLogLevel, "warn")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.APIURL != "http://legacy:3000" {
		t.Errorf("expected legacy url, got %q", cfg.APIURL)
	}
	if cfg.Player != "vlc" || cfg.Log.Level != "warn" {
		t.Errorf("unexpected env overrides %+v", cfg)
	}

	t.Setenv(EnvAPIURL, "https://api.example.com/")
	cfg.ApplyEnv()
	if cfg.APIURL != "https://api.example.com" {
		t.Errorf("expected CW_API_URL to win, got %q", cfg.APIURL)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	cfg.APIURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty api url")
	}
	cfg.APIURL = "ftp://example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-http scheme")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.APIURL = "https://saved.example.com"
	cfg.UI.SidebarWidth = 50
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.APIURL != cfg.APIURL || loaded.UI.SidebarWidth != 50 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestXDGDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")

	if got := ConfigPath(); got != "/tmp/xdg-config/coursework/config.yaml" {
		t.Errorf("unexpected config path %q", got)
	}
	if got := DefaultConfig().LogPath(); got != "/tmp/xdg-state/coursework/cw.log" {
		t.Errorf("unexpected log path %q", got)
	}
}
