package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.URLPattern != DefaultURLPattern {
		t.Errorf("URLPattern = %q; want %q", cfg.URLPattern, DefaultURLPattern)
	}
	if cfg.SaveStrategy != "downloads" || cfg.SettingsBackend != "file" || cfg.BridgeMode != BridgeModeDirect {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.BridgeURL != "ws://"+DefaultBindAddr+"/api/v1/bridge" {
		t.Errorf("BridgeURL = %q", cfg.BridgeURL)
	}
	if filepath.Base(cfg.SettingsPath) != "settings.json" {
		t.Errorf("SettingsPath = %q", cfg.SettingsPath)
	}
	if got := cfg.GetCDPURL(); got != "http://127.0.0.1:9220" {
		t.Errorf("GetCDPURL() = %q", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SAVE_STRATEGY", "Directory")
	t.Setenv("SAVER_SETTINGS_BACKEND", "sqlite")
	t.Setenv("BRIDGE_MODE", "ws")
	t.Setenv("SAVER_BIND_ADDR", "127.0.0.1:9000")
	t.Setenv("BRIDGE_ALLOWED_ORIGINS", "http://a, ,http://b")
	t.Setenv("SAVER_MAX_BODY_BYTES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SaveStrategy != "directory" || cfg.SettingsBackend != "sqlite" || cfg.BridgeMode != BridgeModeWS {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.BridgeURL != "ws://127.0.0.1:9000/api/v1/bridge" {
		t.Errorf("BridgeURL = %q", cfg.BridgeURL)
	}
	if len(cfg.BridgeOrigins) != 2 || cfg.BridgeOrigins[1] != "http://b" {
		t.Errorf("BridgeOrigins = %v", cfg.BridgeOrigins)
	}
	if cfg.MaxBodyBytes != 10*1024*1024 {
		t.Errorf("MaxBodyBytes = %d; want default", cfg.MaxBodyBytes)
	}
	if filepath.Base(cfg.SettingsPath) != "settings.db" {
		t.Errorf("SettingsPath = %q", cfg.SettingsPath)
	}
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SAVE_STRATEGY", "cloud")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SAVER_URL_PATTERN=example.com/plans\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SAVER_URL_PATTERN") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.URLPattern != "example.com/plans" {
		t.Errorf("URLPattern = %q", cfg.URLPattern)
	}
}

func TestWatchFileOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "watch.yaml")
	body := "url_pattern: staging.example.com/api/v1/trade-plan\ntab_url_filter: staging.example.com\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write watch file: %v", err)
	}
	t.Setenv("SAVER_WATCH_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.URLPattern != "staging.example.com/api/v1/trade-plan" || cfg.TabURLFilter != "staging.example.com" {
		t.Errorf("watch overrides not applied: %+v", cfg)
	}
	if cfg.MaxBodyBytes != 10*1024*1024 {
		t.Errorf("MaxBodyBytes = %d; want untouched", cfg.MaxBodyBytes)
	}
}

func TestLoadWatchErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadWatch(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("max_body_bytes: -1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWatch(bad); err == nil {
		t.Error("expected error for negative max_body_bytes")
	}
}
