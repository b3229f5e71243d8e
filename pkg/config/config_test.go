package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	fterrors "github.com/tradelane/fleettrack/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8090 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Server.BaseURL == "" {
		t.Error("default base URL must be set")
	}
	if cfg.Report.WatermarkOpacity != 0.10 {
		t.Errorf("default watermark opacity = %v", cfg.Report.WatermarkOpacity)
	}
	if cfg.Token.TTL != 30*24*time.Hour {
		t.Errorf("default token TTL = %v", cfg.Token.TTL)
	}
	if cfg.Assets.FetchTimeout != 5*time.Second {
		t.Errorf("default asset timeout = %v", cfg.Assets.FetchTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
	if !fterrors.IsCode(err, "CONFIG_NOT_FOUND") {
		t.Errorf("expected CONFIG_NOT_FOUND, got %v", err)
	}
	if !fterrors.IsCategory(err, fterrors.CategoryConfig) {
		t.Errorf("expected config category, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  host: 127.0.0.1
  port: 9000
  base_url: https://fleet.example.com
company:
  name: Tradelane Logistics
  address: 12 Marina Road, Lagos
  email: ops@tradelane.example
assets:
  logo_url: https://cdn.example.com/logo.png
  fetch_timeout: 2s
token:
  ttl: 720h
report:
  compress: false
  watermark_opacity: 0.15
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
	if cfg.Company.Name != "Tradelane Logistics" {
		t.Errorf("company name = %q", cfg.Company.Name)
	}
	if cfg.Assets.FetchTimeout != 2*time.Second {
		t.Errorf("fetch timeout = %v", cfg.Assets.FetchTimeout)
	}
	if cfg.Report.Compress {
		t.Error("compress should be overridden to false")
	}
	if cfg.Report.WatermarkOpacity != 0.15 {
		t.Errorf("watermark opacity = %v", cfg.Report.WatermarkOpacity)
	}
	// Unset fields keep their defaults.
	if cfg.Log.Level != "info" {
		t.Errorf("log level should default, got %q", cfg.Log.Level)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("server: ["), 0644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !fterrors.IsCode(err, "CONFIG_PARSE_ERROR") {
		t.Errorf("expected CONFIG_PARSE_ERROR, got %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("report:\n  watermark_opacity: 3.0\n"), 0644)

	if _, err := Load(path); !fterrors.IsCode(err, "CONFIG_INVALID") {
		t.Errorf("out-of-range opacity should fail validation, got %v", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault(\"\") failed: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Error("empty path should yield defaults")
	}

	cfg, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault on missing file failed: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Error("missing file should yield defaults")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("FLEETTRACK_PORT", "9999")
	t.Setenv("FLEETTRACK_TOKEN_SECRET", "env-secret")
	t.Setenv("FLEETTRACK_BASE_URL", "https://reports.example.com")

	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("env port override ignored, got %d", cfg.Server.Port)
	}
	if cfg.Token.Secret != "env-secret" {
		t.Error("token secret must come from the environment")
	}
	if cfg.Server.BaseURL != "https://reports.example.com" {
		t.Errorf("base URL override ignored, got %q", cfg.Server.BaseURL)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.Company.Name = "Saved Fleet Co"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Save failed: %v", err)
	}
	if loaded.Company.Name != "Saved Fleet Co" {
		t.Errorf("round trip lost company name: %q", loaded.Company.Name)
	}
}

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := InitConfig(path); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	// A second call leaves the existing file alone.
	marker := []byte("company:\n  name: Keep Me\nserver:\n  base_url: http://x\n")
	os.WriteFile(path, marker, 0644)
	if err := InitConfig(path); err != nil {
		t.Fatalf("InitConfig on existing file failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != string(marker) {
		t.Error("InitConfig overwrote an existing file")
	}
}
