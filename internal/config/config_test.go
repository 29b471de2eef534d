package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Platforms) == 0 {
		t.Error("expected platforms to be populated")
	}
	if cfg.EMV.Rates["instagram"]["save"] != 2.0 {
		t.Errorf("expected instagram save rate 2.0, got %v", cfg.EMV.Rates["instagram"]["save"])
	}
	if len(cfg.Shows) == 0 {
		t.Error("expected shows to be populated")
	}
	if _, ok := cfg.Insights.Templates["biggest_growth"]; !ok {
		t.Error("expected biggest_growth template")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
currency: USD
alerts:
  viral:
    multiplier: 5
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Alerts.Viral.Multiplier != 5 {
		t.Errorf("expected viral multiplier 5, got %v", cfg.Alerts.Viral.Multiplier)
	}
	// Defaults should still be set for unspecified fields
	if !cfg.Alerts.Viral.Enabled {
		t.Error("expected viral alert to stay enabled by default")
	}
	if cfg.Anomaly.WindowDays != 7 {
		t.Errorf("expected default window 7, got %d", cfg.Anomaly.WindowDays)
	}
	if cfg.EMV.Currency != "USD" {
		t.Errorf("expected EMV currency to inherit USD, got %q", cfg.EMV.Currency)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := parse([]byte("platforms: [")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Platforms) == 0 {
		t.Error("expected platforms to be populated from file")
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	t.Setenv("SOCIALPULSE_DATA_DIR", "/tmp/pulse")
	t.Setenv("SOCIALPULSE_PORT", "9100")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.GetDataDir() != "/tmp/pulse" {
		t.Errorf("expected data dir override, got %q", cfg.GetDataDir())
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port override 9100, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Logging.Level)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SOCIALPULSE_TEST_VALUE=loaded\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("SOCIALPULSE_TEST_VALUE", "")

	loaded := LoadEnvFiles()
	if len(loaded) != 1 || loaded[0] != ".env" {
		t.Fatalf("expected .env to be loaded, got %v", loaded)
	}
	if os.Getenv("SOCIALPULSE_TEST_VALUE") != "loaded" {
		t.Errorf("expected value from .env, got %q", os.Getenv("SOCIALPULSE_TEST_VALUE"))
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
