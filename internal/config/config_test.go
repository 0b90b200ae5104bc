package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHOPCHAT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	if cfg.StateBackend != "file" {
		t.Errorf("StateBackend = %q, want file", cfg.StateBackend)
	}
	if cfg.APIBaseURL != "http://localhost:8080" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.Location != "bangalore" {
		t.Errorf("Location = %q", cfg.Location)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "api_url: https://file.example.com\nlocation: mumbai\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SHOPCHAT_CONFIG", path)
	t.Setenv("SHOPCHAT_API_URL", "https://env.example.com")

	cfg := Load()
	if cfg.APIBaseURL != "https://env.example.com" {
		t.Errorf("APIBaseURL = %q, want env value", cfg.APIBaseURL)
	}
	if cfg.Location != "mumbai" {
		t.Errorf("Location = %q, want file value", cfg.Location)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
