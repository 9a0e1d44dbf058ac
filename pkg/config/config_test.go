package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load should not error for missing file: %v", err)
	}
	if !cfg.Enable {
		t.Error("default config should be enabled")
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.MetricsPort != DefaultMetricsPort {
		t.Errorf("expected default metrics port %d, got %d", DefaultMetricsPort, cfg.MetricsPort)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plantwise.yaml")
	content := []byte("log_level: debug\nmetrics_port: 9999\nfeedback_lookback_days: 30\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level debug, got %q", cfg.LogLevel)
	}
	if cfg.MetricsPort != 9999 {
		t.Errorf("expected metrics_port 9999, got %d", cfg.MetricsPort)
	}
	if cfg.FeedbackLookbackDays != 30 {
		t.Errorf("expected feedback_lookback_days 30, got %d", cfg.FeedbackLookbackDays)
	}
	// Untouched fields keep defaults
	if cfg.StatusPort != DefaultStatusPort {
		t.Errorf("expected status_port default %d, got %d", DefaultStatusPort, cfg.StatusPort)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad log level", "log_level: loud\n"},
		{"bad metrics port", "metrics_port: -1\n"},
		{"bad lookback", "feedback_lookback_days: 0\n"},
		{"mqtt without broker", "mqtt_enabled: true\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
