package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "https://api.example.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("NETMON_PROBE_INTERVAL", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Remote.BaseURL != "https://api.example.com" {
		t.Errorf("Remote.BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("Remote.Timeout = %v, want default 10s", cfg.Remote.Timeout)
	}
	if cfg.Netmon.ProbeInterval != 10*time.Second {
		t.Errorf("Netmon.ProbeInterval = %v, want 10s", cfg.Netmon.ProbeInterval)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	if _, err := Load(); err == nil {
		t.Error("Expected error when REMOTE_BASE_URL is unset")
	}
}

func TestValidateRejectsBadFormat(t *testing.T) {
	cfg := &Config{
		Remote: Remote{BaseURL: "https://api.example.com", Timeout: time.Second},
		Netmon: Netmon{ProbeInterval: time.Second},
		Log:    Log{Level: "info", Format: "xml"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for log.format xml")
	}
}
