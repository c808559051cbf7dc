// Package config - Tests for configuration management
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig should not return nil")
	}

	if cfg.Browser.Timeout != 30 {
		t.Errorf("Expected default timeout of 30, got %d", cfg.Browser.Timeout)
	}

	if cfg.Browser.ViewportWidth != 1366 || cfg.Browser.ViewportHeight != 768 {
		t.Errorf("Expected default viewport 1366x768, got %dx%d", cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight)
	}

	if cfg.Recording.DurationSeconds != 60 {
		t.Errorf("Expected default duration of 60, got %d", cfg.Recording.DurationSeconds)
	}

	if cfg.Recording.OutputDir != "./recordings" {
		t.Errorf("Expected default output dir ./recordings, got %s", cfg.Recording.OutputDir)
	}

	if !cfg.Meeting.MuteMicrophone || !cfg.Meeting.MuteCamera {
		t.Error("Microphone and camera should be muted by default")
	}

	// Defaults must be valid on their own
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Recording.DurationSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with zero duration")
	}
	cfg.Recording.DurationSeconds = 60 // Reset

	cfg.Recording.OutputDir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail without an output dir")
	}
	cfg.Recording.OutputDir = "./recordings" // Reset

	cfg.Logging.Level = "invalid"
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with invalid log level")
	}
	cfg.Logging.Level = "info" // Reset

	cfg.Stealth.TypingDelayMin = 500
	cfg.Stealth.TypingDelayMax = 100
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with inverted typing delays")
	}
	cfg.Stealth.TypingDelayMin = 50 // Reset
	cfg.Stealth.TypingDelayMax = 150

	cfg.Meeting.SelectorTimeoutMs = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with zero selector timeout")
	}
	cfg.Meeting.SelectorTimeoutMs = 2000 // Reset

	for _, secs := range []int{0, -5} {
		cfg.Recording.StopTimeoutSecs = secs
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validation should fail with stop timeout %d", secs)
		}
	}
	cfg.Recording.StopTimeoutSecs = 30 // Reset

	cfg.Stealth.ActionDelayMin = -500
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with a negative action delay minimum")
	}
	cfg.Stealth.ActionDelayMin = 300 // Reset

	cfg.Stealth.PageLoadWaitMin = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with a negative page load minimum")
	}
	cfg.Stealth.PageLoadWaitMin = 1000 // Reset

	if err := cfg.Validate(); err != nil {
		t.Errorf("Reset config should validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("MEETING_BOT_NAME", "Recorder")
	os.Setenv("RECORDINGS_DIR", "/tmp/recs")
	os.Setenv("RECORDING_DURATION", "15")
	os.Setenv("BROWSER_HEADLESS", "false")
	os.Setenv("LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("MEETING_BOT_NAME")
		os.Unsetenv("RECORDINGS_DIR")
		os.Unsetenv("RECORDING_DURATION")
		os.Unsetenv("BROWSER_HEADLESS")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Meeting.DisplayName != "Recorder" {
		t.Errorf("Display name should be overridden from env, got %s", cfg.Meeting.DisplayName)
	}

	if cfg.Recording.OutputDir != "/tmp/recs" {
		t.Errorf("Output dir should be overridden from env, got %s", cfg.Recording.OutputDir)
	}

	if cfg.Recording.DurationSeconds != 15 {
		t.Errorf("Duration should be 15 from env, got %d", cfg.Recording.DurationSeconds)
	}

	if cfg.Browser.Headless {
		t.Error("Headless should be disabled from env")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Log level should be debug from env, got %s", cfg.Logging.Level)
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Browser.Timeout = 45
	cfg.Meeting.SelectorTimeoutMs = 1500
	cfg.Recording.DurationSeconds = 90

	if cfg.GetTimeout().Seconds() != 45 {
		t.Errorf("Expected 45 seconds, got %f", cfg.GetTimeout().Seconds())
	}

	if cfg.SelectorTimeout().Milliseconds() != 1500 {
		t.Errorf("Expected 1500ms, got %d", cfg.SelectorTimeout().Milliseconds())
	}

	if cfg.RecordingDuration().Seconds() != 90 {
		t.Errorf("Expected 90 seconds, got %f", cfg.RecordingDuration().Seconds())
	}
}

func TestLoadConfigNonExistent(t *testing.T) {
	cfg, err := LoadConfig("nonexistent.yaml")
	if err != nil {
		t.Fatalf("Should not error for non-existent file: %v", err)
	}

	if cfg.Browser.Timeout != 30 {
		t.Error("Should have default timeout")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Meeting.DisplayName = "Notes Bot"
	cfg.Meeting.Provider = "zoom"
	cfg.Recording.DurationSeconds = 120

	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.Meeting.DisplayName != "Notes Bot" {
		t.Errorf("Expected display name Notes Bot, got %s", loaded.Meeting.DisplayName)
	}
	if loaded.Meeting.Provider != "zoom" {
		t.Errorf("Expected provider zoom, got %s", loaded.Meeting.Provider)
	}
	if loaded.Recording.DurationSeconds != 120 {
		t.Errorf("Expected duration 120, got %d", loaded.Recording.DurationSeconds)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("browser: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig should fail on malformed YAML")
	}
}
