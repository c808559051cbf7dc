// Package config provides configuration management for the meeting recorder.
// It supports YAML configuration files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the recorder
type Config struct {
	// Browser configuration
	Browser BrowserConfig `yaml:"browser"`

	// Meeting join behaviour
	Meeting MeetingConfig `yaml:"meeting"`

	// Recording output
	Recording RecordingConfig `yaml:"recording"`

	// Human-like pacing for UI interactions
	Stealth StealthConfig `yaml:"stealth"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`
}

// BrowserConfig holds browser automation settings
type BrowserConfig struct {
	Headless       bool   `yaml:"headless"`
	BinPath        string `yaml:"bin_path"`
	UserDataDir    string `yaml:"user_data_dir"`
	NoSandbox      bool   `yaml:"no_sandbox"`
	SlowMotion     int    `yaml:"slow_motion_ms"`
	Timeout        int    `yaml:"timeout_seconds"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
}

// MeetingConfig holds settings used while joining and leaving a meeting
type MeetingConfig struct {
	DisplayName        string `yaml:"display_name"`
	Provider           string `yaml:"provider"`
	MuteMicrophone     bool   `yaml:"mute_microphone"`
	MuteCamera         bool   `yaml:"mute_camera"`
	ZoomMeetingID      string `yaml:"zoom_meeting_id"`
	ZoomPasscode       string `yaml:"zoom_passcode"`
	SelectorTimeoutMs  int    `yaml:"selector_timeout_ms"`
	JoinSettleSeconds  int    `yaml:"join_settle_seconds"`
	LeaveSettleSeconds int    `yaml:"leave_settle_seconds"`
}

// RecordingConfig holds capture and artifact settings
type RecordingConfig struct {
	OutputDir       string `yaml:"output_dir"`
	DurationSeconds int    `yaml:"duration_seconds"`
	GraceSeconds    int    `yaml:"grace_seconds"`
	StopTimeoutSecs int    `yaml:"stop_timeout_seconds"`
}

// StealthConfig holds pacing settings for UI interactions
type StealthConfig struct {
	// Typing settings
	TypingDelayMin int `yaml:"typing_delay_min_ms"`
	TypingDelayMax int `yaml:"typing_delay_max_ms"`

	// Timing settings
	ActionDelayMin  int `yaml:"action_delay_min_ms"`
	ActionDelayMax  int `yaml:"action_delay_max_ms"`
	PageLoadWaitMin int `yaml:"page_load_wait_min_ms"`
	PageLoadWaitMax int `yaml:"page_load_wait_max_ms"`

	// Fingerprint masking
	RandomizeViewport bool `yaml:"randomize_viewport"`
	RandomUserAgent   bool `yaml:"random_user_agent"`
}

// StorageConfig holds data persistence settings
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputFile string `yaml:"output_file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:       true,
			BinPath:        "",
			UserDataDir:    "",
			NoSandbox:      true,
			SlowMotion:     0,
			Timeout:        30,
			ViewportWidth:  1366,
			ViewportHeight: 768,
		},
		Meeting: MeetingConfig{
			DisplayName:        "Meeting Bot",
			Provider:           "",
			MuteMicrophone:     true,
			MuteCamera:         true,
			SelectorTimeoutMs:  2000,
			JoinSettleSeconds:  5,
			LeaveSettleSeconds: 2,
		},
		Recording: RecordingConfig{
			OutputDir:       "./recordings",
			DurationSeconds: 60,
			GraceSeconds:    5,
			StopTimeoutSecs: 30,
		},
		Stealth: StealthConfig{
			TypingDelayMin:    50,
			TypingDelayMax:    150,
			ActionDelayMin:    300,
			ActionDelayMax:    900,
			PageLoadWaitMin:   1000,
			PageLoadWaitMax:   3000,
			RandomizeViewport: false,
			RandomUserAgent:   false,
		},
		Storage: StorageConfig{
			DatabasePath: "./data/meetings.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			OutputFile: "",
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies environment variable overrides
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, use defaults
		} else {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func (c *Config) applyEnvOverrides() {
	// Browser settings
	if headless := os.Getenv("BROWSER_HEADLESS"); headless != "" {
		c.Browser.Headless = headless == "true" || headless == "1"
	}
	if bin := os.Getenv("BROWSER_BIN"); bin != "" {
		c.Browser.BinPath = bin
	}
	if userDataDir := os.Getenv("BROWSER_USER_DATA_DIR"); userDataDir != "" {
		c.Browser.UserDataDir = userDataDir
	}

	// Meeting settings
	if name := os.Getenv("MEETING_BOT_NAME"); name != "" {
		c.Meeting.DisplayName = name
	}
	if provider := os.Getenv("MEETING_PROVIDER"); provider != "" {
		c.Meeting.Provider = provider
	}
	if id := os.Getenv("ZOOM_MEETING_ID"); id != "" {
		c.Meeting.ZoomMeetingID = id
	}
	if passcode := os.Getenv("ZOOM_PASSCODE"); passcode != "" {
		c.Meeting.ZoomPasscode = passcode
	}

	// Recording
	if dir := os.Getenv("RECORDINGS_DIR"); dir != "" {
		c.Recording.OutputDir = dir
	}
	if duration := os.Getenv("RECORDING_DURATION"); duration != "" {
		if val, err := strconv.Atoi(duration); err == nil {
			c.Recording.DurationSeconds = val
		}
	}

	// Logging
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	// Storage
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Browser.Timeout <= 0 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("viewport dimensions must be positive")
	}

	if c.Recording.OutputDir == "" {
		return fmt.Errorf("recording output_dir is required (set RECORDINGS_DIR env var or in config)")
	}
	if c.Recording.DurationSeconds <= 0 {
		return fmt.Errorf("recording duration_seconds must be positive")
	}
	if c.Recording.GraceSeconds < 0 {
		return fmt.Errorf("recording grace_seconds must not be negative")
	}
	if c.Recording.StopTimeoutSecs <= 0 {
		return fmt.Errorf("recording stop_timeout_seconds must be positive")
	}

	if c.Meeting.SelectorTimeoutMs <= 0 {
		return fmt.Errorf("selector_timeout_ms must be positive")
	}
	if c.Meeting.JoinSettleSeconds < 0 || c.Meeting.LeaveSettleSeconds < 0 {
		return fmt.Errorf("settle durations must not be negative")
	}

	if c.Stealth.TypingDelayMin < 0 || c.Stealth.ActionDelayMin < 0 || c.Stealth.PageLoadWaitMin < 0 {
		return fmt.Errorf("stealth delay minimums must not be negative")
	}
	if c.Stealth.TypingDelayMin > c.Stealth.TypingDelayMax {
		return fmt.Errorf("typing_delay_min_ms must not exceed typing_delay_max_ms")
	}
	if c.Stealth.ActionDelayMin > c.Stealth.ActionDelayMax {
		return fmt.Errorf("action_delay_min_ms must not exceed action_delay_max_ms")
	}
	if c.Stealth.PageLoadWaitMin > c.Stealth.PageLoadWaitMax {
		return fmt.Errorf("page_load_wait_min_ms must not exceed page_load_wait_max_ms")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// GetTimeout returns the navigation timeout as a time.Duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Browser.Timeout) * time.Second
}

// SelectorTimeout returns how long a single candidate locator is waited for
func (c *Config) SelectorTimeout() time.Duration {
	return time.Duration(c.Meeting.SelectorTimeoutMs) * time.Millisecond
}

// RecordingDuration returns the default capture length
func (c *Config) RecordingDuration() time.Duration {
	return time.Duration(c.Recording.DurationSeconds) * time.Second
}

// SaveConfig saves the current configuration to a YAML file
func (c *Config) SaveConfig(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
