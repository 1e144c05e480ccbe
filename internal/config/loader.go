package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Settings holds the engine's runtime configuration, loaded from an INI
// file. Every key has a usable default so a missing file is not fatal.
type Settings struct {
	// Paths
	DatabasePath  string
	ConfigPath    string // page configuration document
	WorkflowDir   string
	ReplayDir     string // directory of PNG frames for replay capture
	LogLevel      string

	// Detection pacing
	PollInterval time.Duration
	SettleDelay  time.Duration

	// Screen service
	CacheDuration   time.Duration
	CaptureAttempts int
	CaptureBackoff  time.Duration

	// Workflow defaults
	StepTimeout  time.Duration
	StepAttempts int
	RetryDelay   time.Duration
}

// Defaults returns the settings used when no file is present.
func Defaults() *Settings {
	return &Settings{
		DatabasePath:    "data/screenflow.db",
		ConfigPath:      "data/pages.yaml",
		WorkflowDir:     "workflows",
		ReplayDir:       "",
		LogLevel:        "info",
		PollInterval:    200 * time.Millisecond,
		SettleDelay:     300 * time.Millisecond,
		CacheDuration:   100 * time.Millisecond,
		CaptureAttempts: 3,
		CaptureBackoff:  250 * time.Millisecond,
		StepTimeout:     15 * time.Second,
		StepAttempts:    1,
		RetryDelay:      time.Second,
	}
}

// LoadFromINI loads settings from an INI file, falling back to defaults
// for any missing key.
func LoadFromINI(path string) (*Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	s := Defaults()

	paths := cfg.Section("Paths")
	s.DatabasePath = paths.Key("databasePath").MustString(s.DatabasePath)
	s.ConfigPath = paths.Key("configPath").MustString(s.ConfigPath)
	s.WorkflowDir = paths.Key("workflowDir").MustString(s.WorkflowDir)
	s.ReplayDir = paths.Key("replayDir").MustString(s.ReplayDir)

	logging := cfg.Section("Logging")
	s.LogLevel = logging.Key("level").MustString(s.LogLevel)

	detection := cfg.Section("Detection")
	s.PollInterval = msKey(detection, "pollIntervalMs", s.PollInterval)
	s.SettleDelay = msKey(detection, "settleDelayMs", s.SettleDelay)

	capture := cfg.Section("Capture")
	s.CacheDuration = msKey(capture, "cacheDurationMs", s.CacheDuration)
	s.CaptureAttempts = capture.Key("attempts").MustInt(s.CaptureAttempts)
	s.CaptureBackoff = msKey(capture, "backoffMs", s.CaptureBackoff)

	workflow := cfg.Section("Workflow")
	s.StepTimeout = time.Duration(workflow.Key("stepTimeoutSec").MustInt(int(s.StepTimeout/time.Second))) * time.Second
	s.StepAttempts = workflow.Key("stepAttempts").MustInt(s.StepAttempts)
	s.RetryDelay = msKey(workflow, "retryDelayMs", s.RetryDelay)

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func msKey(section *ini.Section, key string, fallback time.Duration) time.Duration {
	return time.Duration(section.Key(key).MustInt(int(fallback/time.Millisecond))) * time.Millisecond
}

func (s *Settings) validate() error {
	if s.PollInterval <= 0 {
		return fmt.Errorf("pollIntervalMs must be positive")
	}
	if s.CaptureAttempts < 1 {
		return fmt.Errorf("capture attempts must be at least 1")
	}
	if s.StepAttempts < 1 {
		return fmt.Errorf("stepAttempts must be at least 1")
	}
	return nil
}
