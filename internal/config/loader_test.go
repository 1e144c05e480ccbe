package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromINI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Settings.ini")
	content := `[Paths]
databasePath = /tmp/flow.db
configPath = pages/app.yaml

[Detection]
pollIntervalMs = 150
settleDelayMs = 500

[Capture]
attempts = 5
backoffMs = 100

[Workflow]
stepTimeoutSec = 30
stepAttempts = 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	s, err := LoadFromINI(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if s.DatabasePath != "/tmp/flow.db" {
		t.Errorf("databasePath = %q", s.DatabasePath)
	}
	if s.ConfigPath != "pages/app.yaml" {
		t.Errorf("configPath = %q", s.ConfigPath)
	}
	if s.PollInterval != 150*time.Millisecond {
		t.Errorf("pollInterval = %v", s.PollInterval)
	}
	if s.SettleDelay != 500*time.Millisecond {
		t.Errorf("settleDelay = %v", s.SettleDelay)
	}
	if s.CaptureAttempts != 5 || s.CaptureBackoff != 100*time.Millisecond {
		t.Errorf("capture = %d attempts, %v backoff", s.CaptureAttempts, s.CaptureBackoff)
	}
	if s.StepTimeout != 30*time.Second || s.StepAttempts != 2 {
		t.Errorf("workflow = %v timeout, %d attempts", s.StepTimeout, s.StepAttempts)
	}

	// Keys not in the file keep their defaults.
	if s.CacheDuration != Defaults().CacheDuration {
		t.Errorf("cacheDuration = %v, want default", s.CacheDuration)
	}
	if s.LogLevel != "info" {
		t.Errorf("logLevel = %q, want info", s.LogLevel)
	}
}

func TestLoadFromINIMissingFile(t *testing.T) {
	if _, err := LoadFromINI(filepath.Join(t.TempDir(), "absent.ini")); err == nil {
		t.Error("missing file should return an error")
	}
}

func TestValidateSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Settings.ini")
	content := "[Detection]\npollIntervalMs = 0\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := LoadFromINI(path); err == nil {
		t.Error("zero poll interval should be rejected")
	}
}
