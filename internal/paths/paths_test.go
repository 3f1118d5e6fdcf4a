package paths

import (
	"strings"
	"testing"
)

func TestGetPaths(t *testing.T) {
	p := GetPaths()

	if p.ConfigDir == "" {
		t.Error("ConfigDir should not be empty")
	}
	if p.StateDir == "" {
		t.Error("StateDir should not be empty")
	}
	if !strings.Contains(p.ConfigDir, "srafetch") {
		t.Errorf("ConfigDir should contain 'srafetch', got %q", p.ConfigDir)
	}
}

func TestGetPathsWithAppEnv(t *testing.T) {
	t.Setenv("SRAFETCH_CONFIG_HOME", "/custom/config")
	t.Setenv("SRAFETCH_STATE_HOME", "/custom/state")

	p := GetPaths()
	if p.ConfigDir != "/custom/config" {
		t.Errorf("expected ConfigDir '/custom/config', got %q", p.ConfigDir)
	}
	if p.StateDir != "/custom/state" {
		t.Errorf("expected StateDir '/custom/state', got %q", p.StateDir)
	}
}

func TestGetPathsWithXDGEnv(t *testing.T) {
	t.Setenv("SRAFETCH_CONFIG_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")

	p := GetPaths()
	if p.ConfigDir != "/xdg/config/srafetch" {
		t.Errorf("expected ConfigDir '/xdg/config/srafetch', got %q", p.ConfigDir)
	}
	if GetConfigFile() != "/xdg/config/srafetch/config.yaml" {
		t.Errorf("unexpected config file %q", GetConfigFile())
	}
}

func TestGetJournalPath(t *testing.T) {
	t.Setenv("SRAFETCH_JOURNAL_PATH", "")
	t.Setenv("SRAFETCH_STATE_HOME", "/state")
	if got := GetJournalPath(); got != "/state/journal.db" {
		t.Errorf("expected '/state/journal.db', got %q", got)
	}

	t.Setenv("SRAFETCH_JOURNAL_PATH", "/tmp/j.db")
	if got := GetJournalPath(); got != "/tmp/j.db" {
		t.Errorf("expected env override, got %q", got)
	}
}
