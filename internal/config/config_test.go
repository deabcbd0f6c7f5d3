package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
}

func TestLoad(t *testing.T) {
	writeConfig(t, `
app:
  name: schulmanager-sync
  version: 1.0.0
  env: production
portal:
  username: parent@example.com
  password: geheim123
  term_id: 30000
refresh:
  interval: 30m
  cooldown_minutes: 10
  schedule_weeks: 3
redis:
  host: localhost
  port: 6379
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.App.Name != "schulmanager-sync" {
		t.Errorf("unexpected app name %q", cfg.App.Name)
	}
	if cfg.TermID() != 30000 {
		t.Errorf("expected term id 30000, got %d", cfg.TermID())
	}
	if cfg.RefreshInterval() != 30*time.Minute {
		t.Errorf("unexpected interval %v", cfg.RefreshInterval())
	}
	if cfg.CooldownMinutes() != 10 {
		t.Errorf("expected cooldown 10, got %d", cfg.CooldownMinutes())
	}
	if cfg.ScheduleWeeks() != 3 {
		t.Errorf("expected 3 weeks, got %d", cfg.ScheduleWeeks())
	}
	if cfg.RedisAddr() != "localhost:6379" {
		t.Errorf("unexpected redis addr %q", cfg.RedisAddr())
	}
}

func TestLoadRequiresCredentials(t *testing.T) {
	writeConfig(t, `
portal:
  username: parent@example.com
`)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing password")
	}
}

func TestDefaults(t *testing.T) {
	writeConfig(t, `
portal:
  username: parent@example.com
  password: geheim123
`)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.TermID() != DefaultTermID {
		t.Errorf("expected default term id, got %d", cfg.TermID())
	}
	if cfg.RefreshInterval() != DefaultRefreshInterval {
		t.Errorf("expected default interval, got %v", cfg.RefreshInterval())
	}
	if cfg.CooldownMinutes() != DefaultCooldownMinutes {
		t.Errorf("expected default cooldown, got %d", cfg.CooldownMinutes())
	}
	if cfg.ScheduleWeeks() != DefaultScheduleWeeks {
		t.Errorf("expected default weeks, got %d", cfg.ScheduleWeeks())
	}
	if cfg.ExamsPastDays() != DefaultExamsPastDays || cfg.ExamsFutureDays() != DefaultExamsFutureDays {
		t.Errorf("unexpected exam window %d/%d", cfg.ExamsPastDays(), cfg.ExamsFutureDays())
	}
	if cfg.PortalTimeout() != DefaultPortalTimeout {
		t.Errorf("expected default timeout, got %v", cfg.PortalTimeout())
	}

	features := cfg.EnabledFeatures()
	for name, enabled := range features {
		if !enabled {
			t.Errorf("feature %s must default to enabled", name)
		}
	}
}

func TestCooldownClamping(t *testing.T) {
	tests := []struct {
		configured int
		want       int
	}{
		{1, MinCooldownMinutes},
		{60, MaxCooldownMinutes},
		{15, 15},
	}
	for _, tt := range tests {
		cfg := &Config{}
		cfg.Refresh.CooldownMinutes = tt.configured
		if got := cfg.CooldownMinutes(); got != tt.want {
			t.Errorf("cooldown for %d: expected %d, got %d", tt.configured, tt.want, got)
		}
	}
}

func TestScheduleWeeksClamping(t *testing.T) {
	tests := []struct {
		configured int
		want       int
	}{
		{-1, MinScheduleWeeks},
		{5, MaxScheduleWeeks},
		{2, 2},
	}
	for _, tt := range tests {
		cfg := &Config{}
		cfg.Refresh.ScheduleWeeks = tt.configured
		if got := cfg.ScheduleWeeks(); got != tt.want {
			t.Errorf("weeks for %d: expected %d, got %d", tt.configured, tt.want, got)
		}
	}
}

func TestFeatureToggles(t *testing.T) {
	writeConfig(t, `
portal:
  username: parent@example.com
  password: geheim123
features:
  grades: false
  homework: true
`)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	features := cfg.EnabledFeatures()
	if features["grades"] {
		t.Error("grades must be disabled")
	}
	if !features["homework"] || !features["schedule"] || !features["exams"] {
		t.Errorf("unexpected features %v", features)
	}
}
