package coordinator

import (
	"testing"
	"time"
)

func TestNewCooldownManagerClamps(t *testing.T) {
	tests := []struct {
		configured int
		want       int
	}{
		{0, 5},
		{1, 5},
		{5, 5},
		{12, 12},
		{30, 30},
		{90, 30},
	}
	for _, tt := range tests {
		if got := NewCooldownManager(tt.configured).minutes; got != tt.want {
			t.Errorf("minutes for %d: expected %d, got %d", tt.configured, tt.want, got)
		}
	}
}

func TestCooldownLifecycle(t *testing.T) {
	current := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	cm := NewCooldownManager(5)
	cm.now = func() time.Time { return current }

	if !cm.CanRefresh() {
		t.Fatal("fresh manager must allow a refresh")
	}
	if got := cm.RemainingSeconds(); got != 0 {
		t.Errorf("expected 0 remaining before first refresh, got %d", got)
	}

	cm.RecordRefresh()
	if cm.CanRefresh() {
		t.Error("refresh must be blocked immediately after recording")
	}
	if got := cm.RemainingSeconds(); got != 300 {
		t.Errorf("expected 300 seconds remaining, got %d", got)
	}

	current = current.Add(2 * time.Minute)
	if got := cm.RemainingSeconds(); got != 180 {
		t.Errorf("expected 180 seconds remaining, got %d", got)
	}

	// A fractional remainder rounds up.
	current = current.Add(2*time.Minute + 59*time.Second + 500*time.Millisecond)
	if got := cm.RemainingSeconds(); got != 1 {
		t.Errorf("expected ceil to 1 second, got %d", got)
	}

	current = current.Add(time.Second)
	if !cm.CanRefresh() {
		t.Error("refresh must be allowed after the cooldown elapsed")
	}
	if got := cm.RemainingSeconds(); got != 0 {
		t.Errorf("expected 0 remaining after cooldown, got %d", got)
	}
}
