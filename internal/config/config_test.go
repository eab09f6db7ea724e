package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultTuningMatchesReconcilePolicy(t *testing.T) {
	tun := DefaultTuning()
	if err := tun.Validate(); err != nil {
		t.Fatalf("embedded defaults invalid: %v", err)
	}
	r := tun.Reconcile
	if r.OwnSnapDistance != 100 || r.RemoteSnapDistance != 200 || r.CartSnapDistance != 50 {
		t.Errorf("snap distances = %v/%v/%v", r.OwnSnapDistance, r.RemoteSnapDistance, r.CartSnapDistance)
	}
	if got := tun.CartStaleAfter(); got != 200*time.Millisecond {
		t.Errorf("CartStaleAfter = %v", got)
	}
	if got := tun.JoinTimeout(); got != 4500*time.Millisecond {
		t.Errorf("JoinTimeout = %v", got)
	}
}

func TestLoadTuningOverridesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("reconcile:\n  remote_smoothing: 0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tun, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}
	if tun.Reconcile.RemoteSmoothing != 0.5 {
		t.Errorf("remote_smoothing = %v, want 0.5", tun.Reconcile.RemoteSmoothing)
	}
	if tun.Reconcile.RemoteSnapDistance != 200 {
		t.Errorf("remote_snap_distance lost default: %v", tun.Reconcile.RemoteSnapDistance)
	}
}

func TestLoadTuningRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("authority:\n  claim_speed: 0.1\n  release_speed: 0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuning(path); err == nil {
		t.Error("claim_speed below release_speed accepted")
	}
	if _, err := LoadTuning(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing explicit file accepted")
	}
}

func TestLoadReadsEnv(t *testing.T) {
	t.Setenv("ROOM_MAX_GUESTS", "3")
	t.Setenv("ROOM_IDLE_TIMEOUT_SECONDS", "30")
	t.Setenv("IDENTITY_PREFIX", "putt")
	t.Setenv("MIGRATE_ON_START", "true")

	cfg := Load()
	if cfg.RoomMaxGuests != 3 {
		t.Errorf("RoomMaxGuests = %d", cfg.RoomMaxGuests)
	}
	if cfg.RoomIdleTimeout != 30*time.Second {
		t.Errorf("RoomIdleTimeout = %v", cfg.RoomIdleTimeout)
	}
	if cfg.IdentityPrefix != "PUTT" {
		t.Errorf("IdentityPrefix = %q", cfg.IdentityPrefix)
	}
	if !cfg.MigrateOnStart {
		t.Error("MigrateOnStart not set")
	}
}
