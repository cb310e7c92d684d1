package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.IPC.Host != "127.0.0.1" {
		t.Errorf("IPC.Host = %q, want %q", cfg.IPC.Host, "127.0.0.1")
	}
	if cfg.IPC.Port != 25566 {
		t.Errorf("IPC.Port = %d, want %d", cfg.IPC.Port, 25566)
	}
	if cfg.Update.ReleaseWindow != 30 {
		t.Errorf("Update.ReleaseWindow = %d, want 30", cfg.Update.ReleaseWindow)
	}
}

func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SABA_HOME", dir)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.IPC.Port != 25566 {
		t.Errorf("expected default port, got %d", cfg.IPC.Port)
	}
}

func TestSaveThenLoadConfigRoundTrips(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SABA_HOME", dir)

	cfg := DefaultConfig()
	cfg.IPC.Port = 30000
	cfg.Node.ID = "node-a"

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "daemon.toml")); err != nil {
		t.Fatalf("expected daemon.toml to exist: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.IPC.Port != 30000 || got.Node.ID != "node-a" {
		t.Errorf("round-tripped config = %+v", got)
	}
}
