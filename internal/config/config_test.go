package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.PollIntervalMs != 1000 {
		t.Errorf("PollIntervalMs = %d, want 1000", cfg.PollIntervalMs)
	}
	if cfg.ProgressIntervalMs != 100 {
		t.Errorf("ProgressIntervalMs = %d, want 100", cfg.ProgressIntervalMs)
	}
	if cfg.CacheTTLMinutes != 360 {
		t.Errorf("CacheTTLMinutes = %d, want 360", cfg.CacheTTLMinutes)
	}
	if cfg.MarqueeEnabled || cfg.MarqueeSpeed != 2 || cfg.OutputWidth != 0 {
		t.Errorf("unexpected output defaults: width=%d marquee=%v speed=%d", cfg.OutputWidth, cfg.MarqueeEnabled, cfg.MarqueeSpeed)
	}
	if cfg.Player.Name != "tether" {
		t.Errorf("Player.Name = %q, want tether", cfg.Player.Name)
	}
	if want := filepath.Join(home, ".local", "share", "tether"); cfg.DataDir != want {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, want)
	}
	if want := filepath.Join(home, ".local", "share", "tether", "tether.db"); cfg.DatabasePath() != want {
		t.Errorf("DatabasePath() = %q, want %q", cfg.DatabasePath(), want)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("TETHER_SPOTIFY_CLIENT_ID", "abc123")
	t.Setenv("TETHER_PLAYER_NAME", "den")
	t.Setenv("TETHER_POLL_INTERVAL_MS", "2500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Spotify.ClientID != "abc123" {
		t.Errorf("Spotify.ClientID = %q, want abc123", cfg.Spotify.ClientID)
	}
	if cfg.Player.Name != "den" {
		t.Errorf("Player.Name = %q, want den", cfg.Player.Name)
	}
	if cfg.PollIntervalMs != 2500 {
		t.Errorf("PollIntervalMs = %d, want 2500", cfg.PollIntervalMs)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Spotify.ClientID = "client"
	cfg.Player.DeviceID = "device-1"
	cfg.Notify.Enabled = true

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Spotify.ClientID != "client" {
		t.Errorf("Spotify.ClientID = %q, want client", got.Spotify.ClientID)
	}
	if got.Player.DeviceID != "device-1" {
		t.Errorf("Player.DeviceID = %q, want device-1", got.Player.DeviceID)
	}
	if !got.Notify.Enabled {
		t.Error("Notify.Enabled = false, want true")
	}
}
