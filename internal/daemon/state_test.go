package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jfmyers9/tether/internal/playback"
	"github.com/jfmyers9/tether/internal/remote"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func newTestState(t *testing.T, interval time.Duration) (*StateFile, *testClock) {
	t.Helper()
	clk := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStateFile(filepath.Join(t.TempDir(), "state.json"))
	s.persistInterval = interval
	s.now = clk.now
	return s, clk
}

func playingState(uri string, seconds float64) playback.State {
	return playback.State{
		CurrentTrack: &remote.Track{
			URI:        uri,
			Name:       "Song " + uri,
			Artists:    []remote.Artist{{Name: "Artist"}},
			DurationMs: 180_000,
		},
		IsPlaying:    true,
		Progress:     playback.Progress{CurrentTime: seconds, Duration: 180},
		CurrentIndex: 0,
		Queue:        []remote.Track{{URI: uri}},
	}
}

func readSnapshot(t *testing.T, s *StateFile) *Snapshot {
	t.Helper()
	snap, err := ReadSnapshot(s.filePath)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	return snap
}

func TestPublish_WritesSnapshot(t *testing.T) {
	s, _ := newTestState(t, time.Hour)

	if err := s.Publish(playingState("spotify:track:a", 12), "device-1"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	snap := readSnapshot(t, s)
	if snap.Track == nil || snap.Track.URI != "spotify:track:a" {
		t.Fatalf("track = %+v, want spotify:track:a", snap.Track)
	}
	if snap.Phase != "playing" {
		t.Errorf("phase = %q, want playing", snap.Phase)
	}
	if snap.Position != 12*time.Second {
		t.Errorf("position = %v, want 12s", snap.Position)
	}
	if snap.DeviceID != "device-1" {
		t.Errorf("device id = %q, want device-1", snap.DeviceID)
	}
	if snap.Repeat != "off" {
		t.Errorf("repeat = %q, want off", snap.Repeat)
	}
	if snap.PID != os.Getpid() {
		t.Errorf("pid = %d, want %d", snap.PID, os.Getpid())
	}
}

func TestPublish_ThrottlesPositionOnlyChanges(t *testing.T) {
	s, clk := newTestState(t, time.Second)

	if err := s.Publish(playingState("spotify:track:a", 1), ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Same track, new position, interval not elapsed
	clk.t = clk.t.Add(100 * time.Millisecond)
	if err := s.Publish(playingState("spotify:track:a", 1.1), ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := readSnapshot(t, s).Position; got != time.Second {
		t.Errorf("position on disk = %v, want 1s", got)
	}
	if !s.dirty {
		t.Error("expected dirty flag after throttled skip")
	}

	// Interval elapsed
	clk.t = clk.t.Add(time.Second)
	if err := s.Publish(playingState("spotify:track:a", 2.1), ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := readSnapshot(t, s).Position; got != 2100*time.Millisecond {
		t.Errorf("position on disk = %v, want 2.1s", got)
	}
	if s.dirty {
		t.Error("expected dirty flag to be cleared after write")
	}
}

func TestPublish_TrackChangeWritesImmediately(t *testing.T) {
	s, clk := newTestState(t, time.Hour)

	if err := s.Publish(playingState("spotify:track:a", 1), ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	clk.t = clk.t.Add(10 * time.Millisecond)
	if err := s.Publish(playingState("spotify:track:b", 0), ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if got := readSnapshot(t, s).Track.URI; got != "spotify:track:b" {
		t.Errorf("track on disk = %q, want spotify:track:b", got)
	}

	// Pausing is a significant change too
	paused := playingState("spotify:track:b", 0)
	paused.IsPlaying = false
	if err := s.Publish(paused, ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if readSnapshot(t, s).IsPlaying {
		t.Error("expected paused snapshot on disk")
	}
}

func TestFlush_WritesWhenDirty(t *testing.T) {
	s, clk := newTestState(t, time.Hour)

	if err := s.Publish(playingState("spotify:track:a", 1), ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	clk.t = clk.t.Add(time.Millisecond)
	if err := s.Publish(playingState("spotify:track:a", 5), ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := readSnapshot(t, s).Position; got != 5*time.Second {
		t.Errorf("position on disk = %v, want 5s", got)
	}
	if s.dirty {
		t.Error("expected dirty flag to be false after Flush")
	}
}

func TestFlush_NoOpWhenClean(t *testing.T) {
	s, _ := newTestState(t, time.Hour)

	if err := s.Publish(playingState("spotify:track:a", 1), ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := os.Remove(s.filePath); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// Flush on clean state should not recreate the file
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := os.Stat(s.filePath); !errors.Is(err, os.ErrNotExist) {
		t.Error("Flush wrote to disk when state was clean")
	}
}

func TestRemove(t *testing.T) {
	s, _ := newTestState(t, time.Hour)

	if err := s.Publish(playingState("spotify:track:a", 1), ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := s.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := ReadSnapshot(s.filePath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadSnapshot after Remove error = %v, want not exist", err)
	}

	// Removing twice is fine
	if err := s.Remove(); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestSnapshotPositionAt(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	track := &remote.Track{DurationMs: 60_000}

	tests := []struct {
		name string
		snap Snapshot
		at   time.Time
		want time.Duration
	}{
		{
			name: "playing extrapolates",
			snap: Snapshot{Track: track, IsPlaying: true, Position: 10 * time.Second, UpdatedAt: base},
			at:   base.Add(5 * time.Second),
			want: 15 * time.Second,
		},
		{
			name: "paused holds",
			snap: Snapshot{Track: track, Position: 10 * time.Second, UpdatedAt: base},
			at:   base.Add(5 * time.Second),
			want: 10 * time.Second,
		},
		{
			name: "capped at duration",
			snap: Snapshot{Track: track, IsPlaying: true, Position: 58 * time.Second, UpdatedAt: base},
			at:   base.Add(time.Minute),
			want: time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.PositionAt(tt.at); got != tt.want {
				t.Errorf("PositionAt() = %v, want %v", got, tt.want)
			}
		})
	}
}
