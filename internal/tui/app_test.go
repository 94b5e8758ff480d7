package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/jfmyers9/tether/internal/playback"
	"github.com/jfmyers9/tether/internal/remote"
)

type fakeController struct {
	mu    sync.Mutex
	state playback.State
	calls []string
	seeks []time.Duration
	err   error
	done  chan struct{}
}

func newFakeController() *fakeController {
	return &fakeController{state: playback.State{CurrentIndex: -1}, done: make(chan struct{}, 16)}
}

func (f *fakeController) record(name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	err := f.err
	f.mu.Unlock()
	f.done <- struct{}{}
	return err
}

func (f *fakeController) State() playback.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeController) OnChange(func(playback.State)) func() { return func() {} }

func (f *fakeController) TogglePlayPause(context.Context) error { return f.record("toggle") }
func (f *fakeController) PlayNext(context.Context) error        { return f.record("next") }
func (f *fakeController) PlayPrevious(context.Context) error    { return f.record("previous") }
func (f *fakeController) ToggleShuffle(context.Context) error   { return f.record("shuffle") }
func (f *fakeController) CycleRepeat(context.Context) error     { return f.record("repeat") }

func (f *fakeController) Seek(_ context.Context, pos time.Duration) error {
	f.mu.Lock()
	f.seeks = append(f.seeks, pos)
	f.mu.Unlock()
	return f.record("seek")
}

func (f *fakeController) PlayTrack(_ context.Context, tr remote.Track, index int, all []remote.Track) error {
	return f.record(fmt.Sprintf("play %s %d/%d", tr.URI, index, len(all)))
}

func (f *fakeController) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(time.Second):
		t.Fatal("command was not run")
	}
}

func track(uri, name string) remote.Track {
	return remote.Track{
		URI:        uri,
		Name:       name,
		Artists:    []remote.Artist{{Name: "Artist"}},
		Album:      remote.Album{Name: "Album"},
		DurationMs: 200_000,
	}
}

func TestKeyBindings(t *testing.T) {
	tests := []struct {
		event *tcell.EventKey
		want  string
	}{
		{tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), "toggle"},
		{tcell.NewEventKey(tcell.KeyRune, 'n', tcell.ModNone), "next"},
		{tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone), "previous"},
		{tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone), "shuffle"},
		{tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone), "repeat"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			ctrl := newFakeController()
			a := New(ctrl)

			if got := a.handleKeyEvent(tt.event); got != nil {
				t.Fatalf("handleKeyEvent() returned event, want consumed")
			}
			ctrl.wait(t)
			if len(ctrl.calls) != 1 || ctrl.calls[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", ctrl.calls, tt.want)
			}
		})
	}
}

func TestUnknownKeyPassesThrough(t *testing.T) {
	a := New(newFakeController())
	ev := tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)
	if got := a.handleKeyEvent(ev); got != ev {
		t.Error("expected unbound key to pass through")
	}
}

func TestSeekKeysClamp(t *testing.T) {
	ctrl := newFakeController()
	cur := track("spotify:track:a", "A")
	ctrl.state = playback.State{
		CurrentTrack: &cur,
		Progress:     playback.Progress{CurrentTime: 5, Duration: 200},
	}
	a := New(ctrl)

	a.handleKeyEvent(tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone))
	ctrl.wait(t)
	if ctrl.seeks[0] != 0 {
		t.Errorf("seek back = %v, want 0", ctrl.seeks[0])
	}

	ctrl.state.Progress.CurrentTime = 195
	a.handleKeyEvent(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	ctrl.wait(t)
	if ctrl.seeks[1] != 200*time.Second {
		t.Errorf("seek forward = %v, want 3m20s", ctrl.seeks[1])
	}
}

func TestCommandErrorShown(t *testing.T) {
	ctrl := newFakeController()
	ctrl.err = errors.New("device gone")
	a := New(ctrl)

	a.handleKeyEvent(tcell.NewEventKey(tcell.KeyRune, 'n', tcell.ModNone))
	ctrl.wait(t)

	deadline := time.Now().Add(time.Second)
	for {
		a.mu.Lock()
		msg := a.lastErr
		a.mu.Unlock()
		if msg != "" {
			if !strings.Contains(msg, "next failed: device gone") {
				t.Errorf("lastErr = %q", msg)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("error was not recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestObserveTracksRecent(t *testing.T) {
	a := New(newFakeController())
	first, second := track("spotify:track:a", "First"), track("spotify:track:b", "Second")

	a.observe(playback.State{CurrentTrack: &first, IsPlaying: true})
	a.observe(playback.State{CurrentTrack: &first, IsPlaying: false})
	a.observe(playback.State{CurrentTrack: &second, IsPlaying: true})

	recent := a.getRecentTracks()
	if len(recent) != 1 || recent[0].Name != "First" {
		t.Errorf("recent = %+v, want [First]", recent)
	}
}

func TestRecentRingBuffer(t *testing.T) {
	a := New(newFakeController())
	for i := 0; i < maxRecentTracks+2; i++ {
		tr := track("uri", string(rune('A'+i)))
		a.addToRecentTracks(playback.State{CurrentTrack: &tr})
	}

	recent := a.getRecentTracks()
	if len(recent) != maxRecentTracks {
		t.Fatalf("len = %d, want %d", len(recent), maxRecentTracks)
	}
	if recent[0].Name != "G" || recent[maxRecentTracks-1].Name != "C" {
		t.Errorf("order = %s..%s, want G..C", recent[0].Name, recent[maxRecentTracks-1].Name)
	}
}

type fakeLibrary struct {
	liked     []remote.Track
	playlists map[string][]remote.Track
	err       error
}

func (f *fakeLibrary) LikedSongs(context.Context, bool) ([]remote.Track, error) {
	return f.liked, f.err
}

func (f *fakeLibrary) PlaylistTracks(_ context.Context, id string, _ bool) ([]remote.Track, error) {
	return f.playlists[id], f.err
}

func TestLoadThenNavigateLocalQueue(t *testing.T) {
	lib := &fakeLibrary{
		liked: []remote.Track{track("spotify:track:l0", "L0"), track("spotify:track:l1", "L1")},
		playlists: map[string][]remote.Track{
			"mix": {track("spotify:track:m0", "M0"), track("spotify:track:m1", "M1"), track("spotify:track:m2", "M2")},
		},
	}

	tests := []struct {
		name     string
		playlist string
		want     string
	}{
		{"liked", "", "play spotify:track:l0 0/2"},
		{"playlist", "mix", "play spotify:track:m0 0/3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := newFakeController()
			a := New(ctrl)
			a.SetLibrary(lib, tt.playlist)

			for _, r := range "lsn" {
				if got := a.handleKeyEvent(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)); got != nil {
					t.Fatalf("key %q was not consumed", r)
				}
				ctrl.wait(t)
			}

			want := []string{tt.want, "shuffle", "next"}
			if strings.Join(ctrl.calls, ",") != strings.Join(want, ",") {
				t.Errorf("calls = %v, want %v", ctrl.calls, want)
			}
		})
	}
}

func TestLoadWithoutLibrary(t *testing.T) {
	ctrl := newFakeController()
	a := New(ctrl)

	a.handleKeyEvent(tcell.NewEventKey(tcell.KeyRune, 'l', tcell.ModNone))

	deadline := time.Now().Add(time.Second)
	for {
		a.mu.Lock()
		msg := a.lastErr
		a.mu.Unlock()
		if msg != "" {
			if !strings.Contains(msg, "load failed: no library configured") {
				t.Errorf("lastErr = %q", msg)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("error was not recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(ctrl.calls) != 0 {
		t.Errorf("calls = %v, want none", ctrl.calls)
	}
}
