package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/tether/internal/playback"
)

type fakeEngine struct {
	mu        sync.Mutex
	started   chan struct{}
	stopped   bool
	listeners []func(playback.State)
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{started: make(chan struct{})}
}

func (e *fakeEngine) Start(context.Context) { close(e.started) }

func (e *fakeEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
}

func (e *fakeEngine) State() playback.State { return playback.State{CurrentIndex: -1} }

func (e *fakeEngine) OnChange(fn func(playback.State)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
	return func() {}
}

func (e *fakeEngine) emit(st playback.State) {
	e.mu.Lock()
	listeners := e.listeners
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(st)
	}
}

type staticDevice string

func (d staticDevice) Cached() string { return string(d) }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunContextPublishesAndCleansUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	engine := newFakeEngine()
	d := New(Config{StateFile: path}, engine, staticDevice("device-1"), zerolog.Nop())

	loopDone := make(chan struct{})
	d.Go(func(ctx context.Context) {
		<-ctx.Done()
		close(loopDone)
	})

	closed := false
	d.OnShutdown(func() error {
		closed = true
		return errors.New("ignored")
	})

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- d.RunContext(ctx) }()

	<-engine.started
	engine.emit(playingState("spotify:track:a", 3))

	waitFor(t, func() bool {
		snap, err := ReadSnapshot(path)
		return err == nil && snap.Track != nil && snap.DeviceID == "device-1"
	})

	cancel()
	select {
	case err := <-runErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunContext() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunContext did not return after cancel")
	}

	select {
	case <-loopDone:
	default:
		t.Error("registered loop was not stopped")
	}
	if !engine.stopped {
		t.Error("engine was not stopped")
	}
	if !closed {
		t.Error("shutdown hook was not run")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("state file was not removed on shutdown")
	}
}

func TestEnqueueKeepsNewest(t *testing.T) {
	d := New(Config{StateFile: filepath.Join(t.TempDir(), "state.json")}, newFakeEngine(), nil, zerolog.Nop())

	d.enqueue(playingState("spotify:track:a", 1))
	d.enqueue(playingState("spotify:track:b", 2))

	d.publishPending()

	if got := d.state.Current().Track.URI; got != "spotify:track:b" {
		t.Errorf("published track = %q, want spotify:track:b", got)
	}

	// Nothing pending publishes nothing
	d.publishPending()
	if got := d.state.Current().Track.URI; got != "spotify:track:b" {
		t.Errorf("published track = %q after empty publish", got)
	}
}
