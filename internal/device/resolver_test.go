package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jfmyers9/tether/internal/remote"
	"github.com/rs/zerolog"
)

type fakeLister struct {
	mu      sync.Mutex
	calls   int
	results [][]remote.Device
	err     error
}

func (f *fakeLister) Devices(ctx context.Context) ([]remote.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	idx := f.calls - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx], nil
}

func (f *fakeLister) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// newTestResolver returns a resolver whose waits complete immediately and
// records the requested durations.
func newTestResolver(t *testing.T, lister Lister) (*Resolver, *[]time.Duration) {
	t.Helper()

	r := New(DefaultConfig("tether", "ab12cd34"), lister, zerolog.Nop())
	var waits []time.Duration
	r.after = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
	return r, &waits
}

func TestResolveCachedMakesNoCalls(t *testing.T) {
	lister := &fakeLister{}
	r, _ := newTestResolver(t, lister)
	r.MarkReady("dev-ready")

	id, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id != "dev-ready" {
		t.Errorf("Resolve() = %q, want dev-ready", id)
	}
	if lister.Calls() != 0 {
		t.Errorf("device list called %d times, want 0", lister.Calls())
	}
}

func TestResolveWaitsForReadySignal(t *testing.T) {
	lister := &fakeLister{}
	r := New(DefaultConfig("tether", "ab12cd34"), lister, zerolog.Nop())
	r.ExpectReady()

	release := make(chan time.Time)
	r.after = func(time.Duration) <-chan time.Time { return release }

	go r.MarkReady("dev-async")

	id, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id != "dev-async" {
		t.Errorf("Resolve() = %q, want dev-async", id)
	}
	if lister.Calls() != 0 {
		t.Errorf("device list called %d times, want 0", lister.Calls())
	}
}

func TestResolveMatching(t *testing.T) {
	tests := []struct {
		name    string
		devices []remote.Device
		want    string
	}{
		{
			name: "exact name preferred over prefix",
			devices: []remote.Device{
				{ID: "other-instance", Name: "tether (ffffffff)"},
				{ID: "mine", Name: "tether (ab12cd34)"},
			},
			want: "mine",
		},
		{
			name: "bare player name",
			devices: []remote.Device{
				{ID: "phone", Name: "Pixel 8"},
				{ID: "bare", Name: "tether"},
			},
			want: "bare",
		},
		{
			name: "prefix fallback",
			devices: []remote.Device{
				{ID: "laptop", Name: "tether on laptop"},
			},
			want: "laptop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(t, &fakeLister{results: [][]remote.Device{tt.devices}})

			id, err := r.Resolve(context.Background())
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if id != tt.want {
				t.Errorf("Resolve() = %q, want %q", id, tt.want)
			}
			if r.Cached() != tt.want {
				t.Errorf("Cached() = %q, want %q", r.Cached(), tt.want)
			}
		})
	}
}

func TestResolveNeverPicksForeignDevice(t *testing.T) {
	lister := &fakeLister{results: [][]remote.Device{{
		{ID: "tv", Name: "Living Room TV", IsActive: true},
		{ID: "phone", Name: "My tether phone"},
	}}}
	r, waits := newTestResolver(t, lister)

	_, err := r.Resolve(context.Background())
	if !errors.Is(err, remote.ErrDeviceNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrDeviceNotFound", err)
	}
	if lister.Calls() != 5 {
		t.Errorf("device list called %d times, want 5", lister.Calls())
	}
	if len(*waits) != 4 {
		t.Fatalf("waited %d times, want 4", len(*waits))
	}
	for _, w := range *waits {
		if w != time.Second {
			t.Errorf("retry spacing = %v, want 1s", w)
		}
	}
}

func TestResolveRetriesUntilListed(t *testing.T) {
	lister := &fakeLister{results: [][]remote.Device{
		nil,
		{{ID: "phone", Name: "Pixel 8"}},
		{{ID: "mine", Name: "tether (ab12cd34)"}},
	}}
	r, _ := newTestResolver(t, lister)

	id, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id != "mine" || lister.Calls() != 3 {
		t.Errorf("Resolve() = %q after %d calls", id, lister.Calls())
	}

	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if lister.Calls() != 3 {
		t.Errorf("second Resolve() listed devices again")
	}
}

func TestResolveListErrors(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection reset")}
	r, _ := newTestResolver(t, lister)

	if _, err := r.Resolve(context.Background()); !errors.Is(err, remote.ErrDeviceNotFound) {
		t.Errorf("Resolve() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestResolveContextCancelled(t *testing.T) {
	lister := &fakeLister{}
	r := New(DefaultConfig("tether", "ab12cd34"), lister, zerolog.Nop())
	r.after = func(time.Duration) <-chan time.Time { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Resolve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want context.Canceled", err)
	}
}

func TestNewInstanceID(t *testing.T) {
	a, b := NewInstanceID(), NewInstanceID()
	if len(a) != 8 {
		t.Errorf("NewInstanceID() = %q, want 8 characters", a)
	}
	if a == b {
		t.Errorf("NewInstanceID() returned %q twice", a)
	}
}
