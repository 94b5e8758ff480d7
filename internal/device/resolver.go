// Package device finds and pins this player's output device on the remote
// service.
package device

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jfmyers9/tether/internal/remote"
)

// Lister is the part of the remote client the resolver needs.
type Lister interface {
	Devices(ctx context.Context) ([]remote.Device, error)
}

// Config holds resolver options
type Config struct {
	PlayerName string // Device name prefix this player registers with
	InstanceID string // Per-process token appended to PlayerName

	ReadyWait     time.Duration // How long to wait for a pending ready signal
	Attempts      int           // Device list polls before giving up
	RetryInterval time.Duration // Spacing between device list polls
}

// NewInstanceID returns a short random token identifying this process's
// device among others registered under the same player name.
func NewInstanceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// DefaultConfig returns the default resolver timings.
func DefaultConfig(playerName, instanceID string) Config {
	return Config{
		PlayerName:    playerName,
		InstanceID:    instanceID,
		ReadyWait:     500 * time.Millisecond,
		Attempts:      5,
		RetryInterval: time.Second,
	}
}

// Resolver resolves the device id once per session and caches it.
//
// An id delivered through MarkReady is trusted for the rest of the session:
// the remote device list lags behind registration, so it is never
// re-verified against it.
type Resolver struct {
	cfg    Config
	lister Lister
	logger zerolog.Logger

	mu       sync.Mutex
	deviceID string
	ready    chan struct{} // non-nil while a ready signal is expected

	// after is replaced in tests
	after func(time.Duration) <-chan time.Time
}

// New creates a resolver.
func New(cfg Config, lister Lister, logger zerolog.Logger) *Resolver {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 5
	}
	return &Resolver{
		cfg:    cfg,
		lister: lister,
		logger: logger.With().Str("component", "device").Logger(),
		after:  time.After,
	}
}

// ExpectedName is the exact device name this player registers with.
func (r *Resolver) ExpectedName() string {
	return fmt.Sprintf("%s (%s)", r.cfg.PlayerName, r.cfg.InstanceID)
}

// Cached returns the resolved device id, or "" before resolution.
func (r *Resolver) Cached() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deviceID
}

// ExpectReady records that the local player runtime has started and will
// call MarkReady once it has registered.
func (r *Resolver) ExpectReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deviceID == "" && r.ready == nil {
		r.ready = make(chan struct{})
	}
}

// MarkReady is the ready signal from the local player runtime.
func (r *Resolver) MarkReady(deviceID string) {
	if deviceID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deviceID = deviceID
	if r.ready != nil {
		close(r.ready)
		r.ready = nil
	}
	r.logger.Info().Str("device_id", deviceID).Msg("Player ready")
}

// Resolve returns the device id, discovering it if necessary. It fails with
// remote.ErrDeviceNotFound after the configured attempts.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	r.mu.Lock()
	id, ready := r.deviceID, r.ready
	r.mu.Unlock()

	if id != "" {
		r.logger.Debug().Str("device_id", id).Msg("Using cached device")
		return id, nil
	}

	if ready != nil {
		select {
		case <-ready:
		case <-r.after(r.cfg.ReadyWait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		if id := r.Cached(); id != "" {
			return id, nil
		}
	}

	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-r.after(r.cfg.RetryInterval):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		devices, err := r.lister.Devices(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Int("attempt", attempt).Msg("Failed to list devices")
			continue
		}

		if d, ok := r.match(devices); ok {
			r.mu.Lock()
			if r.deviceID == "" {
				r.deviceID = d.ID
			}
			id = r.deviceID
			r.mu.Unlock()

			r.logger.Info().
				Str("device_id", id).
				Str("name", d.Name).
				Int("attempt", attempt).
				Msg("Resolved device")
			return id, nil
		}

		r.logger.Debug().Int("attempt", attempt).Int("devices", len(devices)).Msg("Device not listed yet")
	}

	return "", remote.ErrDeviceNotFound
}

// match prefers an exact name match and falls back to a device named after
// the player. Devices of other clients are never chosen.
func (r *Resolver) match(devices []remote.Device) (remote.Device, bool) {
	exact := r.ExpectedName()
	for _, d := range devices {
		if d.ID != "" && d.Name == exact {
			return d, true
		}
	}
	for _, d := range devices {
		if d.ID != "" && (d.Name == r.cfg.PlayerName || strings.HasPrefix(d.Name, r.cfg.PlayerName)) {
			return d, true
		}
	}
	return remote.Device{}, false
}
