package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/tether/internal/playback"
)

// Engine is the synchronizer surface the daemon drives.
type Engine interface {
	Start(ctx context.Context)
	Stop()
	State() playback.State
	OnChange(fn func(playback.State)) (unsubscribe func())
}

// DeviceSource reports the resolved output device.
type DeviceSource interface {
	Cached() string
}

// Config holds daemon configuration
type Config struct {
	StateFile     string        // Path to state snapshot file
	FlushInterval time.Duration // How often throttled snapshot writes are flushed
}

// Daemon owns the playback engine lifecycle, publishes its state, and runs
// auxiliary loops such as rich presence.
type Daemon struct {
	config  Config
	engine  Engine
	devices DeviceSource
	state   *StateFile
	loops   []func(context.Context)
	closers []func() error
	logger  zerolog.Logger

	mu      sync.Mutex
	pending *playback.State
	notify  chan struct{}
}

// New creates a new Daemon instance
func New(cfg Config, engine Engine, devices DeviceSource, logger zerolog.Logger) *Daemon {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	return &Daemon{
		config:  cfg,
		engine:  engine,
		devices: devices,
		state:   NewStateFile(cfg.StateFile),
		logger:  logger.With().Str("component", "daemon").Logger(),
		notify:  make(chan struct{}, 1),
	}
}

// Go registers a loop that runs for the daemon's lifetime.
func (d *Daemon) Go(loop func(ctx context.Context)) {
	d.loops = append(d.loops, loop)
}

// OnShutdown registers a cleanup run after the engine stops.
func (d *Daemon) OnShutdown(fn func() error) {
	d.closers = append(d.closers, fn)
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Second signal forces exit
		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	// Run the daemon
	if err := d.RunContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// RunContext runs the daemon until ctx is cancelled.
func (d *Daemon) RunContext(ctx context.Context) error {
	d.logger.Info().Msg("Starting daemon")

	unsubscribe := d.engine.OnChange(d.enqueue)
	defer unsubscribe()

	var wg sync.WaitGroup

	// Publish state snapshots
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.publishLoop(ctx)
	}()

	for _, loop := range d.loops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop(ctx)
		}()
	}

	d.engine.Start(ctx)
	<-ctx.Done()
	d.engine.Stop()

	// Wait for all goroutines to finish
	wg.Wait()

	d.shutdown()
	d.logger.Info().Msg("Daemon stopped")
	return ctx.Err()
}

// enqueue keeps only the newest state for the publisher.
func (d *Daemon) enqueue(st playback.State) {
	d.mu.Lock()
	d.pending = &st
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *Daemon) publishLoop(ctx context.Context) {
	ticker := time.NewTicker(d.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.notify:
			d.publishPending()
		case <-ticker.C:
			if err := d.state.Flush(); err != nil {
				d.logger.Debug().Err(err).Msg("Failed to flush state")
			}
		}
	}
}

func (d *Daemon) publishPending() {
	d.mu.Lock()
	st := d.pending
	d.pending = nil
	d.mu.Unlock()

	if st == nil {
		return
	}

	var deviceID string
	if d.devices != nil {
		deviceID = d.devices.Cached()
	}

	before := d.state.Current()
	if err := d.state.Publish(*st, deviceID); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to publish state")
		return
	}

	if uri := trackURI(st); uri != "" && (before.Track == nil || before.Track.URI != uri) {
		d.logger.Info().
			Str("track", st.CurrentTrack.Name).
			Str("artist", st.CurrentTrack.ArtistNames()).
			Msg("Track changed")
	}
}

func trackURI(st *playback.State) string {
	if st.CurrentTrack == nil {
		return ""
	}
	return st.CurrentTrack.URI
}

// shutdown releases resources once the engine has stopped
func (d *Daemon) shutdown() {
	d.logger.Info().Msg("Shutting down daemon")

	for _, closer := range d.closers {
		if err := closer(); err != nil {
			d.logger.Warn().Err(err).Msg("Cleanup failed")
		}
	}

	if err := d.state.Remove(); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to remove state file")
	}
}
