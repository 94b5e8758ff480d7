package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/tether/internal/auth"
	"github.com/jfmyers9/tether/internal/bridge"
	"github.com/jfmyers9/tether/internal/catalog"
	"github.com/jfmyers9/tether/internal/clock"
	"github.com/jfmyers9/tether/internal/config"
	"github.com/jfmyers9/tether/internal/daemon"
	"github.com/jfmyers9/tether/internal/device"
	"github.com/jfmyers9/tether/internal/playback"
	"github.com/jfmyers9/tether/internal/queue"
	spotifyclient "github.com/jfmyers9/tether/internal/remote/spotify"
	"github.com/jfmyers9/tether/internal/storage"
)

// session holds the collaborators shared by every command that talks to
// Spotify.
type session struct {
	cfg      *config.Config
	db       *storage.DB
	accounts *auth.Accounts
	client   *spotifyclient.Client
	devices  *device.Resolver
	logger   zerolog.Logger
}

// openSession loads configuration, opens the database, and builds the
// Spotify client and device resolver.
func openSession(logger zerolog.Logger) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Spotify.ClientID == "" {
		return nil, fmt.Errorf("Spotify client id not configured. Run 'tether auth' first")
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := storage.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	accounts := auth.NewAccounts(db.Tokens(), logger)
	accounts.Register(auth.ServiceSpotify, auth.SpotifyConfig(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURL))

	client := spotifyclient.New(
		accounts.TokenSource(context.Background(), auth.ServiceSpotify),
		spotifyclient.WithRequestsPerSecond(cfg.RequestsPerSecond),
		spotifyclient.WithLogger(logger),
	)

	instanceID := cfg.Player.InstanceID
	if instanceID == "" {
		instanceID = device.NewInstanceID()
	}
	devices := device.New(device.DefaultConfig(cfg.Player.Name, instanceID), client, logger)
	devices.MarkReady(cfg.Player.DeviceID)

	return &session{
		cfg:      cfg,
		db:       db,
		accounts: accounts,
		client:   client,
		devices:  devices,
		logger:   logger,
	}, nil
}

// engine builds a synchronizer over the session's client and device.
func (s *session) engine(b bridge.Bridge) *playback.Synchronizer {
	cfg := playback.DefaultConfig()
	if s.cfg.PollIntervalMs > 0 {
		cfg.PollInterval = time.Duration(s.cfg.PollIntervalMs) * time.Millisecond
	}
	if s.cfg.ProgressIntervalMs > 0 {
		cfg.ProgressInterval = time.Duration(s.cfg.ProgressIntervalMs) * time.Millisecond
	}

	return playback.New(cfg, playback.Deps{
		Client:      s.client,
		Devices:     s.devices,
		Queue:       queue.New(nil),
		Scheduler:   clock.Real{},
		Preferences: s.db.Preferences(),
		Bridge:      b,
		Logger:      s.logger,
	})
}

// catalog returns the cached catalog reader.
func (s *session) catalog() *catalog.Catalog {
	return catalog.New(s.client, s.cache(), s.logger)
}

func (s *session) cache() *storage.Cache {
	return s.db.Cache(time.Duration(s.cfg.CacheTTLMinutes)*time.Minute, s.logger)
}

// adoptRunningDevice reuses the device published by a running daemon when
// none is configured.
func (s *session) adoptRunningDevice() {
	if s.devices.Cached() != "" {
		return
	}
	snap, err := daemon.ReadSnapshot(s.cfg.StatePath())
	if err != nil || snap == nil {
		return
	}
	s.devices.MarkReady(snap.DeviceID)
}

func (s *session) Close() error {
	return s.db.Close()
}
