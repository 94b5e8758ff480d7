// Package discord mirrors the current track into Discord Rich Presence over
// the local IPC socket.
package discord

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/tether/internal/bridge"
)

// update is one metadata bridge call queued for the presence loop.
type update struct {
	title, artist string
	playing       bool
	stop          bool
}

type rpcClient interface {
	SetActivity(Activity) error
	Close() error
}

// Presence manages Discord Rich Presence updates. Its bridge methods only
// queue work; Run talks to Discord.
type Presence struct {
	appID   string
	logger  zerolog.Logger
	client  rpcClient
	connect func(string) (rpcClient, error)
	now     func() time.Time
	elapsed func() time.Duration
	updates chan update
	last    lastActivity
}

type lastActivity struct {
	title, artist string
	playing       bool
}

func New(appID string, logger zerolog.Logger) *Presence {
	return &Presence{
		appID:  appID,
		logger: logger.With().Str("component", "discord").Logger(),
		connect: func(appID string) (rpcClient, error) {
			return ipcConnect(appID)
		},
		now:     time.Now,
		updates: make(chan update, 16),
	}
}

// SetPosition sets where the activity start time is measured back from, so
// Discord's elapsed timer matches the track position. Call it before Run.
func (p *Presence) SetPosition(fn func() time.Duration) {
	p.elapsed = fn
}

// Run consumes queued updates and sets Discord Rich Presence.
// Connects lazily on first playing track. If Discord isn't
// running, logs the error and retries on the next update.
func (p *Presence) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.close()
			return
		case u := <-p.updates:
			p.handle(u)
		}
	}
}

// StartService queues the first track.
func (p *Presence) StartService(title, artist string, isPlaying bool) error {
	return p.enqueue(update{title: title, artist: artist, playing: isPlaying})
}

// UpdateMetadata queues a track change.
func (p *Presence) UpdateMetadata(title, artist string, isPlaying bool) error {
	return p.enqueue(update{title: title, artist: artist, playing: isPlaying})
}

// UpdatePlaybackState queues a play state change for the last track.
func (p *Presence) UpdatePlaybackState(isPlaying bool) error {
	return p.enqueue(update{playing: isPlaying})
}

// StopService queues clearing the presence.
func (p *Presence) StopService() error {
	return p.enqueue(update{stop: true})
}

// enqueue never blocks the caller. When the loop falls behind the oldest
// queued update is dropped.
func (p *Presence) enqueue(u update) error {
	for {
		select {
		case p.updates <- u:
			return nil
		default:
		}
		select {
		case <-p.updates:
			p.logger.Debug().Msg("Dropped stale presence update")
		default:
		}
	}
}

func (p *Presence) handle(u update) {
	if u.stop {
		if p.last.playing {
			p.clearActivity()
		}
		p.last = lastActivity{}
		return
	}

	cur := p.last
	if u.title != "" {
		cur.title, cur.artist = u.title, u.artist
	}
	cur.playing = u.playing

	if !cur.playing || cur.title == "" {
		if p.last.playing {
			p.clearActivity()
		}
		p.last = cur
		return
	}
	if cur == p.last {
		return
	}

	if err := p.ensureConnected(); err != nil {
		p.logger.Warn().Err(err).Msg("Discord not available")
		return
	}

	start := p.now()
	if p.elapsed != nil {
		start = start.Add(-p.elapsed())
	}
	startUnix := start.Unix()
	err := p.client.SetActivity(Activity{
		Type:    2, // Listening
		Name:    "Spotify",
		Details: cur.title,
		State:   "by " + cur.artist,
		Timestamps: &Timestamps{
			Start: &startUnix,
		},
		Assets: &Assets{
			LargeImage: "tether",
			LargeText:  "tether",
		},
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to set activity")
		p.close()
		return
	}
	p.last = cur
}

func (p *Presence) ensureConnected() error {
	if p.client != nil {
		return nil
	}
	client, err := p.connect(p.appID)
	if err != nil {
		return err
	}
	p.logger.Info().Msg("Connected to Discord")
	p.client = client
	return nil
}

func (p *Presence) clearActivity() {
	if p.client == nil {
		return
	}
	if err := p.client.SetActivity(Activity{}); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to clear activity")
		p.close()
	}
}

func (p *Presence) close() {
	if p.client == nil {
		return
	}
	if err := p.client.Close(); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to close Discord connection")
	}
	p.client = nil
}

var _ bridge.Bridge = (*Presence)(nil)
