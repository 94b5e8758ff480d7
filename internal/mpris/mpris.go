//go:build linux

package mpris

import (
	"context"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/jfmyers9/tether/internal/bridge"
	"github.com/jfmyers9/tether/internal/remote"
)

// Adapter connects the synchronizer to MPRIS over D-Bus. The bus name is
// claimed on StartService and released on StopService.
type Adapter struct {
	name    string
	ctrl    Controller
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.Mutex
	server *server.Server
	events *events.EventHandler
}

// New creates an adapter publishing as org.mpris.MediaPlayer2.<name>.
func New(name string, ctrl Controller, logger zerolog.Logger) *Adapter {
	return &Adapter{
		name:    name,
		ctrl:    ctrl,
		timeout: 10 * time.Second,
		logger:  logger.With().Str("component", "mpris").Logger(),
	}
}

// StartService claims the bus name.
func (a *Adapter) StartService(_, _ string, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return a.emit(func(e *events.EventHandler) error { return e.Player.OnTitle() })
	}

	s := server.NewServer(a.name, &rootAdapter{identity: a.name}, &playerAdapter{a: a})
	a.server = s
	a.events = events.NewEventHandler(s)

	go func() {
		if err := s.Listen(); err != nil {
			a.logger.Warn().Err(err).Msg("MPRIS server stopped")
		}
	}()
	a.logger.Debug().Str("name", a.name).Msg("MPRIS service started")
	return nil
}

// UpdateMetadata announces a new track.
func (a *Adapter) UpdateMetadata(_, _ string, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emit(func(e *events.EventHandler) error { return e.Player.OnTitle() })
}

// UpdatePlaybackState announces a play state change.
func (a *Adapter) UpdatePlaybackState(_ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emit(func(e *events.EventHandler) error { return e.Player.OnPlayPause() })
}

// StopService releases the bus name.
func (a *Adapter) StopService() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return nil
	}
	err := a.server.Stop()
	a.server = nil
	a.events = nil
	a.logger.Debug().Msg("MPRIS service stopped")
	return err
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.StopService()
}

func (a *Adapter) emit(fn func(*events.EventHandler) error) error {
	if a.events == nil {
		return nil
	}
	return fn(a.events)
}

func (a *Adapter) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct {
	identity string
}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - daemon manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return r.identity, nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"spotify"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the
// optional loop and shuffle interfaces.
type playerAdapter struct {
	a *Adapter
}

func (p *playerAdapter) Next() error {
	ctx, cancel := p.a.callContext()
	defer cancel()
	return p.a.ctrl.PlayNext(ctx)
}

func (p *playerAdapter) Previous() error {
	ctx, cancel := p.a.callContext()
	defer cancel()
	return p.a.ctrl.PlayPrevious(ctx)
}

func (p *playerAdapter) Pause() error {
	if !p.a.ctrl.State().IsPlaying {
		return nil
	}
	return p.PlayPause()
}

func (p *playerAdapter) PlayPause() error {
	ctx, cancel := p.a.callContext()
	defer cancel()
	return p.a.ctrl.TogglePlayPause(ctx)
}

func (p *playerAdapter) Stop() error {
	return p.Pause()
}

func (p *playerAdapter) Play() error {
	if p.a.ctrl.State().IsPlaying {
		return nil
	}
	return p.PlayPause()
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	pos := positionOf(p.a.ctrl.State()) + time.Duration(offset)*time.Microsecond
	return p.seekTo(max(pos, 0))
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	return p.seekTo(time.Duration(position) * time.Microsecond)
}

func (p *playerAdapter) seekTo(pos time.Duration) error {
	ctx, cancel := p.a.callContext()
	defer cancel()
	return p.a.ctrl.Seek(ctx, pos)
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	return playbackStatus(p.a.ctrl.State()), nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	track := p.a.ctrl.State().CurrentTrack
	if track == nil {
		return types.Metadata{}, nil
	}

	return types.Metadata{
		TrackId: dbus.ObjectPath(trackObjectPath(track.URI)),
		Length:  types.Microseconds(track.Duration().Microseconds()),
		Title:   track.Name,
		Artist: lo.Map(track.Artists, func(a remote.Artist, _ int) string {
			return a.Name
		}),
		Album:  track.Album.Name,
		ArtUrl: track.Album.ImageURL,
	}, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Position() (int64, error) {
	return positionOf(p.a.ctrl.State()).Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return len(p.a.ctrl.State().Queue) > 0, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return len(p.a.ctrl.State().Queue) > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.a.ctrl.State().CurrentTrack != nil, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return p.a.ctrl.State().CurrentTrack != nil, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	return loopStatus(p.a.ctrl.State().Repeat), nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	mode, ok := repeatMode(status)
	if !ok {
		return nil
	}
	ctx, cancel := p.a.callContext()
	defer cancel()
	return setRepeat(ctx, p.a.ctrl, mode)
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.a.ctrl.State().Shuffle, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	ctx, cancel := p.a.callContext()
	defer cancel()
	return setShuffle(ctx, p.a.ctrl, shuffle)
}

var _ bridge.Bridge = (*Adapter)(nil)
