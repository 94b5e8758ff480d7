package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/jfmyers9/tether/internal/playback"
	"github.com/jfmyers9/tether/internal/remote"
)

const (
	maxRecentTracks = 5
	maxQueueRows    = 8
	seekStep        = 10 * time.Second
)

// Config holds TUI configuration options
type Config struct {
	RefreshRate    time.Duration // How often to refresh the display
	CommandTimeout time.Duration // Deadline for a key-triggered command
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate:    250 * time.Millisecond,
		CommandTimeout: 10 * time.Second,
	}
}

// Controller is the playback surface the keys drive.
type Controller interface {
	State() playback.State
	OnChange(fn func(playback.State)) (unsubscribe func())
	TogglePlayPause(ctx context.Context) error
	PlayNext(ctx context.Context) error
	PlayPrevious(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	ToggleShuffle(ctx context.Context) error
	CycleRepeat(ctx context.Context) error
	PlayTrack(ctx context.Context, track remote.Track, index int, all []remote.Track) error
}

// Library loads the track lists the load key plays from.
type Library interface {
	LikedSongs(ctx context.Context, force bool) ([]remote.Track, error)
	PlaylistTracks(ctx context.Context, playlistID string, force bool) ([]remote.Track, error)
}

// RecentTrack stores info about a recently played track
type RecentTrack struct {
	Name     string
	Artist   string
	PlayedAt time.Time
}

// App is the TUI application for displaying and driving playback
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	progress   *tview.TextView
	status     *tview.TextView
	queue      *tview.TextView
	recent     *tview.TextView
	help       *tview.TextView

	config Config
	ctrl   Controller

	library    Library
	playlistID string // Empty loads Liked Songs

	// Mutex protects shared state written by the change listener and
	// read by the ticker goroutine.
	mu sync.Mutex

	// Current state (guarded by mu)
	state   playback.State
	lastURI string
	lastErr string

	// Ring buffer for recent tracks (avoids allocation on every track change)
	recentBuf   [maxRecentTracks]RecentTrack
	recentCount int // total tracks added (recentCount % maxRecentTracks = next write index)

	// Last-rendered content for change detection
	lastNowPlaying string
	lastProgress   string
	lastStatus     string
	lastQueue      string
	lastRecent     string

	// Cached progress bar width to stabilize change detection.
	// Updated only when GetInnerRect returns a positive value.
	lastBarWidth int

	// Context cancel function
	cancelFunc context.CancelFunc
}

// New creates a new TUI application with default config
func New(ctrl Controller) *App {
	return NewWithConfig(ctrl, DefaultConfig())
}

// NewWithConfig creates a new TUI application with the given config
func NewWithConfig(ctrl Controller, cfg Config) *App {
	a := &App{
		app:    tview.NewApplication(),
		config: cfg,
		ctrl:   ctrl,
		state:  playback.State{CurrentIndex: -1},
	}
	a.setupUI()
	return a
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	// Now playing panel
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	// Progress bar
	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	// Shuffle, repeat and engine status
	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.status.SetBorder(true).
		SetTitle(" Status ").
		SetTitleAlign(tview.AlignLeft)

	// Upcoming tracks
	a.queue = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.queue.SetBorder(true).
		SetTitle(" Up Next ").
		SetTitleAlign(tview.AlignLeft)

	// Recent tracks
	a.recent = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.recent.SetBorder(true).
		SetTitle(" Recent ").
		SetTitleAlign(tview.AlignLeft)

	// Key help
	a.help = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]q:quit  l:load  space:play/pause  n:next  p:prev  s:shuffle  r:repeat  ←/→:seek[-]")

	// Top row: now playing (takes most space)
	// Middle row: progress bar
	// Bottom row: status | up next | recent
	// Footer: key help

	bottomRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.status, 0, 1, false).
		AddItem(a.queue, 0, 2, false).
		AddItem(a.recent, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 0, 3, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(bottomRow, maxQueueRows+2, 1, false).
		AddItem(a.help, 1, 1, false)

	// Handle keyboard input
	a.app.SetInputCapture(a.handleKeyEvent)

	a.app.SetRoot(flex, true)
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyLeft:
		a.seekBy(-seekStep)
		return nil
	case tcell.KeyRight:
		a.seekBy(seekStep)
		return nil
	}

	switch event.Rune() {
	case 'q', 'Q':
		a.Stop()
		return nil
	case ' ':
		a.command("play/pause", a.ctrl.TogglePlayPause)
		return nil
	case 'n', 'N':
		a.command("next", a.ctrl.PlayNext)
		return nil
	case 'p', 'P':
		a.command("previous", a.ctrl.PlayPrevious)
		return nil
	case 's', 'S':
		a.command("shuffle", a.ctrl.ToggleShuffle)
		return nil
	case 'r', 'R':
		a.command("repeat", a.ctrl.CycleRepeat)
		return nil
	case 'l', 'L':
		a.command("load", a.loadLibrary)
		return nil
	}
	return event
}

// SetLibrary sets where the load key takes its tracks from: the playlist
// when playlistID is set, Liked Songs otherwise.
func (a *App) SetLibrary(lib Library, playlistID string) {
	a.library = lib
	a.playlistID = playlistID
}

func (a *App) loadLibrary(ctx context.Context) error {
	if a.library == nil {
		return fmt.Errorf("no library configured")
	}

	var tracks []remote.Track
	var err error
	if a.playlistID != "" {
		tracks, err = a.library.PlaylistTracks(ctx, a.playlistID, false)
	} else {
		tracks, err = a.library.LikedSongs(ctx, false)
	}
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return fmt.Errorf("no tracks to play")
	}
	return a.ctrl.PlayTrack(ctx, tracks[0], 0, tracks)
}

func (a *App) seekBy(delta time.Duration) {
	st := a.ctrl.State()
	if st.CurrentTrack == nil {
		return
	}
	pos := time.Duration(st.Progress.CurrentTime*float64(time.Second)) + delta
	pos = min(max(pos, 0), st.CurrentTrack.Duration())
	a.command("seek", func(ctx context.Context) error {
		return a.ctrl.Seek(ctx, pos)
	})
}

// command runs fn off the UI goroutine. Its error is shown in the status
// panel until the next command.
func (a *App) command(name string, fn func(context.Context) error) {
	a.mu.Lock()
	a.lastErr = ""
	a.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.CommandTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			a.mu.Lock()
			a.lastErr = fmt.Sprintf("%s failed: %v", name, err)
			a.mu.Unlock()
		}
	}()
}

// Run starts the TUI and blocks until it is closed or ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	// Create cancellable context
	ctx, a.cancelFunc = context.WithCancel(ctx)
	defer a.cancelFunc()

	unsubscribe := a.ctrl.OnChange(a.observe)
	defer unsubscribe()
	a.observe(a.ctrl.State())

	// Start update goroutine
	go a.refreshLoop(ctx)

	// Run application
	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// observe records a state change without redrawing. The ticker is the only
// source of redraws.
func (a *App) observe(st playback.State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	uri := ""
	if st.CurrentTrack != nil {
		uri = st.CurrentTrack.URI
	}
	if uri != a.lastURI {
		if a.state.CurrentTrack != nil && a.lastURI != "" {
			a.addToRecentTracks(a.state)
		}
		a.lastURI = uri
	}
	a.state = st
}

// refreshLoop redraws on a single ticker to prevent queued redraw buildup.
func (a *App) refreshLoop(ctx context.Context) {
	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = 250 * time.Millisecond
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

// addToRecentTracks adds the current track of st to the ring buffer.
// Must be called with a.mu held.
func (a *App) addToRecentTracks(st playback.State) {
	if st.CurrentTrack == nil {
		return
	}

	// Write into ring buffer at the current position
	idx := a.recentCount % maxRecentTracks
	a.recentBuf[idx] = RecentTrack{
		Name:     st.CurrentTrack.Name,
		Artist:   st.CurrentTrack.ArtistNames(),
		PlayedAt: time.Now(),
	}
	a.recentCount++
}

// getRecentTracks returns recent tracks in most-recent-first order.
// Must be called with a.mu held.
func (a *App) getRecentTracks() []RecentTrack {
	n := min(a.recentCount, maxRecentTracks)
	result := make([]RecentTrack, n)
	for i := 0; i < n; i++ {
		// Walk backwards from the most recently written slot
		idx := (a.recentCount - 1 - i) % maxRecentTracks
		result[i] = a.recentBuf[idx]
	}
	return result
}

// refresh updates all UI components
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.setIfChanged(a.nowPlaying, &a.lastNowPlaying, renderNowPlaying(a.state))
		a.updateProgress()
		a.setIfChanged(a.status, &a.lastStatus, renderStatus(a.state, a.lastErr))
		a.setIfChanged(a.queue, &a.lastQueue, renderQueue(a.state, maxQueueRows))
		a.setIfChanged(a.recent, &a.lastRecent, renderRecent(a.getRecentTracks()))
	})
}

func (a *App) setIfChanged(view *tview.TextView, last *string, text string) {
	if text != *last {
		*last = text
		view.SetText(text)
	}
}

// updateProgress updates the progress bar
func (a *App) updateProgress() {
	_, _, width, _ := a.progress.GetInnerRect()
	barWidth := width - 14 // Account for time display
	// Only update cached width when GetInnerRect returns a positive value,
	// avoiding flicker from transient zero-width during layout.
	if barWidth > 0 {
		a.lastBarWidth = barWidth
	}
	if a.lastBarWidth < 10 {
		a.lastBarWidth = 10
	}
	a.setIfChanged(a.progress, &a.lastProgress, renderProgress(a.state, a.lastBarWidth))
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}
