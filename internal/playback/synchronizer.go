// Package playback keeps a local view of what is playing in sync with the
// remote playback service.
//
// The Synchronizer polls the remote once a second, applies user commands
// optimistically, and reconciles each snapshot against the commands still in
// flight. Play order is owned locally: the remote's shuffle flag is forced
// off and never read back.
package playback

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfmyers9/tether/internal/bridge"
	"github.com/jfmyers9/tether/internal/clock"
	"github.com/jfmyers9/tether/internal/queue"
	"github.com/jfmyers9/tether/internal/remote"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Config holds synchronizer timings
type Config struct {
	ServiceType       string        // Reported in State.ServiceType
	PollInterval      time.Duration // Remote snapshot period
	ProgressInterval  time.Duration // Interpolation period
	ReconcileDelay    time.Duration // Poll delay after a play, skip or seek
	ToggleSettle      time.Duration // Play/pause suppression window
	ShuffleSettle     time.Duration // Shuffle suppression window
	RepeatSettle      time.Duration // Repeat suppression window
	PreferencesSettle time.Duration // Repeat readback suppression after preferences are applied
	PreferencesSync   time.Duration // Saved preference reload period, 0 disables
	MaxPlayURIs       int           // Largest URI list sent in one play command
	CallTimeout       time.Duration // Timeout for background remote calls
}

// DefaultConfig returns the default synchronizer timings.
func DefaultConfig() Config {
	return Config{
		ServiceType:       "spotify",
		PollInterval:      time.Second,
		ProgressInterval:  100 * time.Millisecond,
		ReconcileDelay:    500 * time.Millisecond,
		ToggleSettle:      1500 * time.Millisecond,
		ShuffleSettle:     2 * time.Second,
		RepeatSettle:      2 * time.Second,
		PreferencesSettle: 3 * time.Second,
		PreferencesSync:   5 * time.Second,
		MaxPlayURIs:       50,
		CallTimeout:       10 * time.Second,
	}
}

// DeviceResolver resolves and caches this player's output device.
type DeviceResolver interface {
	Resolve(ctx context.Context) (string, error)
	Cached() string
}

// Deps are the collaborators a Synchronizer drives.
type Deps struct {
	Client      remote.Client
	Devices     DeviceResolver
	Queue       *queue.Manager
	Scheduler   clock.Scheduler
	Preferences PreferenceStore // optional
	Bridge      bridge.Bridge   // optional
	Logger      zerolog.Logger
}

// flag names an in-flight command whose optimistic result must not be
// overwritten by a poll.
type flag int

const (
	flagTogglePlayPause flag = iota
	flagToggleShuffle
	flagCycleRepeat
	flagJustAppliedPreferences
	numFlags
)

// Synchronizer owns the canonical playback State.
type Synchronizer struct {
	cfg      Config
	client   remote.Client
	devices  DeviceResolver
	queue    *queue.Manager
	sched    clock.Scheduler
	prefs    PreferenceStore
	logger   zerolog.Logger
	store    *Store
	governor *Governor
	progress *Interpolator

	// mu guards the fields below. It is taken inside Store.Update via apply,
	// never the other way around.
	mu            sync.Mutex
	flags         [numFlags]bool
	flagSeq       [numFlags]uint64
	flagCancel    [numFlags]clock.Cancel
	playGen       uint64 // bumped on every optimistic IsPlaying write
	repeatGen     uint64 // bumped on every optimistic Repeat write
	navigatedAway bool
	watchers      []*bridgeWatcher
	closed        bool
	loops         []clock.Cancel

	polling atomic.Bool
}

// New creates a Synchronizer. Nothing runs until Start.
func New(cfg Config, deps Deps) *Synchronizer {
	if cfg.MaxPlayURIs <= 0 {
		cfg.MaxPlayURIs = 50
	}
	if deps.Queue == nil {
		deps.Queue = queue.New(nil)
	}
	if deps.Scheduler == nil {
		deps.Scheduler = clock.Real{}
	}

	logger := deps.Logger.With().Str("component", "playback").Logger()
	s := &Synchronizer{
		cfg:      cfg,
		client:   deps.Client,
		devices:  deps.Devices,
		queue:    deps.Queue,
		sched:    deps.Scheduler,
		prefs:    deps.Preferences,
		logger:   logger,
		store:    NewStore(State{CurrentIndex: -1}),
		governor: NewGovernor(deps.Scheduler.Now),
		progress: NewInterpolator(deps.Scheduler.Now),
	}
	if deps.Bridge != nil {
		s.AddBridge(deps.Bridge)
	}
	return s
}

// AddBridge attaches a metadata bridge. Bridges that drive the synchronizer
// themselves, such as MPRIS, are attached after construction.
func (s *Synchronizer) AddBridge(b bridge.Bridge) {
	w := &bridgeWatcher{bridge: b, logger: s.logger}
	s.mu.Lock()
	s.watchers = append(s.watchers, w)
	s.mu.Unlock()
	s.store.OnChange(w.observe)
}

// State returns a copy of the canonical state.
func (s *Synchronizer) State() State {
	return s.store.Get()
}

// OnChange registers a listener for state changes.
func (s *Synchronizer) OnChange(fn func(State)) (unsubscribe func()) {
	return s.store.OnChange(fn)
}

// Governor exposes the backoff state for status displays.
func (s *Synchronizer) Governor() *Governor {
	return s.governor
}

// Start restores saved preferences, polls once, and starts the poll and
// interpolation loops.
func (s *Synchronizer) Start(ctx context.Context) {
	s.RestorePreferences(ctx)

	if deviceID := s.devices.Cached(); deviceID != "" {
		s.applyPreferences(ctx, deviceID)
	}

	s.mu.Lock()
	s.closed = false
	s.loops = append(s.loops,
		s.sched.Every(s.cfg.PollInterval, s.poll),
		s.sched.Every(s.cfg.ProgressInterval, s.interpolate),
	)
	if s.cfg.PreferencesSync > 0 {
		s.loops = append(s.loops, s.sched.Every(s.cfg.PreferencesSync, s.syncPreferences))
	}
	s.mu.Unlock()

	s.logger.Info().
		Dur("poll_interval", s.cfg.PollInterval).
		Dur("progress_interval", s.cfg.ProgressInterval).
		Msg("Starting synchronizer")

	s.poll()
}

// RestorePreferences loads the saved shuffle and repeat preferences into
// the state without pushing them to the device.
func (s *Synchronizer) RestorePreferences(ctx context.Context) Preferences {
	prefs := LoadPreferences(ctx, s.prefs)
	s.queue.SetShuffle(prefs.Shuffle)
	s.apply(func(st *State) {
		st.Shuffle = prefs.Shuffle
		st.Repeat = prefs.Repeat
		s.repeatGen++
	})
	s.logger.Info().
		Bool("shuffle", prefs.Shuffle).
		Str("repeat", prefs.Repeat.String()).
		Msg("Restored preferences")
	return prefs
}

// syncPreferences adopts a shuffle preference saved by another process,
// such as a one-shot CLI command. A toggle in flight here wins.
func (s *Synchronizer) syncPreferences() {
	if s.prefs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CallTimeout)
	defer cancel()

	prefs := LoadPreferences(ctx, s.prefs)
	if s.store.Get().Shuffle == prefs.Shuffle {
		return
	}

	adopted := false
	s.apply(func(st *State) {
		if s.flags[flagToggleShuffle] || st.Shuffle == prefs.Shuffle {
			return
		}
		st.Queue, st.CurrentIndex = s.queue.ApplyShuffleToggle(prefs.Shuffle, st.CurrentTrack, st.CurrentIndex)
		st.Shuffle = prefs.Shuffle
		adopted = true
	})
	if adopted {
		s.logger.Info().Bool("shuffle", prefs.Shuffle).Msg("Adopted saved shuffle preference")
	}
}

// Stop cancels the loops and pending settle timers. In-flight remote calls
// are left to finish.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	s.closed = true
	for _, cancel := range s.loops {
		cancel()
	}
	s.loops = nil
	for f := range s.flagCancel {
		if s.flagCancel[f] != nil {
			s.flagCancel[f]()
			s.flagCancel[f] = nil
		}
		s.flags[f] = false
	}
	s.mu.Unlock()

	s.logger.Info().Msg("Synchronizer stopped")
}

// PlayTrack plays track on this player's device. When all is given it
// becomes the queue and playback continues through it in the active order;
// index is track's position in all. Errors are returned to the caller.
func (s *Synchronizer) PlayTrack(ctx context.Context, track remote.Track, index int, all []remote.Track) error {
	deviceID, err := s.devices.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve device: %w", err)
	}

	var (
		active   []remote.Track
		startIdx int
		uris     []string
	)
	saved := s.queue.Save()
	if all != nil {
		if index < 0 || index >= len(all) || all[index].URI != track.URI {
			index = indexOf(all, track.URI)
		}
		if index < 0 {
			return fmt.Errorf("track %s is not in the play list", track.URI)
		}

		s.queue.SetQueue(all, &track)
		active = s.queue.Active()
		startIdx = index
		if s.queue.IsShuffled() {
			startIdx = 0
		}
		order := s.queue.PlayOrderFrom(startIdx)
		uris = lo.Map(order[:min(len(order), s.cfg.MaxPlayURIs)], func(t remote.Track, _ int) string { return t.URI })
	} else {
		current := s.store.Get().Queue
		if i := indexOf(current, track.URI); i >= 0 {
			active, startIdx = current, i
		} else {
			active, startIdx = []remote.Track{track}, 0
			s.queue.SetQueue(active, &track)
		}
		uris = []string{track.URI}
	}

	s.applyPreferences(ctx, deviceID)
	s.setBuffering(true)

	if err := s.client.Play(ctx, remote.PlayOptions{DeviceID: deviceID, URIs: uris}); err != nil {
		s.observe(err)
		s.queue.Restore(saved)
		s.setBuffering(false)
		return fmt.Errorf("failed to play %s: %w", track.URI, err)
	}

	s.apply(func(st *State) {
		s.navigatedAway = false
		t := track
		st.CurrentTrack = &t
		st.Queue = active
		st.CurrentIndex = startIdx
		st.IsPlaying = true
		st.ServiceType = s.cfg.ServiceType
		st.Progress = newProgress(0, t.Duration().Seconds())
		s.playGen++
	})

	s.logger.Info().
		Str("track", track.Name).
		Str("artist", track.ArtistNames()).
		Int("index", startIdx).
		Int("uris", len(uris)).
		Msg("Playing track")

	s.reconcileLater()
	return nil
}

// TogglePlayPause pauses or resumes, deciding the direction from a fresh
// snapshot. It fails fast when no device has been resolved.
func (s *Synchronizer) TogglePlayPause(ctx context.Context) error {
	deviceID := s.devices.Cached()
	if deviceID == "" {
		s.logger.Warn().Msg("No device to toggle playback on")
		return remote.ErrDeviceNotFound
	}

	s.setFlag(flagTogglePlayPause, s.cfg.ToggleSettle)

	wasPlaying := s.store.Get().IsPlaying
	if snap, err := s.client.PlaybackState(ctx); err != nil {
		s.observe(err)
		s.logger.Debug().Err(err).Msg("Failed to fetch playback state, using local state")
	} else if snap != nil {
		wasPlaying = snap.IsPlaying
	}

	target := !wasPlaying
	s.apply(func(st *State) {
		st.IsPlaying = target
		s.playGen++
	})

	var err error
	if target {
		err = s.client.Play(ctx, remote.PlayOptions{DeviceID: deviceID})
	} else {
		err = s.client.Pause(ctx, deviceID)
	}
	if err == nil {
		return nil
	}

	if remote.IsTransport(err) {
		snap, verr := s.client.PlaybackState(ctx)
		if verr == nil && snap != nil && snap.IsPlaying == target {
			s.logger.Debug().Err(err).Msg("Toggle applied despite malformed response")
			return nil
		}
	}

	s.observe(err)
	s.apply(func(st *State) {
		st.IsPlaying = wasPlaying
		s.playGen++
	})
	s.clearFlag(flagTogglePlayPause)

	s.logger.Warn().Err(err).Bool("playing", wasPlaying).Msg("Toggle failed, reverted")
	return fmt.Errorf("failed to toggle playback: %w", err)
}

// PlayNext plays the next track of the local queue, or asks the remote to
// skip when the queue has no next track.
func (s *Synchronizer) PlayNext(ctx context.Context) error {
	return s.step(ctx, 1)
}

// PlayPrevious plays the previous track of the local queue, or asks the
// remote to skip back when the queue has no previous track.
func (s *Synchronizer) PlayPrevious(ctx context.Context) error {
	return s.step(ctx, -1)
}

func (s *Synchronizer) step(ctx context.Context, dir int) error {
	op := "next"
	skip := s.client.SkipToNext
	if dir < 0 {
		op = "previous"
		skip = s.client.SkipToPrevious
	}

	deviceID, err := s.devices.Resolve(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("direction", op).Msg("Cannot skip without a device")
		return fmt.Errorf("failed to resolve device: %w", err)
	}

	st := s.store.Get()
	target := st.CurrentIndex + dir
	if st.CurrentIndex < 0 || target < 0 || target >= len(st.Queue) {
		s.setBuffering(true)
		if err := skip(ctx, deviceID); err != nil {
			s.observe(err)
			s.setBuffering(false)
			s.logger.Warn().Err(err).Str("direction", op).Msg("Skip failed")
			return fmt.Errorf("failed to skip to %s track: %w", op, err)
		}
		s.reconcileLater()
		return nil
	}

	next := st.Queue[target]
	s.setBuffering(true)
	if err := s.client.Play(ctx, remote.PlayOptions{DeviceID: deviceID, URIs: []string{next.URI}}); err != nil {
		s.observe(err)
		s.setBuffering(false)
		s.logger.Warn().Err(err).Str("direction", op).Msg("Skip failed")
		return fmt.Errorf("failed to play %s track: %w", op, err)
	}

	s.apply(func(st *State) {
		t := next
		st.CurrentTrack = &t
		st.CurrentIndex = target
		if target >= len(st.Queue) || st.Queue[target].URI != next.URI {
			st.CurrentIndex = indexOf(st.Queue, next.URI)
		}
		st.IsPlaying = true
		st.Progress = newProgress(0, t.Duration().Seconds())
		s.playGen++
	})

	s.logger.Info().
		Str("track", next.Name).
		Int("index", target).
		Str("direction", op).
		Msg("Skipped")

	s.reconcileLater()
	return nil
}

// Seek moves the playback position of the current track.
func (s *Synchronizer) Seek(ctx context.Context, position time.Duration) error {
	deviceID, err := s.devices.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve device: %w", err)
	}
	if position < 0 {
		position = 0
	}

	s.apply(func(st *State) {
		st.IsBuffering = true
		st.Progress = newProgress(min(position.Seconds(), st.Progress.Duration), st.Progress.Duration)
	})

	if err := s.client.Seek(ctx, position, deviceID); err != nil {
		s.observe(err)
		s.setBuffering(false)
		s.logger.Warn().Err(err).Dur("position", position).Msg("Seek failed")
		return fmt.Errorf("failed to seek: %w", err)
	}

	s.reconcileLater()
	return nil
}

// ToggleShuffle flips local shuffle. The remote's own shuffle is forced off.
func (s *Synchronizer) ToggleShuffle(ctx context.Context) error {
	s.setFlag(flagToggleShuffle, 0)

	deviceID, err := s.devices.Resolve(ctx)
	if err != nil {
		s.clearFlag(flagToggleShuffle)
		return fmt.Errorf("failed to resolve device: %w", err)
	}

	prev := s.store.Get()
	saved := s.queue.Save()
	on := !prev.Shuffle
	active, idx := s.queue.ApplyShuffleToggle(on, prev.CurrentTrack, prev.CurrentIndex)
	s.apply(func(st *State) {
		st.Shuffle = on
		st.Queue = active
		st.CurrentIndex = idx
	})

	if err := s.client.SetShuffle(ctx, false, deviceID); err != nil {
		s.observe(err)
		s.queue.Restore(saved)
		s.apply(func(st *State) {
			st.Shuffle = prev.Shuffle
			st.Queue = prev.Queue
			st.CurrentIndex = prev.CurrentIndex
		})
		s.clearFlag(flagToggleShuffle)
		s.logger.Warn().Err(err).Msg("Shuffle toggle failed, reverted")
		return fmt.Errorf("failed to toggle shuffle: %w", err)
	}

	s.savePreference(ctx, PrefShuffle, strconv.FormatBool(on))
	s.setFlag(flagToggleShuffle, s.cfg.ShuffleSettle)
	s.logger.Info().Bool("shuffle", on).Msg("Shuffle toggled")
	return nil
}

// CycleRepeat advances repeat through off, all, one.
func (s *Synchronizer) CycleRepeat(ctx context.Context) error {
	s.setFlag(flagCycleRepeat, 0)

	deviceID, err := s.devices.Resolve(ctx)
	if err != nil {
		s.clearFlag(flagCycleRepeat)
		return fmt.Errorf("failed to resolve device: %w", err)
	}

	var prev, next RepeatMode
	s.apply(func(st *State) {
		prev = st.Repeat
		next = prev.Next()
		st.Repeat = next
		s.repeatGen++
	})

	if err := s.client.SetRepeat(ctx, next.Remote(), deviceID); err != nil {
		s.observe(err)
		s.apply(func(st *State) {
			st.Repeat = prev
			s.repeatGen++
		})
		s.clearFlag(flagCycleRepeat)
		s.logger.Warn().Err(err).Msg("Repeat change failed, reverted")
		return fmt.Errorf("failed to set repeat: %w", err)
	}

	s.savePreference(ctx, PrefRepeat, next.String())
	s.setFlag(flagCycleRepeat, s.cfg.RepeatSettle)
	s.logger.Info().Str("repeat", next.String()).Msg("Repeat changed")
	return nil
}

// SetQueue replaces the queue without starting playback.
func (s *Synchronizer) SetQueue(tracks []remote.Track) {
	current := s.store.Get().CurrentTrack
	s.queue.SetQueue(tracks, current)
	active := s.queue.Active()

	s.apply(func(st *State) {
		st.Queue = active
		st.CurrentIndex = -1
		if st.CurrentTrack != nil {
			st.CurrentIndex = indexOf(active, st.CurrentTrack.URI)
		}
	})
}

// Clear drops the current track and stops reconciling until the next
// PlayTrack.
func (s *Synchronizer) Clear() {
	s.apply(func(st *State) {
		s.navigatedAway = true
		st.CurrentTrack = nil
		st.IsPlaying = false
		st.IsBuffering = false
		st.ServiceType = ""
		st.CurrentIndex = -1
		st.Progress = Progress{}
		s.playGen++
	})
	s.progress.Reset()

	s.mu.Lock()
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()
	for _, w := range watchers {
		w.stop()
	}
	s.logger.Info().Msg("Playback cleared")
}

// UpdateCurrentTrack fetches a snapshot and merges it into the state. It is
// the poll loop body; failures are absorbed by the governor.
func (s *Synchronizer) UpdateCurrentTrack(ctx context.Context) {
	s.mu.Lock()
	if s.navigatedAway || s.closed {
		s.mu.Unlock()
		return
	}
	playGen, repeatGen := s.playGen, s.repeatGen
	s.mu.Unlock()

	if !s.governor.ShouldPoll() {
		return
	}

	snap, err := s.client.PlaybackState(ctx)
	if err != nil {
		backoff := s.governor.OnFailure(remote.IsRateLimited(err))
		event := s.logger.Debug()
		if backoff > 0 {
			event = s.logger.Warn().Dur("backoff", backoff)
		}
		event.Err(err).Int("consecutive_errors", s.governor.ConsecutiveErrors()).Msg("Poll failed")
		return
	}
	s.governor.OnSuccess()

	if snap == nil || snap.Item == nil {
		return
	}

	item := *snap.Item
	position := float64(snap.ProgressMs) / 1000
	duration := item.Duration().Seconds()

	s.apply(func(st *State) {
		if s.navigatedAway {
			return
		}

		st.CurrentTrack = &item
		st.ServiceType = s.cfg.ServiceType
		if !s.flags[flagTogglePlayPause] && s.playGen == playGen {
			st.IsPlaying = snap.IsPlaying
		}
		st.CurrentIndex = indexOf(st.Queue, item.URI)

		s.progress.Record(position)
		st.Progress = newProgress(min(position, duration), duration)

		if !s.flags[flagCycleRepeat] && !s.flags[flagJustAppliedPreferences] && s.repeatGen == repeatGen {
			st.Repeat = RepeatFromRemote(snap.RepeatState)
		}

		if snap.ProgressMs > 0 || snap.IsPlaying {
			st.IsBuffering = false
		}
	})
}

// poll runs one reconciliation unless one is already running.
func (s *Synchronizer) poll() {
	if !s.polling.CompareAndSwap(false, true) {
		return
	}
	defer s.polling.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CallTimeout)
	defer cancel()
	s.UpdateCurrentTrack(ctx)
}

// interpolate advances the displayed progress between polls. The sample is
// taken against the state it is written to.
func (s *Synchronizer) interpolate() {
	s.store.UpdateIf(func(st *State) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		p, ok := s.progress.Sample(*st)
		if !ok || p == st.Progress {
			return false
		}
		st.Progress = p
		return true
	})
}

func (s *Synchronizer) reconcileLater() {
	s.sched.AfterFunc(s.cfg.ReconcileDelay, s.poll)
}

// applyPreferences pushes the saved order preferences to the remote ahead of
// a play command. Failures are logged; playback proceeds regardless.
func (s *Synchronizer) applyPreferences(ctx context.Context, deviceID string) {
	prefs := LoadPreferences(ctx, s.prefs)
	s.setFlag(flagJustAppliedPreferences, s.cfg.PreferencesSettle)
	s.apply(func(st *State) {
		st.Repeat = prefs.Repeat
		s.repeatGen++
	})

	if err := s.client.SetShuffle(ctx, false, deviceID); err != nil {
		s.observe(err)
		s.logger.Warn().Err(err).Msg("Failed to disable remote shuffle")
	}
	if err := s.client.SetRepeat(ctx, prefs.Repeat.Remote(), deviceID); err != nil {
		s.observe(err)
		s.logger.Warn().Err(err).Str("repeat", prefs.Repeat.String()).Msg("Failed to apply repeat preference")
	}
}

func (s *Synchronizer) savePreference(ctx context.Context, key, value string) {
	if s.prefs == nil {
		return
	}
	if err := s.prefs.Set(ctx, key, value); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to save preference")
	}
}

// observe feeds command failures to the governor so polling backs off from
// a rate-limited remote too.
func (s *Synchronizer) observe(err error) {
	if remote.IsRateLimited(err) {
		backoff := s.governor.OnFailure(true)
		s.logger.Warn().Dur("backoff", backoff).Msg("Rate limited")
	}
}

func (s *Synchronizer) setBuffering(on bool) {
	s.apply(func(st *State) { st.IsBuffering = on })
}

// apply mutates the state with the synchronizer's bookkeeping locked.
func (s *Synchronizer) apply(fn func(st *State)) {
	s.store.Update(func(st *State) {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn(st)
	})
}

// setFlag raises f. With d > 0 it is lowered again after d, unless it has
// been raised again since.
func (s *Synchronizer) setFlag(f flag, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flagCancel[f] != nil {
		s.flagCancel[f]()
		s.flagCancel[f] = nil
	}
	s.flags[f] = true
	s.flagSeq[f]++

	if d <= 0 {
		return
	}
	seq := s.flagSeq[f]
	s.flagCancel[f] = s.sched.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.flagSeq[f] == seq {
			s.flags[f] = false
			s.flagCancel[f] = nil
		}
	})
}

func (s *Synchronizer) clearFlag(f flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flagCancel[f] != nil {
		s.flagCancel[f]()
		s.flagCancel[f] = nil
	}
	s.flags[f] = false
	s.flagSeq[f]++
}

func indexOf(tracks []remote.Track, uri string) int {
	_, i, ok := lo.FindIndexOf(tracks, func(t remote.Track) bool { return t.URI == uri })
	if !ok {
		return -1
	}
	return i
}
