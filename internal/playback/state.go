package playback

import (
	"slices"
	"sync"

	"github.com/jfmyers9/tether/internal/remote"
)

// RepeatMode is the local repeat vocabulary.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota // Stop at the end of the queue
	RepeatAll                   // Loop the queue
	RepeatOne                   // Loop the current track
)

// String returns a human-readable representation of the RepeatMode
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// Next returns the mode after m in the cycle off, all, one.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// Remote translates m to the remote service's vocabulary.
func (m RepeatMode) Remote() remote.RepeatState {
	switch m {
	case RepeatAll:
		return remote.RepeatContext
	case RepeatOne:
		return remote.RepeatTrack
	default:
		return remote.RepeatOff
	}
}

// RepeatFromRemote translates the remote vocabulary. Unknown values map to
// RepeatOff.
func RepeatFromRemote(s remote.RepeatState) RepeatMode {
	switch s {
	case remote.RepeatContext:
		return RepeatAll
	case remote.RepeatTrack:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// ParseRepeatMode parses the String form. ok is false for anything else.
func ParseRepeatMode(s string) (RepeatMode, bool) {
	switch s {
	case "off":
		return RepeatOff, true
	case "all":
		return RepeatAll, true
	case "one":
		return RepeatOne, true
	default:
		return RepeatOff, false
	}
}

// Phase is the coarse playback state derived from State.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBuffering
	PhasePlaying
	PhasePaused
)

// String returns a human-readable representation of the Phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBuffering:
		return "buffering"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// State is the canonical playback state. Only the Synchronizer writes it.
//
// CurrentIndex is -1 or a valid index into Queue. Queue[CurrentIndex] is the
// current track once a poll has reconciled the two; a command may leave them
// briefly apart.
type State struct {
	CurrentTrack *remote.Track
	IsPlaying    bool
	Progress     Progress
	Queue        []remote.Track
	CurrentIndex int
	IsBuffering  bool
	Shuffle      bool
	Repeat       RepeatMode
	ServiceType  string
}

// Phase derives the coarse playback state.
func (s State) Phase() Phase {
	switch {
	case s.CurrentTrack == nil && !s.IsBuffering:
		return PhaseIdle
	case s.IsBuffering:
		return PhaseBuffering
	case s.IsPlaying:
		return PhasePlaying
	default:
		return PhasePaused
	}
}

func (s State) clone() State {
	s.Queue = slices.Clone(s.Queue)
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		s.CurrentTrack = &t
	}
	return s
}

// Store is a synchronous state container. Listeners run on the goroutine
// that changed the state, after the change, outside the lock.
type Store struct {
	mu        sync.RWMutex
	state     State
	nextID    int
	listeners map[int]func(State)
	order     []int
}

// NewStore creates a Store holding initial.
func NewStore(initial State) *Store {
	return &Store{
		state:     initial.clone(),
		listeners: make(map[int]func(State)),
	}
}

// Get returns a copy of the current state.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Set replaces the state and notifies listeners.
func (s *Store) Set(state State) {
	s.Update(func(st *State) { *st = state })
}

// Update applies fn to the state and notifies listeners.
func (s *Store) Update(fn func(*State)) {
	s.UpdateIf(func(st *State) bool {
		fn(st)
		return true
	})
}

// UpdateIf applies fn to the state and notifies listeners only when fn
// reports a change.
func (s *Store) UpdateIf(fn func(*State) bool) {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return
	}
	snapshot := s.state.clone()
	listeners := make([]func(State), 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

// OnChange registers fn and returns a function that unregisters it.
func (s *Store) OnChange(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			s.order = slices.DeleteFunc(s.order, func(v int) bool { return v == id })
		})
	}
}
