// Package queue owns the client-chosen play order.
//
// The remote service's queue is never consulted: the Manager keeps the order
// the user picked and a shuffled derivation of it, and the synchronizer plays
// neighbors out of whichever one is active.
package queue

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/jfmyers9/tether/internal/remote"
	"github.com/samber/lo"
)

// Manager holds the original and shuffled orders. It is safe for concurrent
// use.
type Manager struct {
	mu       sync.Mutex
	rng      *rand.Rand
	original []remote.Track
	shuffled []remote.Track
	shuffle  bool
}

// New creates an empty Manager. A nil rng uses a randomly seeded source.
func New(rng *rand.Rand) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Manager{rng: rng}
}

// SetShuffle sets the mode without deriving a new order. It is used when
// restoring a saved preference before any queue exists.
func (m *Manager) SetShuffle(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shuffle = on
	if !on {
		m.shuffled = nil
	}
}

// IsShuffled reports whether the shuffled order is active.
func (m *Manager) IsShuffled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shuffle
}

// SetQueue replaces the original order. When shuffle is on a fresh shuffled
// order is derived with current pinned first.
func (m *Manager) SetQueue(tracks []remote.Track, current *remote.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.original = slices.Clone(tracks)
	m.shuffled = nil
	if m.shuffle {
		m.shuffled = m.derive(current)
	}
}

// ApplyShuffleToggle switches between orders and returns the now-active queue
// with the index of the current track in it.
//
// Turning shuffle on derives a new order with current at index 0. Turning it
// off restores the original order exactly and locates current by URI; if it
// cannot be found, currentIndex is returned unchanged.
func (m *Manager) ApplyShuffleToggle(on bool, current *remote.Track, currentIndex int) ([]remote.Track, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shuffle = on
	if on {
		m.shuffled = m.derive(current)
		if len(m.shuffled) == 0 {
			return nil, -1
		}
		return slices.Clone(m.shuffled), 0
	}

	m.shuffled = nil
	idx := currentIndex
	if current != nil {
		if i := indexOf(m.original, current.URI); i >= 0 {
			idx = i
		}
	}
	return slices.Clone(m.original), idx
}

// Saved is an opaque copy of the manager's orders.
type Saved struct {
	original []remote.Track
	shuffled []remote.Track
	shuffle  bool
}

// Save captures both orders so a failed toggle can be undone exactly.
func (m *Manager) Save() Saved {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Saved{
		original: slices.Clone(m.original),
		shuffled: slices.Clone(m.shuffled),
		shuffle:  m.shuffle,
	}
}

// Restore reinstates orders captured by Save.
func (m *Manager) Restore(s Saved) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.original = s.original
	m.shuffled = s.shuffled
	m.shuffle = s.shuffle
}

// Active returns a copy of the active order.
func (m *Manager) Active() []remote.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.active())
}

// Original returns a copy of the user-selected order.
func (m *Manager) Original() []remote.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.original)
}

// PlayOrderFrom returns the active order starting at index.
func (m *Manager) PlayOrderFrom(index int) []remote.Track {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.active()
	if index < 0 || index >= len(active) {
		return nil
	}
	return slices.Clone(active[index:])
}

// IndexOf returns the position of uri in the active order, or -1.
func (m *Manager) IndexOf(uri string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return indexOf(m.active(), uri)
}

func (m *Manager) active() []remote.Track {
	if m.shuffle && m.shuffled != nil {
		return m.shuffled
	}
	return m.original
}

// derive returns a uniform permutation of the original order with current
// moved to the front. Must be called with m.mu held.
func (m *Manager) derive(current *remote.Track) []remote.Track {
	rest := slices.Clone(m.original)
	var head []remote.Track
	if current != nil {
		if i := indexOf(rest, current.URI); i >= 0 {
			head = []remote.Track{rest[i]}
			rest = slices.Delete(rest, i, i+1)
		}
	}

	// Fisher-Yates
	m.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	return append(head, rest...)
}

func indexOf(tracks []remote.Track, uri string) int {
	_, i, ok := lo.FindIndexOf(tracks, func(t remote.Track) bool { return t.URI == uri })
	if !ok {
		return -1
	}
	return i
}
