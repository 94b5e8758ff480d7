package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jfmyers9/tether/internal/playback"
	"github.com/jfmyers9/tether/internal/remote"
)

// Snapshot is the playback state published for other processes, such as
// the now command and control commands.
type Snapshot struct {
	Track        *remote.Track `json:"track,omitempty"`
	Phase        string        `json:"phase"`
	IsPlaying    bool          `json:"is_playing"`
	Position     time.Duration `json:"position"`
	Shuffle      bool          `json:"shuffle"`
	Repeat       string        `json:"repeat"`
	QueueLength  int           `json:"queue_length"`
	CurrentIndex int           `json:"current_index"`
	DeviceID     string        `json:"device_id,omitempty"`
	PID          int           `json:"pid"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// PositionAt extrapolates the playback position to t while playing.
func (s *Snapshot) PositionAt(t time.Time) time.Duration {
	pos := s.Position
	if s.IsPlaying && !s.UpdatedAt.IsZero() {
		pos += t.Sub(s.UpdatedAt)
	}
	if s.Track != nil && s.Track.DurationMs > 0 {
		pos = min(pos, s.Track.Duration())
	}
	return max(pos, 0)
}

// key holds the fields whose change is written immediately.
type key struct {
	uri      string
	phase    string
	playing  bool
	shuffle  bool
	repeat   string
	queueLen int
	index    int
	deviceID string
	hasTrack bool
}

// StateFile persists snapshots. Position-only changes are written at most
// once per persistInterval; anything else is written immediately.
type StateFile struct {
	mu              sync.Mutex
	filePath        string
	current         Snapshot
	last            key
	lastPersist     time.Time
	persistInterval time.Duration
	dirty           bool
	now             func() time.Time
}

// NewStateFile creates a StateFile writing to filePath.
func NewStateFile(filePath string) *StateFile {
	return &StateFile{
		filePath:        filePath,
		persistInterval: time.Second,
		now:             time.Now,
	}
}

// Publish records st, resolved on deviceID, and persists it.
func (s *StateFile) Publish(st playback.State, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Snapshot{
		Track:        st.CurrentTrack,
		Phase:        st.Phase().String(),
		IsPlaying:    st.IsPlaying,
		Position:     time.Duration(st.Progress.CurrentTime * float64(time.Second)),
		Shuffle:      st.Shuffle,
		Repeat:       st.Repeat.String(),
		QueueLength:  len(st.Queue),
		CurrentIndex: st.CurrentIndex,
		DeviceID:     deviceID,
		PID:          os.Getpid(),
		UpdatedAt:    s.now(),
	}

	k := key{
		phase:    s.current.Phase,
		playing:  st.IsPlaying,
		shuffle:  st.Shuffle,
		repeat:   s.current.Repeat,
		queueLen: len(st.Queue),
		index:    st.CurrentIndex,
		deviceID: deviceID,
	}
	if st.CurrentTrack != nil {
		k.uri = st.CurrentTrack.URI
		k.hasTrack = true
	}

	if k != s.last {
		s.last = k
		return s.persist()
	}
	return s.throttledPersist()
}

// Flush writes any throttled change.
func (s *StateFile) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	return s.persist()
}

// Remove deletes the published state. Called when the daemon exits so
// readers stop trusting it.
func (s *StateFile) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Snapshot{}
	s.last = key{}
	s.dirty = false
	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Current returns the last published snapshot.
func (s *StateFile) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// throttledPersist writes only when persistInterval has elapsed since the
// last write, otherwise marks the state dirty.
// Must be called with lock held
func (s *StateFile) throttledPersist() error {
	if s.now().Sub(s.lastPersist) < s.persistInterval {
		s.dirty = true
		return nil
	}
	return s.persist()
}

// persist saves the current snapshot to disk
// Must be called with lock held
func (s *StateFile) persist() error {
	if s.filePath == "" {
		return nil // No persistence configured
	}

	data, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Write atomically via temp file + rename
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return err
	}

	s.lastPersist = s.now()
	s.dirty = false
	return nil
}

// ReadSnapshot loads the snapshot published by a running daemon. It returns
// os.ErrNotExist when no daemon has published one.
func ReadSnapshot(filePath string) (*Snapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}
	return &snap, nil
}
