package bridge

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"
)

// Notifier posts a desktop notification whenever the track changes.
type Notifier struct {
	mu     sync.Mutex
	last   string
	notify func(title, message string, icon any) error
}

// NewNotifier creates a Notifier using the system notification service.
func NewNotifier() *Notifier {
	return &Notifier{notify: beeep.Notify}
}

// StartService announces the first track.
func (n *Notifier) StartService(title, artist string, isPlaying bool) error {
	return n.UpdateMetadata(title, artist, isPlaying)
}

// UpdateMetadata announces a track once, while it is playing.
func (n *Notifier) UpdateMetadata(title, artist string, isPlaying bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	key := title + "\x00" + artist
	if !isPlaying || key == n.last {
		return nil
	}
	n.last = key

	if err := n.notify(title, artist, ""); err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	return nil
}

// UpdatePlaybackState is a no-op; pausing is not worth a notification.
func (n *Notifier) UpdatePlaybackState(bool) error { return nil }

// StopService forgets the last announced track.
func (n *Notifier) StopService() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = ""
	return nil
}
