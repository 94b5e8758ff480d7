// Package bridge defines the outbound metadata surface that mirrors playback
// into the desktop: media keys, rich presence, notifications.
package bridge

import "errors"

// Bridge receives playback metadata. Calls are fire-and-forget from the
// engine's point of view: returned errors are logged and dropped.
type Bridge interface {
	StartService(title, artist string, isPlaying bool) error
	UpdateMetadata(title, artist string, isPlaying bool) error
	UpdatePlaybackState(isPlaying bool) error
	StopService() error
}

// Multi fans every call out to each bridge and joins their errors.
type Multi []Bridge

// StartService starts every bridge.
func (m Multi) StartService(title, artist string, isPlaying bool) error {
	return m.each(func(b Bridge) error { return b.StartService(title, artist, isPlaying) })
}

// UpdateMetadata forwards the current track to every bridge.
func (m Multi) UpdateMetadata(title, artist string, isPlaying bool) error {
	return m.each(func(b Bridge) error { return b.UpdateMetadata(title, artist, isPlaying) })
}

// UpdatePlaybackState forwards the play state to every bridge.
func (m Multi) UpdatePlaybackState(isPlaying bool) error {
	return m.each(func(b Bridge) error { return b.UpdatePlaybackState(isPlaying) })
}

// StopService stops every bridge.
func (m Multi) StopService() error {
	return m.each(func(b Bridge) error { return b.StopService() })
}

func (m Multi) each(fn func(Bridge) error) error {
	var errs []error
	for _, b := range m {
		if b == nil {
			continue
		}
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
