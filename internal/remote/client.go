// Package remote describes the remote playback service the engine keeps in
// sync with: its data model, the commands it accepts, and the errors it
// returns.
package remote

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Artist is a credited artist on a track.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album is the album a track belongs to. Only the first artwork image is
// kept.
type Album struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// Track is an immutable catalog item. Its identity is URI.
type Track struct {
	ID         string   `json:"id"`
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMs int      `json:"duration_ms"`
	Type       string   `json:"type"`
}

// ArtistNames returns the credited artists joined for display.
func (t Track) ArtistNames() string {
	return strings.Join(lo.Map(t.Artists, func(a Artist, _ int) string { return a.Name }), ", ")
}

// Duration returns the track length.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMs) * time.Millisecond
}

// RepeatState is the remote service's repeat vocabulary.
type RepeatState string

const (
	RepeatOff     RepeatState = "off"
	RepeatContext RepeatState = "context"
	RepeatTrack   RepeatState = "track"
)

// Snapshot is one poll's worth of remote playback truth. Item is nil when
// nothing is loaded on any device.
type Snapshot struct {
	Item         *Track
	IsPlaying    bool
	ProgressMs   int
	ShuffleState bool
	RepeatState  RepeatState
	DeviceID     string
}

// Device is an output endpoint registered with the remote service.
type Device struct {
	ID       string
	Name     string
	Type     string
	IsActive bool
}

// PlayOptions selects the device and, optionally, the tracks to play. With no
// URIs the device resumes whatever it has loaded.
type PlayOptions struct {
	DeviceID string
	URIs     []string
}

// Client is the command and query surface of the remote playback service.
// Every call fails with ErrAuthentication, without reaching the service, when
// no access token is available.
type Client interface {
	// Devices lists the output devices visible to the account
	Devices(ctx context.Context) ([]Device, error)

	// PlaybackState returns the current snapshot
	PlaybackState(ctx context.Context) (*Snapshot, error)

	// Play starts or resumes playback on a device
	Play(ctx context.Context, opts PlayOptions) error

	// Pause pauses playback on a device
	Pause(ctx context.Context, deviceID string) error

	// SkipToNext uses the service's own queue to skip forward
	SkipToNext(ctx context.Context, deviceID string) error

	// SkipToPrevious uses the service's own queue to skip back
	SkipToPrevious(ctx context.Context, deviceID string) error

	// SetShuffle sets the service's own shuffle flag
	SetShuffle(ctx context.Context, on bool, deviceID string) error

	// SetRepeat sets the service's repeat mode
	SetRepeat(ctx context.Context, state RepeatState, deviceID string) error

	// Seek moves the playback position of the current track
	Seek(ctx context.Context, position time.Duration, deviceID string) error
}
