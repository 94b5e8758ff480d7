// Package mpris publishes the player on the D-Bus session bus so desktop
// media keys and widgets can see and drive it.
package mpris

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/jfmyers9/tether/internal/playback"
)

// Controller is the playback surface media keys drive.
type Controller interface {
	State() playback.State
	TogglePlayPause(ctx context.Context) error
	PlayNext(ctx context.Context) error
	PlayPrevious(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	ToggleShuffle(ctx context.Context) error
	CycleRepeat(ctx context.Context) error
}

func playbackStatus(st playback.State) types.PlaybackStatus {
	switch st.Phase() {
	case playback.PhasePlaying, playback.PhaseBuffering:
		if st.IsPlaying {
			return types.PlaybackStatusPlaying
		}
		return types.PlaybackStatusPaused
	case playback.PhasePaused:
		return types.PlaybackStatusPaused
	default:
		return types.PlaybackStatusStopped
	}
}

func loopStatus(mode playback.RepeatMode) types.LoopStatus {
	switch mode {
	case playback.RepeatOne:
		return types.LoopStatusTrack
	case playback.RepeatAll:
		return types.LoopStatusPlaylist
	default:
		return types.LoopStatusNone
	}
}

func repeatMode(status types.LoopStatus) (playback.RepeatMode, bool) {
	switch status {
	case types.LoopStatusNone:
		return playback.RepeatOff, true
	case types.LoopStatusTrack:
		return playback.RepeatOne, true
	case types.LoopStatusPlaylist:
		return playback.RepeatAll, true
	default:
		return playback.RepeatOff, false
	}
}

// setRepeat cycles the repeat mode until it reaches want. The cycle has
// three modes, so at most two steps are needed.
func setRepeat(ctx context.Context, c Controller, want playback.RepeatMode) error {
	for range 2 {
		if c.State().Repeat == want {
			return nil
		}
		if err := c.CycleRepeat(ctx); err != nil {
			return err
		}
	}
	return nil
}

func setShuffle(ctx context.Context, c Controller, on bool) error {
	if c.State().Shuffle == on {
		return nil
	}
	return c.ToggleShuffle(ctx)
}

func positionOf(st playback.State) time.Duration {
	return time.Duration(st.Progress.CurrentTime * float64(time.Second))
}

func trackObjectPath(uri string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(uri))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
