package playback

import (
	"sync"

	"github.com/jfmyers9/tether/internal/bridge"
	"github.com/rs/zerolog"
)

// bridgeWatcher turns state changes into metadata bridge calls.
type bridgeWatcher struct {
	bridge bridge.Bridge
	logger zerolog.Logger

	mu          sync.Mutex
	started     bool
	lastURI     string
	lastPlaying bool
}

func (w *bridgeWatcher) observe(st State) {
	if st.CurrentTrack == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	title, artist := st.CurrentTrack.Name, st.CurrentTrack.ArtistNames()
	var err error
	switch {
	case !w.started:
		w.started = true
		err = w.bridge.StartService(title, artist, st.IsPlaying)
	case st.CurrentTrack.URI != w.lastURI:
		err = w.bridge.UpdateMetadata(title, artist, st.IsPlaying)
	case st.IsPlaying != w.lastPlaying:
		err = w.bridge.UpdatePlaybackState(st.IsPlaying)
	default:
		return
	}
	w.lastURI = st.CurrentTrack.URI
	w.lastPlaying = st.IsPlaying

	if err != nil {
		w.logger.Warn().Err(err).Str("track", title).Msg("Metadata bridge update failed")
	}
}

func (w *bridgeWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.started = false
	w.lastURI = ""
	w.lastPlaying = false

	if err := w.bridge.StopService(); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to stop metadata bridge")
	}
}
