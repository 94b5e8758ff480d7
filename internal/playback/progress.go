package playback

import (
	"sync"
	"time"
)

// Progress is the playback position shown to the user.
type Progress struct {
	CurrentTime float64 // Seconds
	Duration    float64 // Seconds
	SeekValue   float64 // Percent of Duration, 0-100
}

// Interpolator extrapolates the playback position between polls. Its base
// sample is written only by poll reconciliation.
type Interpolator struct {
	mu            sync.Mutex
	now           func() time.Time
	lastAPITime   float64
	lastTimestamp time.Time
	sampled       bool
}

// NewInterpolator creates an Interpolator reading time from now.
func NewInterpolator(now func() time.Time) *Interpolator {
	return &Interpolator{now: now}
}

// Record stores the position reported by the remote, in seconds.
func (i *Interpolator) Record(position float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.lastAPITime = position
	i.lastTimestamp = i.now()
	i.sampled = true
}

// Reset forgets the base sample.
func (i *Interpolator) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sampled = false
	i.lastAPITime = 0
	i.lastTimestamp = time.Time{}
}

// Sample returns the extrapolated progress for s. It returns false, leaving
// the caller's progress untouched, when s is paused or buffering or no base
// sample exists yet.
func (i *Interpolator) Sample(s State) (Progress, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.sampled || !s.IsPlaying || s.IsBuffering || s.CurrentTrack == nil {
		return Progress{}, false
	}

	duration := s.Progress.Duration
	elapsed := i.now().Sub(i.lastTimestamp).Seconds()
	current := min(i.lastAPITime+elapsed, duration)

	return newProgress(current, duration), true
}

func newProgress(current, duration float64) Progress {
	p := Progress{CurrentTime: current, Duration: duration}
	if duration > 0 {
		p.SeekValue = current / duration * 100
	}
	return p
}
