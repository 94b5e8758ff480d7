// Package clock provides the timer surface the playback engine runs on.
//
// Every periodic loop and deferred settle window in the engine goes through a
// Scheduler, so tests can drive the whole engine on virtual time with Fake.
package clock

import (
	"sync"
	"time"
)

// Cancel stops a scheduled callback. Calling it more than once is safe.
type Cancel func()

// Scheduler schedules one-shot and periodic callbacks.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Cancel
	Every(d time.Duration, fn func()) Cancel
}

// Real is a Scheduler backed by the runtime timers.
type Real struct{}

// Now returns the wall-clock time.
func (Real) Now() time.Time { return time.Now() }

// AfterFunc runs fn on its own goroutine after d.
func (Real) AfterFunc(d time.Duration, fn func()) Cancel {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Every runs fn every d until cancelled. Ticks are not queued: a tick that
// arrives while fn is still running is dropped.
func (Real) Every(d time.Duration, fn func()) Cancel {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
