package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a deterministic Scheduler. Time only moves when Advance is called,
// and due callbacks run inline on the caller's goroutine.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*fakeTimer
}

type fakeTimer struct {
	id       uint64
	when     time.Time
	period   time.Duration
	fn       func()
	canceled bool
}

// NewFake returns a Fake whose clock starts at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the virtual time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc schedules fn to run once d after the current virtual time.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Cancel {
	return f.add(d, 0, fn)
}

// Every schedules fn every d of virtual time.
func (f *Fake) Every(d time.Duration, fn func()) Cancel {
	if d <= 0 {
		panic("clock: non-positive interval")
	}
	return f.add(d, d, fn)
}

func (f *Fake) add(d, period time.Duration, fn func()) Cancel {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	t := &fakeTimer{id: f.seq, when: f.now.Add(d), period: period, fn: fn}
	f.timers = append(f.timers, t)

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		t.canceled = true
	}
}

// Advance moves virtual time forward by d, running every callback that falls
// due in deadline order. Callbacks may schedule or cancel other callbacks;
// ones that fall due within the window also run.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.nextDue(target)
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = next.when
		if next.period > 0 {
			next.when = next.when.Add(next.period)
		} else {
			next.canceled = true
		}
		fn := next.fn
		f.mu.Unlock()

		fn()
	}
}

// Pending reports how many callbacks are still scheduled.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compact()
	return len(f.timers)
}

// nextDue must be called with f.mu held.
func (f *Fake) nextDue(target time.Time) *fakeTimer {
	f.compact()
	sort.SliceStable(f.timers, func(i, j int) bool {
		if f.timers[i].when.Equal(f.timers[j].when) {
			return f.timers[i].id < f.timers[j].id
		}
		return f.timers[i].when.Before(f.timers[j].when)
	})
	if len(f.timers) == 0 || f.timers[0].when.After(target) {
		return nil
	}
	return f.timers[0]
}

func (f *Fake) compact() {
	live := f.timers[:0]
	for _, t := range f.timers {
		if !t.canceled {
			live = append(live, t)
		}
	}
	f.timers = live
}
