package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAfterFunc(t *testing.T) {
	f := NewFake(epoch)
	fired := 0
	f.AfterFunc(500*time.Millisecond, func() { fired++ })

	f.Advance(499 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("fired early")
	}

	f.Advance(time.Millisecond)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}

	f.Advance(time.Second)
	if fired != 1 {
		t.Errorf("one-shot fired again: %d", fired)
	}
	if got := f.Now(); !got.Equal(epoch.Add(1500 * time.Millisecond)) {
		t.Errorf("Now() = %v", got)
	}
}

func TestFakeEvery(t *testing.T) {
	f := NewFake(epoch)
	var ticks []time.Time
	cancel := f.Every(100*time.Millisecond, func() { ticks = append(ticks, f.Now()) })

	f.Advance(350 * time.Millisecond)
	if len(ticks) != 3 {
		t.Fatalf("got %d ticks, want 3", len(ticks))
	}
	if !ticks[2].Equal(epoch.Add(300 * time.Millisecond)) {
		t.Errorf("third tick at %v", ticks[2])
	}

	cancel()
	f.Advance(time.Second)
	if len(ticks) != 3 {
		t.Errorf("ticks after cancel: %d", len(ticks))
	}
}

func TestFakeOrdering(t *testing.T) {
	f := NewFake(epoch)
	var order []string
	f.AfterFunc(200*time.Millisecond, func() { order = append(order, "b") })
	f.AfterFunc(100*time.Millisecond, func() {
		order = append(order, "a")
		f.AfterFunc(50*time.Millisecond, func() { order = append(order, "nested") })
	})
	f.AfterFunc(200*time.Millisecond, func() { order = append(order, "c") })

	f.Advance(time.Second)

	want := []string{"a", "nested", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestFakeCancel(t *testing.T) {
	f := NewFake(epoch)
	fired := false
	cancel := f.AfterFunc(time.Second, func() { fired = true })
	if f.Pending() != 1 {
		t.Fatalf("Pending() = %d", f.Pending())
	}

	cancel()
	cancel()
	f.Advance(2 * time.Second)

	if fired {
		t.Error("cancelled callback fired")
	}
	if f.Pending() != 0 {
		t.Errorf("Pending() = %d after cancel", f.Pending())
	}
}
