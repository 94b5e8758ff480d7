package bridge

import (
	"errors"
	"testing"
)

type recorder struct {
	calls []string
	err   error
}

func (r *recorder) StartService(title, artist string, isPlaying bool) error {
	r.calls = append(r.calls, "start:"+title)
	return r.err
}

func (r *recorder) UpdateMetadata(title, artist string, isPlaying bool) error {
	r.calls = append(r.calls, "meta:"+title)
	return r.err
}

func (r *recorder) UpdatePlaybackState(isPlaying bool) error {
	if isPlaying {
		r.calls = append(r.calls, "state:playing")
	} else {
		r.calls = append(r.calls, "state:paused")
	}
	return r.err
}

func (r *recorder) StopService() error {
	r.calls = append(r.calls, "stop")
	return r.err
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{err: errors.New("dbus gone")}
	m := Multi{a, nil, b}

	_ = m.StartService("One More Time", "Daft Punk", true)
	_ = m.UpdatePlaybackState(false)
	err := m.StopService()

	if err == nil {
		t.Fatal("StopService() error = nil, want joined error")
	}
	for _, r := range []*recorder{a, b} {
		want := []string{"start:One More Time", "state:paused", "stop"}
		if len(r.calls) != len(want) {
			t.Fatalf("calls = %v, want %v", r.calls, want)
		}
		for i := range want {
			if r.calls[i] != want[i] {
				t.Errorf("calls[%d] = %s, want %s", i, r.calls[i], want[i])
			}
		}
	}
}

func TestNotifierDedup(t *testing.T) {
	var posted []string
	n := &Notifier{notify: func(title, message string, icon any) error {
		posted = append(posted, title+" / "+message)
		return nil
	}}

	_ = n.StartService("Aerodynamic", "Daft Punk", true)
	_ = n.UpdateMetadata("Aerodynamic", "Daft Punk", true)
	_ = n.UpdateMetadata("Digital Love", "Daft Punk", false)
	_ = n.UpdateMetadata("Digital Love", "Daft Punk", true)
	_ = n.StopService()
	_ = n.UpdateMetadata("Digital Love", "Daft Punk", true)

	want := []string{"Aerodynamic / Daft Punk", "Digital Love / Daft Punk", "Digital Love / Daft Punk"}
	if len(posted) != len(want) {
		t.Fatalf("posted = %v, want %v", posted, want)
	}
}

func TestNotifierError(t *testing.T) {
	n := &Notifier{notify: func(string, string, any) error { return errors.New("no notification daemon") }}
	if err := n.UpdateMetadata("Veridis Quo", "Daft Punk", true); err == nil {
		t.Error("UpdateMetadata() error = nil")
	}
}
