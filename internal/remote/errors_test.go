package remote

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same kind", &Error{Kind: KindRateLimited, Status: 429}, ErrRateLimited, true},
		{"wrapped", fmt.Errorf("failed to poll: %w", &Error{Kind: KindTransport}), ErrTransport, true},
		{"different kind", &Error{Kind: KindCommand}, ErrAuthentication, false},
		{"plain error", errors.New("boom"), ErrCommand, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: KindCommand, Op: "play", Status: 403, Err: errors.New("restricted device")}
	want := "remote: play: command (status 403): restricted device"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTemporary(t *testing.T) {
	for kind, want := range map[Kind]bool{
		KindCommand:        false,
		KindAuthentication: false,
		KindRateLimited:    true,
		KindTransport:      true,
	} {
		e := &Error{Kind: kind}
		if got := e.Temporary(); got != want {
			t.Errorf("Kind %s Temporary() = %v, want %v", kind, got, want)
		}
	}
}

func TestTrackHelpers(t *testing.T) {
	tr := Track{
		Artists:    []Artist{{Name: "Daft Punk"}, {Name: "Pharrell Williams"}},
		DurationMs: 248000,
	}
	if got := tr.ArtistNames(); got != "Daft Punk, Pharrell Williams" {
		t.Errorf("ArtistNames() = %q", got)
	}
	if got := tr.Duration().Seconds(); got != 248 {
		t.Errorf("Duration() = %vs", got)
	}
}
