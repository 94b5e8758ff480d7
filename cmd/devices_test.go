package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jfmyers9/tether/internal/remote"
)

func TestDeviceRows(t *testing.T) {
	devices := []remote.Device{
		{ID: "d1", Name: "tether (ab12cd34)", Type: "Computer"},
		{ID: "d2", Name: "Kitchen", Type: "Speaker", IsActive: true},
	}

	rows := deviceRows(devices, "tether")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "●" {
		t.Errorf("expected own device to be marked, got %q", rows[0][0])
	}
	if rows[1][0] != " " {
		t.Errorf("expected foreign device to be unmarked, got %q", rows[1][0])
	}
	if !strings.Contains(rows[1][4].(string), "yes") {
		t.Errorf("expected active column for d2, got %q", rows[1][4])
	}
}

func TestRenderDevices(t *testing.T) {
	var buf bytes.Buffer
	renderDevices(&buf, []remote.Device{{ID: "d1", Name: "Desk", Type: "Computer"}}, "tether")

	out := buf.String()
	for _, want := range []string{"ID", "NAME", "d1", "Desk", "Computer"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
