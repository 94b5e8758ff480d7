package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/jfmyers9/tether/internal/playback"
)

// renderNowPlaying formats the now playing panel
func renderNowPlaying(st playback.State) string {
	if st.CurrentTrack == nil {
		if st.IsBuffering {
			return "\n\n[yellow]Loading...[-]"
		}
		return "\n\n[gray]No track playing[-]"
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(st.CurrentTrack.Name)))
	sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(st.CurrentTrack.ArtistNames())))
	sb.WriteString(fmt.Sprintf("[gray]%s[-]", tview.Escape(st.CurrentTrack.Album.Name)))

	// Play state indicator
	var stateIcon string
	switch st.Phase() {
	case playback.PhaseBuffering:
		stateIcon = "[yellow]…[-]" // Ellipsis
	case playback.PhasePlaying:
		stateIcon = "[green]▶[-]" // Play triangle
	default:
		stateIcon = "[yellow]⏸[-]" // Pause icon
	}
	sb.WriteString(fmt.Sprintf("\n\n%s", stateIcon))
	return sb.String()
}

// renderProgress formats the position, bar and duration line
func renderProgress(st playback.State, width int) string {
	if st.CurrentTrack == nil {
		return ""
	}
	position := fromSeconds(st.Progress.CurrentTime)
	duration := fromSeconds(st.Progress.Duration)
	if duration == 0 {
		duration = st.CurrentTrack.Duration()
	}
	return fmt.Sprintf("%s %s %s", formatDuration(position), buildProgressBar(position, duration, width), formatDuration(duration))
}

// renderStatus formats the status panel
func renderStatus(st playback.State, lastErr string) string {
	var sb strings.Builder

	shuffle := "[gray]off[-]"
	if st.Shuffle {
		shuffle = "[green]on[-]"
	}
	repeat := "[gray]off[-]"
	switch st.Repeat {
	case playback.RepeatAll:
		repeat = "[green]all[-]"
	case playback.RepeatOne:
		repeat = "[green]one[-]"
	}

	sb.WriteString(fmt.Sprintf("Shuffle: %s\n", shuffle))
	sb.WriteString(fmt.Sprintf("Repeat:  %s\n", repeat))
	sb.WriteString(fmt.Sprintf("State:   %s\n", st.Phase()))
	if len(st.Queue) > 0 && st.CurrentIndex >= 0 {
		sb.WriteString(fmt.Sprintf("Queue:   %d/%d\n", st.CurrentIndex+1, len(st.Queue)))
	}
	if lastErr != "" {
		sb.WriteString(fmt.Sprintf("\n[red]%s[-]", tview.Escape(lastErr)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderQueue lists up to rows tracks after the current one
func renderQueue(st playback.State, rows int) string {
	if len(st.Queue) == 0 {
		return "[gray]Queue is empty[-]"
	}

	start := st.CurrentIndex + 1
	if start >= len(st.Queue) {
		if st.Repeat != playback.RepeatAll {
			return "[gray]End of queue[-]"
		}
		start = 0
	}
	end := min(start+rows, len(st.Queue))

	var sb strings.Builder
	for i, track := range st.Queue[start:end] {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("[gray]%2d[-] [white]%s[-] [gray]%s[-]",
			start+i+1,
			tview.Escape(truncate(track.Name, 32)),
			tview.Escape(truncate(track.ArtistNames(), 24)),
		))
	}
	return sb.String()
}

// renderRecent formats the recent tracks panel
func renderRecent(tracks []RecentTrack) string {
	if len(tracks) == 0 {
		return "[gray]No recent tracks[-]"
	}

	var sb strings.Builder
	for i, track := range tracks {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("[white]%s[-]", tview.Escape(truncate(track.Name, 20))))
	}
	return sb.String()
}

// truncate shortens s to n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func fromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(position, duration time.Duration, width int) string {
	if duration == 0 || width <= 0 {
		return strings.Repeat("-", max(width, 0))
	}

	progress := float64(position) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	filled := int(progress * float64(width))
	empty := width - filled

	bar := "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"

	return bar
}

// formatDuration formats a duration as MM:SS or HH:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
