/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/tether/internal/config"
	"github.com/jfmyers9/tether/internal/daemon"
	"github.com/jfmyers9/tether/internal/playback"
	"github.com/jfmyers9/tether/internal/remote"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the currently playing track",
	Long: `Display the track currently playing on Spotify.

The state published by a running 'tether run' is used when present;
otherwise the Web API is queried directly.

The output format can be customized in ~/.config/tether/config.yaml
using a Go template. Available fields: .Name, .Artist, .Album, .Duration,
.Position, .Shuffle, .Repeat

Exit codes:
  0 - Track is currently playing
  1 - No track playing, paused, or not logged in`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	nowCmd.Flags().Bool("marquee", false, "Enable marquee scrolling for long text (overrides config)")
}

// nowPlaying is the data the output template is executed against.
type nowPlaying struct {
	Name      string
	Artist    string
	Album     string
	Duration  time.Duration
	Position  time.Duration
	IsPlaying bool
	Shuffle   bool
	Repeat    string
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if formatFlag, _ := cmd.Flags().GetString("format"); formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}

	np, err := currentlyPlaying(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to get current track: %w", err)
	}

	// Nothing playing exits 1 without output
	if np == nil || !np.IsPlaying {
		os.Exit(1)
		return nil
	}

	output, err := formatTrack(np, cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	marquee := cfg.MarqueeEnabled
	if cmd.Flags().Changed("marquee") {
		marquee, _ = cmd.Flags().GetBool("marquee")
	}

	if width > 0 {
		if marquee {
			output = marqueeText(output, width, cfg.MarqueeSpeed, cfg.MarqueeSeparator, time.Now())
		} else {
			output = padToWidth(output, width)
		}
	}

	fmt.Println(output)
	return nil
}

// currentlyPlaying prefers the daemon's published state and falls back to
// one Web API snapshot.
func currentlyPlaying(ctx context.Context, cfg *config.Config) (*nowPlaying, error) {
	snap, err := daemon.ReadSnapshot(cfg.StatePath())
	switch {
	case err == nil:
		return fromDaemonSnapshot(snap, time.Now()), nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	s, err := openSession(setupLogger(logFile, logLevel))
	if err != nil {
		return nil, err
	}
	defer s.Close()

	remoteSnap, err := s.client.PlaybackState(ctx)
	if err != nil {
		return nil, err
	}
	return fromRemoteSnapshot(remoteSnap), nil
}

func fromDaemonSnapshot(snap *daemon.Snapshot, now time.Time) *nowPlaying {
	if snap.Track == nil {
		return nil
	}
	np := newNowPlaying(*snap.Track)
	np.Position = snap.PositionAt(now)
	np.IsPlaying = snap.IsPlaying
	np.Shuffle = snap.Shuffle
	np.Repeat = snap.Repeat
	return np
}

func fromRemoteSnapshot(snap *remote.Snapshot) *nowPlaying {
	if snap == nil || snap.Item == nil {
		return nil
	}
	np := newNowPlaying(*snap.Item)
	np.Position = time.Duration(snap.ProgressMs) * time.Millisecond
	np.IsPlaying = snap.IsPlaying
	np.Shuffle = snap.ShuffleState
	np.Repeat = playback.RepeatFromRemote(snap.RepeatState).String()
	return np
}

func newNowPlaying(t remote.Track) *nowPlaying {
	return &nowPlaying{
		Name:     t.Name,
		Artist:   t.ArtistNames(),
		Album:    t.Album.Name,
		Duration: t.Duration(),
	}
}

// formatTrack applies the template to the track data
func formatTrack(np *nowPlaying, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, np); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)
	switch {
	case currentWidth < width:
		return text + strings.Repeat(" ", width-currentWidth)
	case currentWidth == width:
		return text
	}

	const ellipsis = "..."
	ellipsisWidth := runewidth.StringWidth(ellipsis)
	if width <= ellipsisWidth {
		return runewidth.Truncate(ellipsis, width, "")
	}

	// Truncate can land one column short of a wide rune
	result := runewidth.Truncate(text, width-ellipsisWidth, "") + ellipsis
	if w := runewidth.StringWidth(result); w < width {
		result += strings.Repeat(" ", width-w)
	}
	return result
}

// marqueeText scrolls text wider than width through a fixed window.
//
// The text is looped as "text{separator}text" and the window starts at
// now.Unix()*speed, so each call is stateless and repeated calls (a tmux
// status-interval refresh, for example) step through it. Text that fits is
// padded instead.
func marqueeText(text string, width, speed int, separator string, now time.Time) string {
	if width <= 0 {
		return text
	}
	if runewidth.StringWidth(text) <= width {
		return padToWidth(text, width)
	}

	looped := []rune(text + separator + text)
	total := len(looped)
	start := int(now.Unix()*int64(speed)) % total

	var b strings.Builder
	used := 0
	for i := 0; i < total; i++ {
		r := looped[(start+i)%total]
		rw := runewidth.RuneWidth(r)
		if used+rw > width {
			break
		}
		b.WriteRune(r)
		used += rw
	}
	if used < width {
		b.WriteString(strings.Repeat(" ", width-used))
	}
	return b.String()
}
