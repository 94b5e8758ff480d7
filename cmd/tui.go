package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/tether/internal/config"
	"github.com/jfmyers9/tether/internal/tui"
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the synchronizer with a terminal UI",
	Long: `Run the playback synchronizer with a terminal-based user interface.

This does everything 'tether run' does and shows:
- Now playing display with track name, artist, and album
- Progress bar interpolated between polls
- Play state, shuffle, repeat, and rate limit backoff
- The upcoming queue in play order and recently played tracks

Keys: l load, space play/pause, n next, p previous, s shuffle, r repeat,
←/→ seek, q quit.

The load key plays Liked Songs from the first track, or the playlist given
with --playlist. Next, previous and shuffle then navigate that local queue.

Logs go to <data_dir>/tether.log unless --log-file is given.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

var tuiPlaylist string

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringVar(&tuiPlaylist, "playlist", "", "Playlist id the load key plays instead of Liked Songs")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	path := logFile
	if path == "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		path = filepath.Join(cfg.DataDir, "tether.log")
	}
	logger := setupLogger(path, runLogLevel(cmd))

	s, err := openSession(logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d, engine := newDaemon(s)
	done := make(chan error, 1)
	go func() {
		done <- d.RunContext(ctx)
	}()

	app := tui.New(engine)
	app.SetLibrary(s.catalog(), tuiPlaylist)
	go func() {
		<-ctx.Done()
		app.Stop()
	}()

	runErr := app.Run(ctx)
	cancel()

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Daemon exited with error")
	}
	return runErr
}
