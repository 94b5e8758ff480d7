package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/tether/internal/playback"
	"github.com/jfmyers9/tether/internal/remote"
)

const controlTimeout = 15 * time.Second

var (
	playPlaylist     string
	playLiked        bool
	playIndex        int
	playForceRefresh bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Resume playback, or play a playlist or Liked Songs",
	Long: `Resume playback on this player's device.

With --playlist or --liked, the tracks are loaded (from the local cache when
fresh) and played from --index, honoring the saved shuffle and repeat
preferences.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if playPlaylist != "" && playLiked {
			return fmt.Errorf("--playlist and --liked are mutually exclusive")
		}
		return withEngine(func(ctx context.Context, s *session, engine *playback.Synchronizer) error {
			var (
				tracks []remote.Track
				err    error
			)
			switch {
			case playPlaylist != "":
				tracks, err = s.catalog().PlaylistTracks(ctx, playPlaylist, playForceRefresh)
			case playLiked:
				tracks, err = s.catalog().LikedSongs(ctx, playForceRefresh)
			default:
				if engine.State().IsPlaying {
					fmt.Println("Already playing")
					return nil
				}
				return engine.TogglePlayPause(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to load tracks: %w", err)
			}
			if len(tracks) == 0 {
				return fmt.Errorf("no tracks to play")
			}
			if playIndex < 0 || playIndex >= len(tracks) {
				return fmt.Errorf("index %d out of range (0-%d)", playIndex, len(tracks)-1)
			}

			if err := engine.PlayTrack(ctx, tracks[playIndex], playIndex, tracks); err != nil {
				return err
			}
			printState(engine.State())
			return nil
		})
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, _ *session, engine *playback.Synchronizer) error {
			if !engine.State().IsPlaying {
				fmt.Println("Already paused")
				return nil
			}
			return engine.TogglePlayPause(ctx)
		})
	},
}

var playPauseCmd = &cobra.Command{
	Use:   "playpause",
	Short: "Toggle play/pause",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, _ *session, engine *playback.Synchronizer) error {
			return engine.TogglePlayPause(ctx)
		})
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to next track",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, _ *session, engine *playback.Synchronizer) error {
			return engine.PlayNext(ctx)
		})
	},
}

var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to previous track",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, _ *session, engine *playback.Synchronizer) error {
			return engine.PlayPrevious(ctx)
		})
	},
}

var shuffleCmd = &cobra.Command{
	Use:   "shuffle",
	Short: "Toggle shuffle",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, _ *session, engine *playback.Synchronizer) error {
			if err := engine.ToggleShuffle(ctx); err != nil {
				return err
			}
			fmt.Printf("Shuffle: %s\n", onOff(engine.State().Shuffle))
			return nil
		})
	},
}

var repeatCmd = &cobra.Command{
	Use:       "repeat [off|all|one]",
	Short:     "Cycle or set the repeat mode",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"off", "all", "one"},
	RunE: func(cmd *cobra.Command, args []string) error {
		target, cycle := playback.RepeatOff, len(args) == 0
		if !cycle {
			mode, ok := playback.ParseRepeatMode(args[0])
			if !ok {
				return fmt.Errorf("invalid repeat mode %q (must be off, all or one)", args[0])
			}
			target = mode
		}

		return withEngine(func(ctx context.Context, _ *session, engine *playback.Synchronizer) error {
			if cycle {
				target = engine.State().Repeat.Next()
			}
			for range 3 {
				if engine.State().Repeat == target {
					break
				}
				if err := engine.CycleRepeat(ctx); err != nil {
					return err
				}
			}
			fmt.Printf("Repeat: %s\n", engine.State().Repeat)
			return nil
		})
	},
}

var seekCmd = &cobra.Command{
	Use:   "seek <seconds>",
	Short: "Seek to a position in the current track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seconds, err := strconv.ParseFloat(args[0], 64)
		if err != nil || seconds < 0 {
			return fmt.Errorf("invalid position %q: must be a non-negative number of seconds", args[0])
		}

		return withEngine(func(ctx context.Context, _ *session, engine *playback.Synchronizer) error {
			return engine.Seek(ctx, time.Duration(seconds*float64(time.Second)))
		})
	},
}

func init() {
	playCmd.Flags().StringVar(&playPlaylist, "playlist", "", "Playlist id to play")
	playCmd.Flags().BoolVar(&playLiked, "liked", false, "Play Liked Songs")
	playCmd.Flags().IntVar(&playIndex, "index", 0, "Index of the first track to play")
	playCmd.Flags().BoolVar(&playForceRefresh, "force-refresh", false, "Bypass the track cache")

	rootCmd.AddCommand(playCmd, pauseCmd, playPauseCmd, nextCmd, prevCmd, shuffleCmd, repeatCmd, seekCmd)
}

// withEngine runs fn against a synchronizer hydrated from one snapshot and
// bound to this player's device.
func withEngine(fn func(ctx context.Context, s *session, engine *playback.Synchronizer) error) error {
	logger := setupLogger(logFile, logLevel)

	s, err := openSession(logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	s.adoptRunningDevice()
	if _, err := s.devices.Resolve(ctx); err != nil {
		if errors.Is(err, remote.ErrDeviceNotFound) {
			return fmt.Errorf("no device named %q found. Is 'tether run' active?", s.devices.ExpectedName())
		}
		return fmt.Errorf("failed to resolve device: %w", err)
	}

	engine := s.engine(nil)
	defer engine.Stop()

	engine.RestorePreferences(ctx)
	engine.UpdateCurrentTrack(ctx)
	return fn(ctx, s, engine)
}

func printState(st playback.State) {
	if st.CurrentTrack == nil {
		return
	}
	fmt.Printf("%s - %s\n", st.CurrentTrack.ArtistNames(), st.CurrentTrack.Name)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
