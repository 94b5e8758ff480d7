package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/tether/internal/bridge"
	"github.com/jfmyers9/tether/internal/daemon"
	"github.com/jfmyers9/tether/internal/discord"
	"github.com/jfmyers9/tether/internal/mpris"
	"github.com/jfmyers9/tether/internal/playback"
)

var runDeviceID string

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the playback synchronizer",
	Long: `Run the playback synchronizer for this player's Spotify Connect device.

The synchronizer will:
- Resolve the Connect device registered as "<player.name> (<instance id>)"
- Restore the saved shuffle and repeat preferences onto the device
- Poll the remote playback state every second and reconcile local commands
- Back off when the Web API rate limits requests
- Publish now-playing metadata to Discord, MPRIS and desktop notifications
- Handle graceful shutdown on SIGINT/SIGTERM

The process runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDeviceID, "device-id", "", "Known Connect device id (skips device discovery)")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(logFile, runLogLevel(cmd))

	s, err := openSession(logger)
	if err != nil {
		return err
	}
	defer s.Close()

	logger.Info().
		Str("version", version).
		Str("device_name", s.devices.ExpectedName()).
		Msg("Starting tether")

	s.devices.MarkReady(runDeviceID)

	d, _ := newDaemon(s)
	return d.Run()
}

// newDaemon wires the synchronizer, its metadata bridges and the state file
// into a daemon.
func newDaemon(s *session) (*daemon.Daemon, *playback.Synchronizer) {
	var bridges bridge.Multi
	var presence *discord.Presence
	if s.cfg.Discord.AppID != "" {
		presence = discord.New(s.cfg.Discord.AppID, s.logger)
		bridges = append(bridges, presence)
	}
	if s.cfg.Notify.Enabled {
		bridges = append(bridges, bridge.NewNotifier())
	}

	var b bridge.Bridge
	if len(bridges) > 0 {
		b = bridges
	}
	engine := s.engine(b)

	d := daemon.New(daemon.Config{
		StateFile:     s.cfg.StatePath(),
		FlushInterval: time.Second,
	}, engine, s.devices, s.logger)

	if presence != nil {
		presence.SetPosition(func() time.Duration {
			return time.Duration(engine.State().Progress.CurrentTime * float64(time.Second))
		})
		d.Go(presence.Run)
	}
	if s.cfg.MPRIS.Enabled {
		adapter := mpris.New(s.cfg.Player.Name, engine, s.logger)
		engine.AddBridge(adapter)
		d.OnShutdown(adapter.Close)
	}

	return d, engine
}

// runLogLevel defaults the long-running command to info logging.
func runLogLevel(cmd *cobra.Command) string {
	if cmd.Flags().Changed("log-level") {
		return logLevel
	}
	return "info"
}

func setupLogger(logFile, logLevel string) zerolog.Logger {
	// Parse log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	// Create logger
	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
