package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/tether/internal/remote"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List Spotify Connect devices",
	Long: `List the Connect devices visible to the account.

Devices registered under this player's name are marked with ●; the active
device is highlighted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(setupLogger(logFile, logLevel))
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		devices, err := s.client.Devices(ctx)
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		if len(devices) == 0 {
			fmt.Println("No devices found")
			return nil
		}

		renderDevices(os.Stdout, devices, s.cfg.Player.Name)
		fmt.Printf("\nThis player registers as: %s\n", s.devices.ExpectedName())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func renderDevices(w io.Writer, devices []remote.Device, playerName string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "ID", "Name", "Type", "Active"})
	t.AppendRows(deviceRows(devices, playerName))
	t.Render()
}

func deviceRows(devices []remote.Device, playerName string) []table.Row {
	return lo.Map(devices, func(d remote.Device, _ int) table.Row {
		colorFunc := fmt.Sprint
		if d.IsActive {
			colorFunc = text.FgGreen.Sprint
		}

		indicator := " "
		if playerName != "" && strings.HasPrefix(d.Name, playerName) {
			indicator = "●"
		}

		active := ""
		if d.IsActive {
			active = "yes"
		}

		return table.Row{
			indicator,
			colorFunc(d.ID),
			colorFunc(d.Name),
			colorFunc(d.Type),
			colorFunc(active),
		}
	})
}
