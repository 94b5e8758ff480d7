package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/tether/internal/auth"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored Spotify token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(setupLogger(logFile, logLevel))
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.accounts.Logout(context.Background(), auth.ServiceSpotify); err != nil {
			return fmt.Errorf("failed to log out: %w", err)
		}
		fmt.Println("Logged out of Spotify")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
