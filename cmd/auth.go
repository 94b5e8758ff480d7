package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/tether/internal/auth"
	"github.com/jfmyers9/tether/internal/config"
)

const callbackTimeout = 2 * time.Minute

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Spotify",
	Long: `Authenticate with Spotify to control playback.

This command will guide you through the Spotify authorization process:
1. You'll be prompted to enter your Spotify application's client id
2. A browser URL will be provided for you to authorize the application
3. The redirect is captured on the configured redirect URL; if that fails,
   paste the URL your browser was redirected to
4. The token is saved to the local database and refreshed automatically

Create an application at https://developer.spotify.com/dashboard and add the
redirect URL (default http://127.0.0.1:8888/callback) to it.`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Spotify Authentication")
	fmt.Println("======================")
	fmt.Println()

	if cfg.Spotify.ClientID != "" {
		fmt.Printf("Found existing client id: %s\n", cfg.Spotify.ClientID)
		fmt.Print("\nUse existing client id? [Y/n]: ")
		response, err := reader.ReadString('\n')
		if err != nil {
			response = "y"
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "" && response != "y" && response != "yes" {
			cfg.Spotify.ClientID = ""
			cfg.Spotify.ClientSecret = ""
		}
	}

	if cfg.Spotify.ClientID == "" {
		fmt.Print("Enter your Spotify client id: ")
		clientID, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read client id: %w", err)
		}
		cfg.Spotify.ClientID = strings.TrimSpace(clientID)
		if cfg.Spotify.ClientID == "" {
			return fmt.Errorf("client id is required")
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	s, err := openSession(setupLogger(logFile, logLevel))
	if err != nil {
		return err
	}
	defer s.Close()

	flow, err := auth.NewFlow(auth.SpotifyConfig(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURL))
	if err != nil {
		return err
	}

	fmt.Println("\nPlease visit this URL to authorize tether:")
	fmt.Printf("\n  %s\n\n", flow.AuthURL())
	fmt.Printf("Waiting for the redirect to %s ...\n", cfg.Spotify.RedirectURL)

	tok, err := flow.Wait(ctx, callbackTimeout)
	if err != nil {
		fmt.Printf("\nDid not receive the redirect (%v).\n", err)
		fmt.Print("Paste the URL your browser was redirected to: ")
		redirected, readErr := reader.ReadString('\n')
		if readErr != nil {
			return fmt.Errorf("failed to read redirect URL: %w", readErr)
		}
		tok, err = flow.Exchange(ctx, strings.TrimSpace(redirected))
		if err != nil {
			return fmt.Errorf("failed to authorize: %w", err)
		}
	}

	if err := s.accounts.SetAuth(ctx, auth.ServiceSpotify, tok); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Printf("\n✓ Authentication successful!\n")
	fmt.Printf("✓ Token saved to %s\n", cfg.DatabasePath())
	fmt.Println("\nYou can now use 'tether run' to start the synchronizer.")

	return nil
}
