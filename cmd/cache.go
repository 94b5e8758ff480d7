package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/tether/internal/config"
	"github.com/jfmyers9/tether/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the track listing cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(ctx context.Context, c *storage.Cache) error {
			entries, size, err := c.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%d cached listings, %d bytes\n", entries, size)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached track listings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(ctx context.Context, c *storage.Cache) error {
			if err := c.Clear(ctx); err != nil {
				return err
			}
			fmt.Println("Cache cleared")
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// withCache opens the cache without requiring Spotify credentials.
func withCache(fn func(ctx context.Context, c *storage.Cache) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := storage.Open(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := setupLogger(logFile, logLevel)
	return fn(ctx, db.Cache(time.Duration(cfg.CacheTTLMinutes)*time.Minute, logger))
}
