// Package catalog serves library and playlist track listings through the
// local cache.
package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/jfmyers9/tether/internal/remote"
	"github.com/jfmyers9/tether/internal/storage"
)

// LikedSongsKey is the cache key for the user's saved tracks.
const LikedSongsKey = "liked_songs"

// PlaylistKey returns the cache key for a playlist's tracks.
func PlaylistKey(playlistID string) string {
	return "playlist_tracks_" + playlistID
}

// Source fetches listings from the remote service.
type Source interface {
	LikedSongs(ctx context.Context) ([]remote.Track, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]remote.Track, error)
}

// Catalog reads listings from cache, falling back to the source.
type Catalog struct {
	source Source
	cache  *storage.Cache
	logger zerolog.Logger
}

// New creates a Catalog.
func New(source Source, cache *storage.Cache, logger zerolog.Logger) *Catalog {
	return &Catalog{
		source: source,
		cache:  cache,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// LikedSongs returns the saved tracks. force bypasses a fresh cache entry.
func (c *Catalog) LikedSongs(ctx context.Context, force bool) ([]remote.Track, error) {
	tracks, err := storage.GetOrFetch(ctx, c.cache, LikedSongsKey, func(ctx context.Context) ([]remote.Track, error) {
		tracks, err := c.source.LikedSongs(ctx)
		if err != nil {
			return nil, err
		}
		return minimize(tracks), nil
	}, storage.FetchOptions{ForceRefresh: force})
	if err != nil {
		return nil, fmt.Errorf("failed to load liked songs: %w", err)
	}
	return tracks, nil
}

// PlaylistTracks returns a playlist's tracks. force bypasses a fresh cache
// entry.
func (c *Catalog) PlaylistTracks(ctx context.Context, playlistID string, force bool) ([]remote.Track, error) {
	tracks, err := storage.GetOrFetch(ctx, c.cache, PlaylistKey(playlistID), func(ctx context.Context) ([]remote.Track, error) {
		tracks, err := c.source.PlaylistTracks(ctx, playlistID)
		if err != nil {
			return nil, err
		}
		return minimize(tracks), nil
	}, storage.FetchOptions{ForceRefresh: force})
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist %s: %w", playlistID, err)
	}
	return tracks, nil
}

// minimize drops unplayable entries and copies only the cached fields.
func minimize(tracks []remote.Track) []remote.Track {
	playable := lo.Filter(tracks, func(t remote.Track, _ int) bool {
		return t.URI != ""
	})
	return lo.Map(playable, func(t remote.Track, _ int) remote.Track {
		return remote.Track{
			ID:   t.ID,
			URI:  t.URI,
			Name: t.Name,
			Artists: lo.Map(t.Artists, func(a remote.Artist, _ int) remote.Artist {
				return remote.Artist{ID: a.ID, Name: a.Name}
			}),
			Album: remote.Album{
				ID:       t.Album.ID,
				Name:     t.Album.Name,
				ImageURL: t.Album.ImageURL,
			},
			DurationMs: t.DurationMs,
			Type:       t.Type,
		}
	})
}
