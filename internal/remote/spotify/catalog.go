package spotify

import (
	"context"

	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"

	"github.com/jfmyers9/tether/internal/remote"
)

// LikedSongs returns every track in the user's library, most recently saved
// first.
func (c *Client) LikedSongs(ctx context.Context) ([]remote.Track, error) {
	var tracks []remote.Track
	for offset := 0; ; offset += pageSize {
		if err := c.begin(ctx, "liked songs"); err != nil {
			return nil, err
		}
		page, err := c.api.CurrentUsersTracks(ctx, spotify.Limit(pageSize), spotify.Offset(offset))
		if err != nil {
			return nil, classify("liked songs", err)
		}
		for i := range page.Tracks {
			tracks = append(tracks, convertTrack(&page.Tracks[i].FullTrack))
		}
		if len(page.Tracks) < pageSize || page.Next == "" {
			break
		}
	}
	c.logger.Debug().Int("tracks", len(tracks)).Msg("Fetched liked songs")
	return tracks, nil
}

// PlaylistTracks returns the playable tracks of a playlist. Episodes and
// local files are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]remote.Track, error) {
	var tracks []remote.Track
	for offset := 0; ; offset += pageSize {
		if err := c.begin(ctx, "playlist tracks"); err != nil {
			return nil, err
		}
		page, err := c.api.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(pageSize), spotify.Offset(offset))
		if err != nil {
			return nil, classify("playlist tracks", err)
		}
		for _, item := range page.Items {
			if item.Track.Track == nil || item.IsLocal || item.Track.Track.URI == "" {
				continue
			}
			tracks = append(tracks, convertTrack(item.Track.Track))
		}
		if len(page.Items) < pageSize || page.Next == "" {
			break
		}
	}
	c.logger.Debug().Str("playlist", playlistID).Int("tracks", len(tracks)).Msg("Fetched playlist tracks")
	return tracks, nil
}

// convertTrack keeps only the fields the player needs.
func convertTrack(t *spotify.FullTrack) remote.Track {
	album := remote.Album{ID: t.Album.ID.String(), Name: t.Album.Name}
	if len(t.Album.Images) > 0 {
		album.ImageURL = t.Album.Images[0].URL
	}
	return remote.Track{
		ID:   t.ID.String(),
		URI:  string(t.URI),
		Name: t.Name,
		Artists: lo.Map(t.Artists, func(a spotify.SimpleArtist, _ int) remote.Artist {
			return remote.Artist{ID: a.ID.String(), Name: a.Name}
		}),
		Album:      album,
		DurationMs: int(t.Duration),
		Type:       "track",
	}
}
