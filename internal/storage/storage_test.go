package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// createTestDB creates an in-memory database for testing
func createTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	prefs := createTestDB(t).Preferences()

	got, err := prefs.Get(ctx, "shuffle")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "" {
		t.Errorf("Get() on missing key = %q, want empty", got)
	}

	if err := prefs.Set(ctx, "shuffle", "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := prefs.Set(ctx, "shuffle", "false"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, err = prefs.Get(ctx, "shuffle")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "false" {
		t.Errorf("Get() = %q, want false", got)
	}
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	tokens := createTestDB(t).Tokens()

	tok, err := tokens.Load(ctx, "spotify")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tok != nil {
		t.Fatalf("Load() on empty store = %+v, want nil", tok)
	}

	expiry := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	want := &oauth2.Token{
		AccessToken:  "access",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		Expiry:       expiry,
	}
	if err := tokens.Save(ctx, "spotify", want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := tokens.Load(ctx, "spotify")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.AccessToken != "access" || got.RefreshToken != "refresh" || got.TokenType != "Bearer" {
		t.Errorf("Load() = %+v", got)
	}
	if !got.Expiry.Equal(expiry) {
		t.Errorf("Expiry = %v, want %v", got.Expiry, expiry)
	}

	if err := tokens.Delete(ctx, "spotify"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := tokens.Load(ctx, "spotify"); got != nil {
		t.Errorf("Load() after Delete = %+v", got)
	}
}

func TestTokensNoExpiry(t *testing.T) {
	ctx := context.Background()
	tokens := createTestDB(t).Tokens()

	if err := tokens.Save(ctx, "spotify", &oauth2.Token{AccessToken: "forever"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := tokens.Load(ctx, "spotify")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Expiry.IsZero() {
		t.Errorf("Expiry = %v, want zero", got.Expiry)
	}

	if err := tokens.Save(ctx, "spotify", nil); err == nil {
		t.Error("Save(nil) error = nil")
	}
}

type item struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

func TestGetOrFetch(t *testing.T) {
	ctx := context.Background()
	cache := createTestDB(t).Cache(time.Hour, zerolog.Nop())
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	fetches := 0
	fetch := func(context.Context) ([]item, error) {
		fetches++
		return []item{{URI: "spotify:track:1", Name: "Around the World"}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrFetch(ctx, cache, "liked_songs", fetch, FetchOptions{})
		if err != nil {
			t.Fatalf("GetOrFetch() error = %v", err)
		}
		if len(got) != 1 || got[0].Name != "Around the World" {
			t.Fatalf("GetOrFetch() = %+v", got)
		}
	}
	if fetches != 1 {
		t.Errorf("fetched %d times, want 1", fetches)
	}

	if _, err := GetOrFetch(ctx, cache, "liked_songs", fetch, FetchOptions{ForceRefresh: true}); err != nil {
		t.Fatalf("GetOrFetch(force) error = %v", err)
	}
	if fetches != 2 {
		t.Errorf("ForceRefresh did not fetch")
	}

	now = now.Add(2 * time.Hour)
	if _, err := GetOrFetch(ctx, cache, "liked_songs", fetch, FetchOptions{}); err != nil {
		t.Fatalf("GetOrFetch(stale) error = %v", err)
	}
	if fetches != 3 {
		t.Errorf("stale entry was served")
	}
}

func TestGetOrFetchError(t *testing.T) {
	ctx := context.Background()
	cache := createTestDB(t).Cache(time.Hour, zerolog.Nop())

	boom := errors.New("503 service unavailable")
	_, err := GetOrFetch(ctx, cache, "playlist_tracks_x", func(context.Context) ([]item, error) {
		return nil, boom
	}, FetchOptions{})
	if !errors.Is(err, boom) {
		t.Errorf("GetOrFetch() error = %v, want %v", err, boom)
	}

	entries, _, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if entries != 0 {
		t.Errorf("failed fetch was cached")
	}
}

func TestCacheSkipsOversizedEntries(t *testing.T) {
	ctx := context.Background()
	cache := createTestDB(t).Cache(time.Hour, zerolog.Nop())

	big := strings.Repeat("x", MaxCacheEntry)
	fetches := 0
	fetch := func(context.Context) (string, error) {
		fetches++
		return big, nil
	}

	for i := 0; i < 2; i++ {
		if _, err := GetOrFetch(ctx, cache, "huge", fetch, FetchOptions{}); err != nil {
			t.Fatalf("GetOrFetch() error = %v", err)
		}
	}
	if fetches != 2 {
		t.Errorf("oversized entry was cached")
	}
}

func TestCacheClear(t *testing.T) {
	ctx := context.Background()
	cache := createTestDB(t).Cache(0, zerolog.Nop())

	for _, key := range []string{"liked_songs", "playlist_tracks_a", "playlist_tracks_b"} {
		if _, err := GetOrFetch(ctx, cache, key, func(context.Context) (int, error) { return 1, nil }, FetchOptions{}); err != nil {
			t.Fatalf("GetOrFetch(%s) error = %v", key, err)
		}
	}

	if err := cache.Invalidate(ctx, "playlist_tracks_a"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	entries, size, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if entries != 2 || size != 2 {
		t.Errorf("Stats() = %d entries, %d bytes; want 2, 2", entries, size)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if entries, _, _ := cache.Stats(ctx); entries != 0 {
		t.Errorf("Stats() after Clear = %d entries", entries)
	}
}
