package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// MaxCacheEntry is the largest encoded value the cache will keep.
const MaxCacheEntry = 4 << 20

// Cache stores JSON-encoded catalog responses with a freshness window.
type Cache struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// Cache returns a catalog cache whose entries stay fresh for ttl.
func (d *DB) Cache(ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		db:     d.db,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// FetchOptions controls a single GetOrFetch call
type FetchOptions struct {
	ForceRefresh bool // Skip the cached value even if fresh
}

// GetOrFetch returns the cached value for key when fresh, otherwise calls
// fetch and caches its result. Cache read and write failures are logged and
// never fail the call.
func GetOrFetch[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error), opts FetchOptions) (T, error) {
	if !opts.ForceRefresh {
		var cached T
		hit, err := c.get(ctx, key, &cached)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Failed to read cache entry")
		}
		if hit {
			c.logger.Debug().Str("key", key).Msg("Cache hit")
			return cached, nil
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := c.put(ctx, key, value); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to write cache entry")
	}
	return value, nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM catalog_cache`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Invalidate removes a single entry.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM catalog_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", key, err)
	}
	return nil
}

// Stats reports the number of entries and their total encoded size.
func (c *Cache) Stats(ctx context.Context) (entries int, size int64, err error) {
	row := c.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size), 0) FROM catalog_cache`)
	if err := row.Scan(&entries, &size); err != nil {
		return 0, 0, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return entries, size, nil
}

func (c *Cache) get(ctx context.Context, key string, dst any) (bool, error) {
	var (
		value     []byte
		fetchedAt int64
	)
	err := c.db.QueryRowContext(ctx, `SELECT value, fetched_at FROM catalog_cache WHERE key = ?`, key).Scan(&value, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query cache: %w", err)
	}

	if c.ttl > 0 && c.now().Sub(time.UnixMilli(fetchedAt)) > c.ttl {
		return false, nil
	}
	if err := json.Unmarshal(value, dst); err != nil {
		return false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return true, nil
}

func (c *Cache) put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if len(data) > MaxCacheEntry {
		c.logger.Debug().Str("key", key).Int("size", len(data)).Msg("Entry too large to cache")
		return nil
	}

	query := `
		INSERT INTO catalog_cache (key, value, size, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			size = excluded.size,
			fetched_at = excluded.fetched_at
	`
	if _, err := c.db.ExecContext(ctx, query, key, data, len(data), c.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}
