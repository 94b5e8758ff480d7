package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Preferences is a string key/value store.
type Preferences struct {
	db *sql.DB
}

// Preferences returns the preference store.
func (d *DB) Preferences() *Preferences {
	return &Preferences{db: d.db}
}

// Get returns the value for key, or "" when it has never been set.
func (p *Preferences) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key.
func (p *Preferences) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := p.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}
