package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Tokens persists one OAuth token per service.
type Tokens struct {
	db *sql.DB
}

// Tokens returns the token store.
func (d *DB) Tokens() *Tokens {
	return &Tokens{db: d.db}
}

// Load returns the token saved for service, or nil when there is none.
func (t *Tokens) Load(ctx context.Context, service string) (*oauth2.Token, error) {
	query := `
		SELECT access_token, token_type, refresh_token, expiry
		FROM tokens
		WHERE service = ?
	`

	var (
		tok    oauth2.Token
		expiry int64
	)
	err := t.db.QueryRowContext(ctx, query, service).Scan(&tok.AccessToken, &tok.TokenType, &tok.RefreshToken, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token for %s: %w", service, err)
	}
	if expiry != 0 {
		tok.Expiry = time.UnixMilli(expiry)
	}
	return &tok, nil
}

// Save stores tok for service, replacing any previous token.
func (t *Tokens) Save(ctx context.Context, service string, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("nil token")
	}

	var expiry int64
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.UnixMilli()
	}

	query := `
		INSERT INTO tokens (service, access_token, token_type, refresh_token, expiry)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(service) DO UPDATE SET
			access_token = excluded.access_token,
			token_type = excluded.token_type,
			refresh_token = excluded.refresh_token,
			expiry = excluded.expiry
	`
	if _, err := t.db.ExecContext(ctx, query, service, tok.AccessToken, tok.TokenType, tok.RefreshToken, expiry); err != nil {
		return fmt.Errorf("failed to save token for %s: %w", service, err)
	}
	return nil
}

// Delete removes the token for service.
func (t *Tokens) Delete(ctx context.Context, service string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM tokens WHERE service = ?`, service); err != nil {
		return fmt.Errorf("failed to delete token for %s: %w", service, err)
	}
	return nil
}
