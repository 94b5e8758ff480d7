// Package auth manages per-service OAuth credentials: acquisition through
// the authorization code flow, persistence, and early refresh.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// ServiceSpotify names the Spotify account.
const ServiceSpotify = "spotify"

// RefreshThreshold is how long before expiry a token is refreshed.
const RefreshThreshold = 5 * time.Minute

// TokenStore persists tokens per service.
type TokenStore interface {
	Load(ctx context.Context, service string) (*oauth2.Token, error)
	Save(ctx context.Context, service string, tok *oauth2.Token) error
	Delete(ctx context.Context, service string) error
}

// SpotifyConfig returns the OAuth configuration for the Spotify Accounts
// service. clientSecret may be empty when PKCE is used.
func SpotifyConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
			spotifyauth.ScopeUserReadCurrentlyPlaying,
			spotifyauth.ScopeStreaming,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopePlaylistReadCollaborative,
			spotifyauth.ScopeUserLibraryRead,
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}
}

// Accounts hands out access tokens, refreshing them shortly before they
// expire.
type Accounts struct {
	store   TokenStore
	logger  zerolog.Logger
	mu      sync.Mutex
	configs map[string]*oauth2.Config
}

// NewAccounts creates an Accounts backed by store.
func NewAccounts(store TokenStore, logger zerolog.Logger) *Accounts {
	return &Accounts{
		store:   store,
		logger:  logger.With().Str("component", "auth").Logger(),
		configs: make(map[string]*oauth2.Config),
	}
}

// Register sets the OAuth configuration used to refresh service's tokens.
func (a *Accounts) Register(service string, cfg *oauth2.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configs[service] = cfg
}

// AccessToken returns a usable access token for service, or "" when the
// user is not logged in or the token has expired and could not be
// refreshed. A token close to expiry is refreshed and saved first; if that
// fails while it is still valid it is returned as is.
func (a *Accounts) AccessToken(ctx context.Context, service string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tok, err := a.store.Load(ctx, service)
	if err != nil {
		return "", err
	}
	if tok == nil || tok.AccessToken == "" {
		return "", nil
	}
	if tok.Expiry.IsZero() || time.Until(tok.Expiry) > RefreshThreshold {
		return tok.AccessToken, nil
	}

	fresh, err := a.refresh(ctx, service, tok)
	if err != nil {
		stillValid := time.Now().Before(tok.Expiry)
		a.logger.Warn().
			Err(err).
			Str("service", service).
			Bool("still_valid", stillValid).
			Msg("Token refresh failed")
		if stillValid {
			return tok.AccessToken, nil
		}
		return "", nil
	}

	if fresh.AccessToken != tok.AccessToken {
		if err := a.store.Save(ctx, service, fresh); err != nil {
			a.logger.Warn().Err(err).Str("service", service).Msg("Failed to save refreshed token")
		}
		a.logger.Debug().Str("service", service).Time("expiry", fresh.Expiry).Msg("Token refreshed")
	}
	return fresh.AccessToken, nil
}

func (a *Accounts) refresh(ctx context.Context, service string, tok *oauth2.Token) (*oauth2.Token, error) {
	cfg := a.configs[service]
	if cfg == nil {
		return nil, fmt.Errorf("no oauth configuration for %s", service)
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token for %s", service)
	}

	// The refresher is seeded with only the refresh token so it always
	// contacts the token endpoint.
	refresher := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	return oauth2.ReuseTokenSourceWithExpiry(tok, refresher, RefreshThreshold).Token()
}

// SetAuth saves a newly acquired token.
func (a *Accounts) SetAuth(ctx context.Context, service string, tok *oauth2.Token) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Save(ctx, service, tok)
}

// Logout forgets the token for service.
func (a *Accounts) Logout(ctx context.Context, service string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Delete(ctx, service)
}

// TokenSource adapts Accounts to oauth2.TokenSource for one service.
func (a *Accounts) TokenSource(ctx context.Context, service string) oauth2.TokenSource {
	return &accountSource{accounts: a, ctx: ctx, service: service}
}

type accountSource struct {
	accounts *Accounts
	ctx      context.Context
	service  string
}

// ErrNotLoggedIn is returned by TokenSource when no usable token exists.
var ErrNotLoggedIn = fmt.Errorf("not logged in")

func (s *accountSource) Token() (*oauth2.Token, error) {
	access, err := s.accounts.AccessToken(s.ctx, s.service)
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, fmt.Errorf("%s: %w", s.service, ErrNotLoggedIn)
	}
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
}
