package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Flow runs the authorization code flow with PKCE against a loopback
// redirect URL.
type Flow struct {
	config   *oauth2.Config
	state    string
	verifier string

	once   sync.Once
	result chan flowResult
}

type flowResult struct {
	token *oauth2.Token
	err   error
}

// NewFlow prepares a flow for cfg with a random state token.
func NewFlow(cfg *oauth2.Config) (*Flow, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	return &Flow{
		config:   cfg,
		state:    base64.RawURLEncoding.EncodeToString(buf),
		verifier: oauth2.GenerateVerifier(),
		result:   make(chan flowResult, 1),
	}, nil
}

// AuthURL is the URL the user opens to grant access.
func (f *Flow) AuthURL() string {
	return f.config.AuthCodeURL(f.state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(f.verifier))
}

// Exchange trades a pasted redirect URL, or a bare code, for a token.
func (f *Flow) Exchange(ctx context.Context, redirected string) (*oauth2.Token, error) {
	code := redirected
	if u, err := url.Parse(redirected); err == nil && u.Query().Get("code") != "" {
		if u.Query().Get("state") != f.state {
			return nil, errors.New("invalid state parameter")
		}
		code = u.Query().Get("code")
	}
	if code == "" {
		return nil, errors.New("no authorization code")
	}

	tok, err := f.config.Exchange(ctx, code, oauth2.VerifierOption(f.verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return tok, nil
}

// ServeHTTP handles the redirect back from the authorization server.
func (f *Flow) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("state") != f.state {
		f.send(flowResult{err: errors.New("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		f.send(flowResult{err: fmt.Errorf("authorization failed: %s", q.Get("error"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	tok, err := f.config.Exchange(r.Context(), code, oauth2.VerifierOption(f.verifier))
	if err != nil {
		f.send(flowResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	f.send(flowResult{token: tok})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Authorization successful. You can close this window and return to the terminal.")
}

func (f *Flow) send(r flowResult) {
	f.once.Do(func() { f.result <- r })
}

// Wait serves the redirect URL's path on its host and blocks until the
// callback arrives, ctx is done, or timeout passes.
func (f *Flow) Wait(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	u, err := url.Parse(f.config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect url: %w", err)
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", u.Host, err)
	}

	mux := http.NewServeMux()
	path := u.Path
	if path == "" {
		path = "/"
	}
	mux.Handle(path, f)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-f.result:
		return r.token, r.err
	case err := <-serveErr:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("authorization timed out after %s", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
