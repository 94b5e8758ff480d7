// Package spotify binds remote.Client to the Spotify Web API.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/jfmyers9/tether/internal/remote"
)

// pageSize is the largest page the library and playlist endpoints accept.
const pageSize = 50

// Client implements remote.Client over the Spotify Web API.
type Client struct {
	api     *spotify.Client
	tokens  oauth2.TokenSource
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL string
	rps     float64
	base    http.RoundTripper
	logger  zerolog.Logger
}

// WithBaseURL points the client at a different API root. Used in tests.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithRequestsPerSecond caps the outgoing request rate.
func WithRequestsPerSecond(rps float64) Option {
	return func(o *options) { o.rps = rps }
}

// WithTransport sets the underlying HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a client that authenticates every request with tokens.
func New(tokens oauth2.TokenSource, opts ...Option) *Client {
	o := options{rps: 5, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: tokens, Base: o.base},
		Timeout:   30 * time.Second,
	}

	var apiOpts []spotify.ClientOption
	if o.baseURL != "" {
		apiOpts = append(apiOpts, spotify.WithBaseURL(o.baseURL))
	}

	return &Client{
		api:     spotify.New(httpClient, apiOpts...),
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(o.rps), 1),
		logger:  o.logger.With().Str("component", "spotify").Logger(),
	}
}

// begin checks for a credential and waits for the limiter. It fails with
// remote.ErrAuthentication without touching the network when no token is
// available.
func (c *Client) begin(ctx context.Context, op string) error {
	tok, err := c.tokens.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return &remote.Error{Kind: remote.KindAuthentication, Op: op, Err: err}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &remote.Error{Kind: remote.KindCommand, Op: op, Err: err}
	}
	return nil
}

// classify maps a library error onto the remote error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return &remote.Error{Kind: kindForStatus(apiErr.Status), Op: op, Status: apiErr.Status, Err: err}
	}

	// Empty error bodies surface as plain "spotify: HTTP <status>" errors.
	var status int
	if _, scanErr := fmt.Sscanf(err.Error(), "spotify: HTTP %d", &status); scanErr == nil {
		return &remote.Error{Kind: kindForStatus(status), Op: op, Status: status, Err: err}
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &remote.Error{Kind: remote.KindTransport, Op: op, Err: err}
	}

	return &remote.Error{Kind: remote.KindCommand, Op: op, Err: err}
}

func kindForStatus(status int) remote.Kind {
	switch status {
	case http.StatusUnauthorized:
		return remote.KindAuthentication
	case http.StatusTooManyRequests:
		return remote.KindRateLimited
	default:
		return remote.KindCommand
	}
}

func playOpts(deviceID string) *spotify.PlayOptions {
	if deviceID == "" {
		return nil
	}
	id := spotify.ID(deviceID)
	return &spotify.PlayOptions{DeviceID: &id}
}

// Devices lists the account's Connect devices.
func (c *Client) Devices(ctx context.Context) ([]remote.Device, error) {
	if err := c.begin(ctx, "devices"); err != nil {
		return nil, err
	}
	devices, err := c.api.PlayerDevices(ctx)
	if err != nil {
		return nil, classify("devices", err)
	}
	return lo.Map(devices, func(d spotify.PlayerDevice, _ int) remote.Device {
		return remote.Device{
			ID:       d.ID.String(),
			Name:     d.Name,
			Type:     d.Type,
			IsActive: d.Active,
		}
	}), nil
}

// PlaybackState returns the current player snapshot. An idle account yields
// an empty snapshot.
func (c *Client) PlaybackState(ctx context.Context) (*remote.Snapshot, error) {
	if err := c.begin(ctx, "playback state"); err != nil {
		return nil, err
	}
	state, err := c.api.PlayerState(ctx)
	if err != nil {
		return nil, classify("playback state", err)
	}
	if state == nil {
		return &remote.Snapshot{RepeatState: remote.RepeatOff}, nil
	}

	snap := &remote.Snapshot{
		IsPlaying:    state.Playing,
		ProgressMs:   int(state.Progress),
		ShuffleState: state.ShuffleState,
		RepeatState:  remote.RepeatState(state.RepeatState),
		DeviceID:     state.Device.ID.String(),
	}
	if snap.RepeatState == "" {
		snap.RepeatState = remote.RepeatOff
	}
	if state.Item != nil && state.Item.URI != "" {
		track := convertTrack(state.Item)
		snap.Item = &track
	}
	return snap, nil
}

// Play starts playback of opts.URIs, or resumes when there are none.
func (c *Client) Play(ctx context.Context, opts remote.PlayOptions) error {
	if err := c.begin(ctx, "play"); err != nil {
		return err
	}
	po := &spotify.PlayOptions{}
	if opts.DeviceID != "" {
		id := spotify.ID(opts.DeviceID)
		po.DeviceID = &id
	}
	if len(opts.URIs) > 0 {
		po.URIs = lo.Map(opts.URIs, func(u string, _ int) spotify.URI { return spotify.URI(u) })
	}
	return classify("play", c.api.PlayOpt(ctx, po))
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context, deviceID string) error {
	if err := c.begin(ctx, "pause"); err != nil {
		return err
	}
	return classify("pause", c.api.PauseOpt(ctx, playOpts(deviceID)))
}

// SkipToNext advances the service's own queue.
func (c *Client) SkipToNext(ctx context.Context, deviceID string) error {
	if err := c.begin(ctx, "next"); err != nil {
		return err
	}
	return classify("next", c.api.NextOpt(ctx, playOpts(deviceID)))
}

// SkipToPrevious steps back in the service's own queue.
func (c *Client) SkipToPrevious(ctx context.Context, deviceID string) error {
	if err := c.begin(ctx, "previous"); err != nil {
		return err
	}
	return classify("previous", c.api.PreviousOpt(ctx, playOpts(deviceID)))
}

// SetShuffle sets the service's shuffle flag.
func (c *Client) SetShuffle(ctx context.Context, on bool, deviceID string) error {
	if err := c.begin(ctx, "shuffle"); err != nil {
		return err
	}
	return classify("shuffle", c.api.ShuffleOpt(ctx, on, playOpts(deviceID)))
}

// SetRepeat sets the repeat mode.
func (c *Client) SetRepeat(ctx context.Context, state remote.RepeatState, deviceID string) error {
	if err := c.begin(ctx, "repeat"); err != nil {
		return err
	}
	return classify("repeat", c.api.RepeatOpt(ctx, string(state), playOpts(deviceID)))
}

// Seek moves the playback position.
func (c *Client) Seek(ctx context.Context, position time.Duration, deviceID string) error {
	if err := c.begin(ctx, "seek"); err != nil {
		return err
	}
	return classify("seek", c.api.SeekOpt(ctx, int(position.Milliseconds()), playOpts(deviceID)))
}

var _ remote.Client = (*Client)(nil)
