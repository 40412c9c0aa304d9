package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	perrors "github.com/jrsteele09/go-platform-client/internal/errors"
	"github.com/jrsteele09/go-platform-client/model"
	"github.com/jrsteele09/go-platform-client/tokens"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	HeaderDeviceUID = "X-Device-UID"
	HeaderPlatform  = "X-Platform"

	refreshPath = "/auth/refresh"
)

// Credentials is the token state the gateway reads and rotates.
// *tokens.Store satisfies it.
type Credentials interface {
	Active() (tokens.Credential, bool)
	Platform() (tokens.Credential, bool)
	PlatformToken() string
	RefreshToken() string
	IsAuthenticated() bool
	RotateTokens(previousRefreshToken string, update tokens.TokenUpdate) bool
	Logout()
}

// DeviceIDSource supplies the X-Device-UID header.
type DeviceIDSource interface {
	UID(ctx context.Context) (string, error)
}

// SystemRenewer re-issues the system token for the current system after the
// platform token has been refreshed. On failure it must leave the session in
// platform context.
type SystemRenewer interface {
	Renew(ctx context.Context) error
}

// Gateway sends authenticated JSON requests to the platform API and recovers
// from an expired platform token with a single refresh and replay.
type Gateway struct {
	baseURL  string
	client   *http.Client
	creds    Credentials
	device   DeviceIDSource
	platform string
	log      zerolog.Logger

	flights singleflight.Group

	hookMu    sync.RWMutex
	onExpired func()
	renewer   SystemRenewer
}

type Option func(*Gateway)

func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.client = &http.Client{Timeout: timeout}
	}
}

func WithDeviceID(device DeviceIDSource) Option {
	return func(g *Gateway) {
		g.device = device
	}
}

// WithPlatformHeader sets the X-Platform value. Defaults to "web".
func WithPlatformHeader(platform string) Option {
	return func(g *Gateway) {
		g.platform = platform
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(g *Gateway) {
		g.log = log
	}
}

// New creates a gateway rooted at baseURL, which already includes the API
// version prefix.
func New(baseURL string, creds Credentials, options ...Option) *Gateway {
	g := &Gateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
		creds:    creds,
		platform: "web",
		log:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// OnSessionExpired registers the hook run after the gateway gives up on the
// session and clears the token store.
func (g *Gateway) OnSessionExpired(fn func()) {
	g.hookMu.Lock()
	defer g.hookMu.Unlock()
	g.onExpired = fn
}

// SetSystemRenewer registers the handler used to re-issue an expired system
// token.
func (g *Gateway) SetSystemRenewer(r SystemRenewer) {
	g.hookMu.Lock()
	defer g.hookMu.Unlock()
	g.renewer = r
}

type requestOptions struct {
	platformToken bool
	noRetry       bool
}

type RequestOption func(*requestOptions)

// WithPlatformToken sends the platform token whatever the active kind.
func WithPlatformToken() RequestOption {
	return func(o *requestOptions) {
		o.platformToken = true
	}
}

// WithoutRetry returns a 401 as-is instead of refreshing.
func WithoutRetry() RequestOption {
	return func(o *requestOptions) {
		o.noRetry = true
	}
}

type retriedKey struct{}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

// isRetried reports whether ctx belongs to a request that already went
// through 401 recovery, including calls made by the renewer on its behalf.
func isRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey{}).(bool)
	return retried
}

// Do sends body as JSON to path and decodes the envelope's data into out. out
// may be nil. Failures reported by the API are returned as *errors.APIError.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any, options ...RequestOption) error {
	var ro requestOptions
	for _, opt := range options {
		opt(&ro)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return errors.Wrap(err, "[Gateway.Do] encode request")
		}
	}

	sent := g.credential(ro)
	platformAtSend := g.creds.PlatformToken()
	err := g.send(ctx, method, path, payload, sent.Token, true, out)
	if err == nil || !perrors.IsUnauthorized(err) || ro.noRetry || isRetried(ctx) {
		return err
	}

	ctx = markRetried(ctx)
	replay, err := g.recoverUnauthorized(ctx, ro, sent, platformAtSend, err)
	if err != nil {
		return err
	}
	return g.send(ctx, method, path, payload, g.credential(replay).Token, true, out)
}

func (g *Gateway) credential(ro requestOptions) tokens.Credential {
	if ro.platformToken {
		cred, _ := g.creds.Platform()
		return cred
	}
	cred, _ := g.creds.Active()
	return cred
}

// recoverUnauthorized gets fresh credentials after a 401 and returns the
// options to replay with. A non-nil error means the request must not be
// replayed.
func (g *Gateway) recoverUnauthorized(ctx context.Context, ro requestOptions, sent tokens.Credential, platformAtSend string, cause error) (requestOptions, error) {
	// Another request already recovered while this one was in flight.
	if current := g.credential(ro); current.Token.AccessToken != "" && current.Token.AccessToken != sent.Token.AccessToken {
		return ro, nil
	}

	if g.creds.RefreshToken() == "" {
		g.log.Info().Str("reason", "no refresh token").Msg("session expired")
		g.expire()
		return ro, cause
	}

	if err := g.refreshPlatform(ctx, platformAtSend); err != nil {
		return ro, err
	}
	if sent.Kind != model.TokenKindSystem {
		return ro, nil
	}

	g.hookMu.RLock()
	renewer := g.renewer
	g.hookMu.RUnlock()
	if renewer == nil {
		ro.platformToken = true
		return ro, nil
	}
	if err := g.renewSystem(ctx, renewer, sent.Token.AccessToken); err != nil {
		g.log.Warn().Err(err).Msg("system token renewal failed")
		return ro, cause
	}
	return ro, nil
}

// refreshPlatform rotates the platform token. Concurrent callers share one
// refresh call, and a caller whose token was already rotated skips it.
func (g *Gateway) refreshPlatform(ctx context.Context, stale string) error {
	_, err, _ := g.flights.Do("refresh", func() (any, error) {
		if current := g.creds.PlatformToken(); current != "" && current != stale {
			return nil, nil
		}
		refreshToken := g.creds.RefreshToken()
		if refreshToken == "" {
			return nil, perrors.ErrRefreshFailed
		}

		var resp model.RefreshResponse
		if err := g.send(ctx, http.MethodPost, refreshPath, mustJSON(model.RefreshRequest{RefreshToken: refreshToken}), oauth2.Token{}, false, &resp); err != nil {
			g.log.Warn().Err(err).Msg("token refresh failed")
			g.expire()
			return nil, fmt.Errorf("%w: %w", perrors.ErrRefreshFailed, err)
		}
		if resp.PlatformToken == "" {
			g.expire()
			return nil, fmt.Errorf("%w: %w", perrors.ErrRefreshFailed, perrors.ErrInvalidResponse)
		}

		rotated := g.creds.RotateTokens(refreshToken, tokens.TokenUpdate{
			PlatformToken: resp.PlatformToken,
			RefreshToken:  resp.RefreshToken,
			ExpiresIn:     time.Duration(resp.ExpiresIn) * time.Second,
		})
		if !rotated {
			return nil, fmt.Errorf("%w: session changed during refresh", perrors.ErrRefreshFailed)
		}
		g.log.Debug().Msg("platform token refreshed")
		return nil, nil
	})
	return err
}

func (g *Gateway) renewSystem(ctx context.Context, renewer SystemRenewer, stale string) error {
	_, err, _ := g.flights.Do("renew", func() (any, error) {
		if cred, ok := g.creds.Active(); !ok || cred.Kind != model.TokenKindSystem || cred.Token.AccessToken != stale {
			return nil, nil
		}
		return nil, renewer.Renew(ctx)
	})
	return err
}

// expire clears the token store and runs the session-expired hook once per
// authenticated session.
func (g *Gateway) expire() {
	wasAuthenticated := g.creds.IsAuthenticated()
	g.creds.Logout()

	g.hookMu.RLock()
	hook := g.onExpired
	g.hookMu.RUnlock()
	if wasAuthenticated && hook != nil {
		hook()
	}
}

func (g *Gateway) send(ctx context.Context, method, path string, payload []byte, token oauth2.Token, withDevice bool, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "[Gateway.send] build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderPlatform, g.platform)
	if token.AccessToken != "" {
		token.SetAuthHeader(req)
	}
	if withDevice && g.device != nil {
		if uid, err := g.device.UID(ctx); err != nil {
			g.log.Warn().Err(err).Msg("device uid unavailable")
		} else {
			req.Header.Set(HeaderDeviceUID, uid)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	g.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("api request")
	return decode(resp, out)
}

// decode unwraps the response envelope.
func decode(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "[decode] read body")
	}
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	var env model.Envelope
	if len(bytes.TrimSpace(data)) == 0 || json.Unmarshal(data, &env) != nil {
		if !ok {
			return &perrors.APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		if out == nil {
			return nil
		}
		return errors.Wrapf(perrors.ErrInvalidResponse, "[decode] status %d", resp.StatusCode)
	}

	if !ok || !env.Success {
		apiErr := &perrors.APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || model.IsJSONNull(env.Data) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrapf(perrors.ErrInvalidResponse, "[decode] %v", err)
	}
	return nil
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// CloseIdleConnections releases pooled connections.
func (g *Gateway) CloseIdleConnections() {
	g.client.CloseIdleConnections()
}
