package session

import (
	"context"
	"net/http"
	"os"
	"sync"

	"github.com/jrsteele09/go-platform-client/device"
	"github.com/jrsteele09/go-platform-client/gateway"
	"github.com/jrsteele09/go-platform-client/internal/config"
	perrors "github.com/jrsteele09/go-platform-client/internal/errors"
	"github.com/jrsteele09/go-platform-client/model"
	"github.com/jrsteele09/go-platform-client/permissions"
	"github.com/jrsteele09/go-platform-client/platformapi"
	"github.com/jrsteele09/go-platform-client/storage"
	"github.com/jrsteele09/go-platform-client/switcher"
	"github.com/jrsteele09/go-platform-client/syscontext"
	"github.com/jrsteele09/go-platform-client/tokens"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Lifecycle is the container's own state, separate from the auth state.
type Lifecycle int

const (
	LifecycleUninitialized Lifecycle = iota
	LifecycleReady
	LifecycleClosed
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleUninitialized:
		return "uninitialized"
	case LifecycleReady:
		return "ready"
	case LifecycleClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session owns every piece of client auth state for one device and wires the
// components together. Nothing is global: create one per process and pass it
// to whatever needs it.
type Session struct {
	cfg      config.Config
	log      zerolog.Logger
	hostname func() (string, error)

	device   *device.Identity
	tokens   *tokens.Store
	contexts *syscontext.Store
	gateway  *gateway.Gateway
	api      *platformapi.Client
	switcher *switcher.Handler
	resolver *permissions.Resolver

	mu        sync.RWMutex
	lifecycle Lifecycle
	onExpired func()
}

type Option func(*sessionOptions)

type sessionOptions struct {
	httpClient *http.Client
	hostname   func() (string, error)
	onExpired  func()
}

// WithHTTPClient replaces the HTTP client built from the request timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(o *sessionOptions) {
		o.httpClient = client
	}
}

// WithHostname overrides the device name sent at registration.
func WithHostname(name string) Option {
	return func(o *sessionOptions) {
		o.hostname = func() (string, error) { return name, nil }
	}
}

// WithSessionExpiredHook is called after the session is force-logged-out
// because the platform token could not be refreshed.
func WithSessionExpiredHook(fn func()) Option {
	return func(o *sessionOptions) {
		o.onExpired = fn
	}
}

func New(cfg config.Config, repo storage.Repo, log zerolog.Logger, options ...Option) *Session {
	o := sessionOptions{hostname: os.Hostname}
	for _, opt := range options {
		opt(&o)
	}

	s := &Session{
		cfg:       cfg,
		log:       log,
		hostname:  o.hostname,
		onExpired: o.onExpired,
	}
	s.device = device.NewIdentity(repo, cfg.GetPlatformHeader(), cfg.GetAppVersion())
	s.tokens = tokens.NewStore(repo, tokens.WithLogger(log))
	s.contexts = syscontext.NewStore(repo, syscontext.WithLogger(log))

	gwOptions := []gateway.Option{
		gateway.WithTimeout(cfg.GetRequestTimeout()),
		gateway.WithDeviceID(s.device),
		gateway.WithPlatformHeader(cfg.GetPlatformHeader()),
		gateway.WithLogger(log),
	}
	if o.httpClient != nil {
		gwOptions = append(gwOptions, gateway.WithHTTPClient(o.httpClient))
	}
	s.gateway = gateway.New(cfg.GetAPIBaseURL(), s.tokens, gwOptions...)
	s.api = platformapi.New(s.gateway)
	s.switcher = switcher.New(s.tokens, s.contexts, s.api,
		switcher.WithLogger(log),
		switcher.WithExitNotification(cfg.GetNotifyExit()),
	)
	s.resolver = permissions.NewResolver(s.contexts)

	s.gateway.SetSystemRenewer(s.switcher)
	s.gateway.OnSessionExpired(s.sessionExpired)
	return s
}

// Start rehydrates the stores from durable storage and makes the session
// usable. Calling it again on a ready session does nothing.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.lifecycle {
	case LifecycleReady:
		return nil
	case LifecycleClosed:
		return perrors.ErrSessionClosed
	}

	if err := s.tokens.Load(ctx); err != nil {
		return errors.Wrap(err, "[Session.Start] tokens")
	}
	if err := s.contexts.Load(ctx); err != nil {
		return errors.Wrap(err, "[Session.Start] system context")
	}
	if _, err := s.device.UID(ctx); err != nil {
		return errors.Wrap(err, "[Session.Start] device")
	}
	s.repairLocked()

	s.lifecycle = LifecycleReady
	s.log.Debug().
		Bool("authenticated", s.tokens.IsAuthenticated()).
		Str("system", s.contexts.SystemCode()).
		Msg("session started")
	return nil
}

// repairLocked drops a half-persisted system selection so the token and the
// context agree after a crash between the two writes.
func (s *Session) repairLocked() {
	inSystem := s.tokens.IsInSystemContext()
	code := s.contexts.SystemCode()
	switch {
	case inSystem && code == "":
		s.log.Warn().Msg("system token without context, returning to platform")
		s.tokens.ClearSystemToken()
	case !inSystem && code != "":
		s.log.Warn().Str("system", code).Msg("system context without token, clearing")
		s.contexts.ClearSystemContext()
	}
}

// Close tears the session down. State already persisted stays on disk.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lifecycle == LifecycleClosed {
		return nil
	}
	s.lifecycle = LifecycleClosed
	s.gateway.CloseIdleConnections()
	return nil
}

func (s *Session) Lifecycle() Lifecycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lifecycle
}

func (s *Session) ready() error {
	switch s.Lifecycle() {
	case LifecycleReady:
		return nil
	case LifecycleClosed:
		return perrors.ErrSessionClosed
	default:
		return perrors.ErrNotReady
	}
}

// Login authenticates, loads the platform context and, when configured,
// enters the user's default system. Only the login call itself can fail it;
// the steps around it are best-effort and logged.
func (s *Session) Login(ctx context.Context, email, password string) (*model.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	uid, err := s.device.UID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Session.Login] device")
	}
	s.registerDevice(ctx)

	resp, err := s.api.Login(ctx, model.LoginRequest{Email: email, Password: password, DeviceUID: uid})
	if err != nil {
		return nil, err
	}
	if resp.PlatformToken == "" {
		return nil, errors.Wrap(perrors.ErrInvalidResponse, "[Session.Login] missing platform token")
	}

	s.switcher.Reset(func() {
		s.contexts.Reset()
		s.tokens.SetPlatformAuth(tokens.PlatformAuth{
			User:             resp.User,
			PlatformToken:    resp.PlatformToken,
			RefreshToken:     resp.RefreshToken,
			AvailableSystems: resp.AvailableSystems,
		})
	})
	s.log.Info().Str("user", resp.User.Email).Int("systems", len(resp.AvailableSystems)).Msg("logged in")

	if resp.HasPlatformContext() {
		s.contexts.SetPlatformContext(resp.Permissions, resp.Menus)
	} else if err := s.switcher.Sync(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to load platform context")
	}

	if s.cfg.GetAutoSwitch() {
		if code := defaultSystem(resp); code != "" {
			if err := s.switcher.Switch(ctx, code); err != nil {
				s.log.Warn().Err(err).Str("system", code).Msg("auto-switch failed")
			}
		}
	}

	user := resp.User
	return &user, nil
}

func (s *Session) registerDevice(ctx context.Context) {
	hostname, _ := s.hostname()
	info, err := s.device.Registration(ctx, hostname)
	if err != nil {
		s.log.Warn().Err(err).Msg("device registration skipped")
		return
	}
	err = s.api.RegisterDevice(ctx, model.DeviceRegistration{
		DeviceUID:  info.UID,
		Name:       info.Name,
		Platform:   info.Platform,
		OSVersion:  info.OSVersion,
		AppVersion: info.AppVersion,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("device registration failed")
	}
}

// defaultSystem picks the system to enter after login: the server's hint,
// then the user's default system id, then the first available system.
func defaultSystem(resp *model.LoginResponse) string {
	if resp.DefaultSystemCode != "" {
		if _, ok := resp.AvailableSystems.Find(resp.DefaultSystemCode); ok {
			return resp.DefaultSystemCode
		}
	}
	if id := resp.User.DefaultSystemID; id != nil {
		if sr, ok := resp.AvailableSystems.FindByID(*id); ok {
			return sr.System.Code
		}
	}
	if len(resp.AvailableSystems) > 0 {
		return resp.AvailableSystems[0].System.Code
	}
	return ""
}

// Logout tells the server (best-effort) and always clears local state,
// including a switch still in flight.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.tokens.IsAuthenticated() {
		if err := s.api.Logout(ctx); err != nil {
			s.log.Warn().Err(err).Msg("server logout failed")
		}
	}
	s.clear()
	s.log.Info().Msg("logged out")
	return nil
}

func (s *Session) clear() {
	s.switcher.Reset(func() {
		s.tokens.Logout()
		s.contexts.Reset()
	})
}

// sessionExpired runs after the gateway gave up on the platform token.
func (s *Session) sessionExpired() {
	s.log.Warn().Msg("session expired")
	s.clear()
	if s.onExpired != nil {
		s.onExpired()
	}
}

func (s *Session) Switch(ctx context.Context, code string, options ...switcher.SwitchOption) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.switcher.Switch(ctx, code, options...)
}

func (s *Session) Exit(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.switcher.Exit(ctx)
}

// Sync reloads the active permissions and menus from the server.
func (s *Session) Sync(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.switcher.Sync(ctx)
}

// Heartbeat tells the server this device is alive.
func (s *Session) Heartbeat(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.api.Heartbeat(ctx)
}

func (s *Session) Permissions() *permissions.Resolver {
	return s.resolver
}

func (s *Session) ActiveMenus() model.MenuTree {
	return s.contexts.ActiveMenus()
}

func (s *Session) Snapshot() switcher.Snapshot {
	return s.switcher.Snapshot()
}

func (s *Session) State() switcher.State {
	return s.switcher.State()
}

func (s *Session) User() *model.User {
	return s.tokens.User()
}

func (s *Session) IsAuthenticated() bool {
	return s.tokens.IsAuthenticated()
}

func (s *Session) AvailableSystems() model.SystemRoles {
	return s.tokens.AvailableSystems()
}

// TokenInfos describes the held tokens for display.
func (s *Session) TokenInfos() []tokens.Info {
	return s.tokens.Infos()
}

func (s *Session) DeviceUID(ctx context.Context) (string, error) {
	return s.device.UID(ctx)
}

func (s *Session) API() *platformapi.Client {
	return s.api
}
