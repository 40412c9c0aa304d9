package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-platform-client/model"
	"github.com/jrsteele09/go-platform-client/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const persistTimeout = 5 * time.Second

// PlatformAuth is everything login hands to the store.
type PlatformAuth struct {
	User             model.User
	PlatformToken    string
	RefreshToken     string
	ExpiresIn        time.Duration // zero: read the JWT exp claim
	AvailableSystems model.SystemRoles
}

// TokenUpdate is a partial credential update from the refresh flow. Empty
// fields are left unchanged.
type TokenUpdate struct {
	PlatformToken string
	RefreshToken  string
	ExpiresIn     time.Duration
}

// Credential is the token attached to a request and which kind it is.
type Credential struct {
	Kind  model.TokenKind
	Token oauth2.Token
}

// state is the persisted platform auth blob.
type state struct {
	User             *model.User       `json:"user"`
	Platform         *oauth2.Token     `json:"platform_token,omitempty"`
	System           *oauth2.Token     `json:"system_token,omitempty"`
	ActiveKind       model.TokenKind   `json:"current_token_type"`
	AvailableSystems model.SystemRoles `json:"available_systems"`
	Authenticated    bool              `json:"is_authenticated"`
}

func emptyState() state {
	return state{
		ActiveKind:       model.TokenKindPlatform,
		AvailableSystems: model.SystemRoles{},
	}
}

// Store is the single source of truth for which credential is active. Every
// mutation is an atomic replacement under one lock, so ActiveToken never
// returns a token from before a completed mutation.
type Store struct {
	mu      sync.RWMutex
	state   state
	repo    storage.Repo
	log     zerolog.Logger
	nowFunc func() time.Time
}

type StoreOption func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// WithNowFunc sets the clock used for token expiry (primarily for testing).
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// NewStore creates an empty store. A nil repo keeps the state in memory only.
func NewStore(repo storage.Repo, options ...StoreOption) *Store {
	s := &Store{
		state:   emptyState(),
		repo:    repo,
		log:     zerolog.Nop(),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Load rehydrates the store from durable storage. A missing blob leaves the
// store empty.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	loaded := emptyState()
	ok, err := storage.LoadJSON(ctx, s.repo, storage.KeyAuth, &loaded)
	if err != nil {
		return errors.Wrap(err, "Store.Load")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		if loaded.ActiveKind == "" {
			loaded.ActiveKind = model.TokenKindPlatform
		}
		s.state = loaded
	}
	return nil
}

// SetPlatformAuth records a successful login. The active kind always resets to
// platform and any system token is dropped.
func (s *Store) SetPlatformAuth(auth PlatformAuth) {
	user := auth.User
	systems := append(model.SystemRoles{}, auth.AvailableSystems...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state{
		User: &user,
		Platform: &oauth2.Token{
			AccessToken:  auth.PlatformToken,
			TokenType:    "Bearer",
			RefreshToken: auth.RefreshToken,
			Expiry:       expiryOf(auth.PlatformToken, auth.ExpiresIn, s.nowFunc()),
		},
		System:           nil,
		ActiveKind:       model.TokenKindPlatform,
		AvailableSystems: systems,
		Authenticated:    true,
	}
	s.persistLocked()
}

// SetSystemToken makes token the active credential. The platform token is kept
// for exit-system and for endpoints outside the entered system.
func (s *Store) SetSystemToken(token string, expiresIn time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.System = &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
		Expiry:      expiryOf(token, expiresIn, s.nowFunc()),
	}
	s.state.ActiveKind = model.TokenKindSystem
	s.persistLocked()
}

// ClearSystemToken drops the system token and reverts to the platform token.
func (s *Store) ClearSystemToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.System = nil
	s.state.ActiveKind = model.TokenKindPlatform
	s.persistLocked()
}

// SetTokens applies a refresh result. The active kind is unchanged.
func (s *Store) SetTokens(update TokenUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	platform := oauth2.Token{TokenType: "Bearer"}
	if s.state.Platform != nil {
		platform = *s.state.Platform
	}
	if update.PlatformToken != "" {
		platform.AccessToken = update.PlatformToken
		platform.Expiry = expiryOf(update.PlatformToken, update.ExpiresIn, s.nowFunc())
	}
	if update.RefreshToken != "" {
		platform.RefreshToken = update.RefreshToken
	}
	s.state.Platform = &platform
	s.persistLocked()
}

// RotateTokens applies a refresh result only if the session still holds
// previousRefreshToken. It reports false when a logout or another rotation got
// there first, so a late refresh cannot resurrect a cleared session.
func (s *Store) RotateTokens(previousRefreshToken string, update TokenUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Authenticated || s.state.Platform == nil || s.state.Platform.RefreshToken != previousRefreshToken {
		return false
	}
	platform := *s.state.Platform
	if update.PlatformToken != "" {
		platform.AccessToken = update.PlatformToken
		platform.Expiry = expiryOf(update.PlatformToken, update.ExpiresIn, s.nowFunc())
	}
	if update.RefreshToken != "" {
		platform.RefreshToken = update.RefreshToken
	}
	s.state.Platform = &platform
	s.persistLocked()
	return true
}

// Logout clears every field.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = emptyState()
	s.persistLocked()
}

// ActiveToken returns the system token when the active kind is system and one
// is held, else the platform token, else "". All outbound requests use this.
func (s *Store) ActiveToken() string {
	cred, ok := s.Active()
	if !ok {
		return ""
	}
	return cred.Token.AccessToken
}

// Active returns a copy of the active credential.
func (s *Store) Active() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.inSystemLocked() {
		return Credential{Kind: model.TokenKindSystem, Token: *s.state.System}, true
	}
	if s.state.Platform != nil && s.state.Platform.AccessToken != "" {
		return Credential{Kind: model.TokenKindPlatform, Token: *s.state.Platform}, true
	}
	return Credential{}, false
}

// Platform returns a copy of the platform credential, whatever the active kind.
func (s *Store) Platform() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Platform == nil || s.state.Platform.AccessToken == "" {
		return Credential{}, false
	}
	return Credential{Kind: model.TokenKindPlatform, Token: *s.state.Platform}, true
}

func (s *Store) PlatformToken() string {
	cred, ok := s.Platform()
	if !ok {
		return ""
	}
	return cred.Token.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Platform == nil {
		return ""
	}
	return s.state.Platform.RefreshToken
}

// IsInSystemContext is true iff the active kind is system and a system token
// is held.
func (s *Store) IsInSystemContext() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inSystemLocked()
}

func (s *Store) inSystemLocked() bool {
	return s.state.ActiveKind == model.TokenKindSystem && s.state.System != nil && s.state.System.AccessToken != ""
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Authenticated
}

// User returns a copy of the authenticated user, or nil.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

// AvailableSystems returns the systems granted at login.
func (s *Store) AvailableSystems() model.SystemRoles {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(model.SystemRoles{}, s.state.AvailableSystems...)
}

// persistLocked writes the current state. Failures are logged; the in-memory
// transition stands.
func (s *Store) persistLocked() {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := storage.SaveJSON(ctx, s.repo, storage.KeyAuth, s.state); err != nil {
		s.log.Err(err).Str("key", storage.KeyAuth).Msg("failed to persist auth state")
	}
}
