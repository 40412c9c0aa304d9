package switcher

import (
	"context"
	"sync"
	"time"

	perrors "github.com/jrsteele09/go-platform-client/internal/errors"
	"github.com/jrsteele09/go-platform-client/internal/utils"
	"github.com/jrsteele09/go-platform-client/model"
	"github.com/jrsteele09/go-platform-client/syscontext"
	"github.com/jrsteele09/go-platform-client/tokens"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// State is where the session sits in the switch protocol.
type State int

const (
	StatePlatform State = iota
	StateSwitching
	StateInSystem
)

func (s State) String() string {
	switch s {
	case StatePlatform:
		return "platform"
	case StateSwitching:
		return "switching"
	case StateInSystem:
		return "in_system"
	default:
		return "unknown"
	}
}

// API is the part of the platform contract the handler calls.
type API interface {
	SwitchSystem(ctx context.Context, req model.SwitchSystemRequest) (*model.SwitchSystemResponse, error)
	ExitSystem(ctx context.Context) error
	CurrentContext(ctx context.Context) (*model.CurrentContextResponse, error)
}

// Snapshot is a consistent view of the active credential and context.
type Snapshot struct {
	State      State
	ActiveKind model.TokenKind
	Token      string
	Context    model.ActiveContext
}

// Handler runs the switch and exit protocol. The system token and its context
// are only ever changed together under commitMu, so a Snapshot never pairs a
// system token with another system's context.
type Handler struct {
	tokens     *tokens.Store
	contexts   *syscontext.Store
	api        API
	log        zerolog.Logger
	notifyExit bool

	commitMu sync.RWMutex

	mu        sync.Mutex
	switching bool
	epoch     uint64
}

type Option func(*Handler)

func WithLogger(log zerolog.Logger) Option {
	return func(h *Handler) {
		h.log = log
	}
}

// WithExitNotification controls the best-effort POST /auth/exit-system on
// exit. Enabled by default.
func WithExitNotification(enabled bool) Option {
	return func(h *Handler) {
		h.notifyExit = enabled
	}
}

func New(tokenStore *tokens.Store, contextStore *syscontext.Store, api API, options ...Option) *Handler {
	h := &Handler{
		tokens:     tokenStore,
		contexts:   contextStore,
		api:        api,
		log:        zerolog.Nop(),
		notifyExit: true,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

type switchOptions struct {
	roleID *int
	orgID  *int64
}

type SwitchOption func(*switchOptions)

// WithRole selects the role to enter the system with.
func WithRole(id int) SwitchOption {
	return func(o *switchOptions) {
		o.roleID = utils.Ptr(id)
	}
}

// WithOrganization selects the organization to enter the system under.
func WithOrganization(id int64) SwitchOption {
	return func(o *switchOptions) {
		o.orgID = utils.Ptr(id)
	}
}

// State derives the protocol state from the stores and the in-flight flag.
func (h *Handler) State() State {
	h.mu.Lock()
	switching := h.switching
	h.mu.Unlock()
	if switching {
		return StateSwitching
	}
	if h.tokens.IsInSystemContext() {
		return StateInSystem
	}
	return StatePlatform
}

// Snapshot returns the active credential and context as one consistent pair.
func (h *Handler) Snapshot() Snapshot {
	state := h.State()
	h.commitMu.RLock()
	defer h.commitMu.RUnlock()

	snap := Snapshot{
		State:      state,
		ActiveKind: model.TokenKindPlatform,
		Context:    h.contexts.Current(),
	}
	if cred, ok := h.tokens.Active(); ok {
		snap.ActiveKind = cred.Kind
		snap.Token = cred.Token.AccessToken
	}
	return snap
}

// Switch enters the system identified by code. Switching to the system that
// is already active does nothing. On failure nothing is mutated and the
// session stays where it was.
func (h *Handler) Switch(ctx context.Context, code string, options ...SwitchOption) error {
	if h.tokens.IsInSystemContext() && h.contexts.SystemCode() == code {
		return nil
	}
	if !h.tokens.IsAuthenticated() {
		return errors.Wrap(perrors.ErrNotAuthenticated, "[Handler.Switch]")
	}

	h.mu.Lock()
	if h.switching {
		h.mu.Unlock()
		return perrors.ErrSwitchInProgress
	}
	h.switching = true
	epoch := h.epoch
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.switching = false
		h.mu.Unlock()
	}()

	req := h.request(code, options)
	h.log.Debug().Str("system", code).Msg("switching system")
	resp, err := h.api.SwitchSystem(ctx, req)
	if err != nil {
		h.log.Warn().Err(err).Str("system", code).Msg("system switch failed")
		return errors.Wrapf(err, "[Handler.Switch] %s", code)
	}
	if err := h.commit(epoch, "", resp); err != nil {
		return errors.Wrapf(err, "[Handler.Switch] %s", code)
	}
	h.log.Info().Str("system", resp.CurrentSystem.Code).Msg("entered system")
	return nil
}

// request builds the switch request. Without an explicit role or organization
// the first role the user holds in the system is used, with its organization.
func (h *Handler) request(code string, options []SwitchOption) model.SwitchSystemRequest {
	var o switchOptions
	for _, opt := range options {
		opt(&o)
	}
	req := model.SwitchSystemRequest{SystemCode: code, RoleID: o.roleID, OrganizationID: o.orgID}
	if o.roleID != nil || o.orgID != nil {
		return req
	}
	if available, ok := h.tokens.AvailableSystems().Find(code); ok && len(available.Roles) > 0 {
		role := available.Roles[0]
		req.RoleID = utils.Ptr(role.ID)
		req.OrganizationID = utils.Clone(role.OrganizationID)
	}
	return req
}

// commit stores a switch result. It is discarded if the session was reset
// after the switch started, or, when expectCode is set, if the user has moved
// to another system meanwhile.
func (h *Handler) commit(epoch uint64, expectCode string, resp *model.SwitchSystemResponse) error {
	if resp.SystemToken == "" {
		return errors.Wrap(perrors.ErrInvalidResponse, "missing system token")
	}

	h.commitMu.Lock()
	defer h.commitMu.Unlock()

	h.mu.Lock()
	stale := h.epoch != epoch
	h.mu.Unlock()
	if stale || !h.tokens.IsAuthenticated() {
		h.log.Info().Str("system", resp.CurrentSystem.Code).Msg("discarding switch result for ended session")
		return errors.Wrap(perrors.ErrNotAuthenticated, "session ended during switch")
	}
	if expectCode != "" && h.contexts.SystemCode() != expectCode {
		return errors.Wrapf(perrors.ErrNotInSystem, "no longer in %s", expectCode)
	}

	h.tokens.SetSystemToken(resp.SystemToken, time.Duration(resp.ExpiresIn)*time.Second)
	h.contexts.SetSystemContext(syscontext.SystemContext{
		System:       resp.CurrentSystem.Normalize(),
		Role:         resp.CurrentRole,
		Organization: resp.CurrentOrganization,
		Permissions:  resp.Permissions,
		Menus:        resp.Menus,
	})
	return nil
}

// Exit returns to the platform context. The transition is local; the server
// is notified afterwards and a failed notification is only logged.
func (h *Handler) Exit(ctx context.Context) error {
	h.mu.Lock()
	switching := h.switching
	h.mu.Unlock()
	if switching {
		return perrors.ErrSwitchInProgress
	}
	if !h.tokens.IsInSystemContext() && h.contexts.SystemCode() == "" {
		return nil
	}

	code := h.contexts.SystemCode()
	h.exitLocal()
	h.log.Info().Str("system", code).Msg("exited system")

	if h.notifyExit && h.tokens.IsAuthenticated() {
		if err := h.api.ExitSystem(ctx); err != nil {
			h.log.Warn().Err(err).Msg("exit-system notification failed")
		}
	}
	return nil
}

func (h *Handler) exitLocal() {
	h.commitMu.Lock()
	defer h.commitMu.Unlock()
	h.tokens.ClearSystemToken()
	h.contexts.ClearSystemContext()
}

// Renew re-issues the system token for the current system, role and
// organization. If that fails the session drops back to platform context.
func (h *Handler) Renew(ctx context.Context) error {
	system, role, org := h.contexts.Selection()
	if system == nil || !h.tokens.IsInSystemContext() {
		return perrors.ErrNotInSystem
	}

	h.mu.Lock()
	epoch := h.epoch
	h.mu.Unlock()

	req := model.SwitchSystemRequest{SystemCode: system.Code}
	if role != nil {
		req.RoleID = utils.Ptr(role.ID)
	}
	if org != nil {
		req.OrganizationID = utils.Ptr(org.ID)
	}

	resp, err := h.api.SwitchSystem(ctx, req)
	if err == nil {
		err = h.commit(epoch, system.Code, resp)
	}
	if err != nil {
		h.log.Warn().Err(err).Str("system", system.Code).Msg("system renewal failed, returning to platform")
		if h.contexts.SystemCode() == system.Code {
			h.exitLocal()
		}
		return errors.Wrapf(err, "[Handler.Renew] %s", system.Code)
	}
	h.log.Debug().Str("system", system.Code).Msg("system token renewed")
	return nil
}

// Sync reloads the active context from the server and replaces it wholesale.
func (h *Handler) Sync(ctx context.Context) error {
	if !h.tokens.IsAuthenticated() {
		return errors.Wrap(perrors.ErrNotAuthenticated, "[Handler.Sync]")
	}
	h.mu.Lock()
	epoch := h.epoch
	h.mu.Unlock()

	resp, err := h.api.CurrentContext(ctx)
	if err != nil {
		return errors.Wrap(err, "[Handler.Sync]")
	}

	h.commitMu.Lock()
	defer h.commitMu.Unlock()
	h.mu.Lock()
	stale := h.epoch != epoch
	h.mu.Unlock()
	if stale {
		return errors.Wrap(perrors.ErrNotAuthenticated, "[Handler.Sync] session ended during sync")
	}

	if resp.ContextType == model.TokenKindSystem && resp.CurrentSystem != nil {
		if h.contexts.SystemCode() != resp.CurrentSystem.Code {
			return errors.Wrapf(perrors.ErrInvalidResponse, "[Handler.Sync] context for %s", resp.CurrentSystem.Code)
		}
		h.contexts.SetSystemContext(syscontext.SystemContext{
			System:       resp.CurrentSystem.Normalize(),
			Role:         resp.CurrentRole,
			Organization: resp.CurrentOrganization,
			Permissions:  resp.Permissions,
			Menus:        resp.Menus,
		})
		return nil
	}
	h.contexts.SetPlatformContext(resp.Permissions, resp.Menus)
	return nil
}

// Reset runs clear under the commit lock and invalidates any switch still in
// flight, so its result is discarded when it lands.
func (h *Handler) Reset(clear func()) {
	h.commitMu.Lock()
	defer h.commitMu.Unlock()
	h.mu.Lock()
	h.epoch++
	h.mu.Unlock()
	clear()
}
