package syscontext

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-platform-client/internal/utils"
	"github.com/jrsteele09/go-platform-client/model"
	"github.com/jrsteele09/go-platform-client/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const persistTimeout = 5 * time.Second

// SystemContext is the authorization payload granted by a successful switch.
type SystemContext struct {
	System       model.SystemInfo
	Role         *model.RoleInfo
	Organization *model.Organization // nil for systems without organization scoping
	Permissions  []string
	Menus        model.MenuTree
}

// state is the persisted system context blob. The platform fields are kept
// apart from the system fields so exiting a system needs no network call.
type state struct {
	System              *model.SystemInfo   `json:"current_system"`
	Role                *model.RoleInfo     `json:"current_role"`
	Organization        *model.Organization `json:"current_organization"`
	Permissions         model.PermissionSet `json:"permissions"`
	Menus               model.MenuTree      `json:"menus"`
	PlatformPermissions model.PermissionSet `json:"platform_permissions"`
	PlatformMenus       model.MenuTree      `json:"platform_menus"`
}

func emptyState() state {
	return state{
		Permissions:         model.PermissionSet{},
		Menus:               model.MenuTree{},
		PlatformPermissions: model.PermissionSet{},
		PlatformMenus:       model.MenuTree{},
	}
}

// Store holds the permissions, menus, role and organization for the current
// selection, plus the platform (home) set.
type Store struct {
	mu    sync.RWMutex
	state state
	repo  storage.Repo
	log   zerolog.Logger
}

type StoreOption func(*Store)

func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore creates an empty store. A nil repo keeps the state in memory only.
func NewStore(repo storage.Repo, options ...StoreOption) *Store {
	s := &Store{
		state: emptyState(),
		repo:  repo,
		log:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Load rehydrates the store from durable storage.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	loaded := emptyState()
	ok, err := storage.LoadJSON(ctx, s.repo, storage.KeySystem, &loaded)
	if err != nil {
		return errors.Wrap(err, "Store.Load")
	}
	if !ok {
		return nil
	}
	normalize(&loaded)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = loaded
	return nil
}

// SetSystemContext replaces the system fields wholesale. Platform fields are
// untouched.
func (s *Store) SetSystemContext(c SystemContext) {
	system := c.System
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.System = &system
	s.state.Role = copyRole(c.Role)
	s.state.Organization = copyOrganization(c.Organization)
	s.state.Permissions = model.NewPermissionSet(c.Permissions...)
	s.state.Menus = nonNilMenus(c.Menus.Clone())
	s.persistLocked()
}

// SetPlatformContext stores the home context's permission and menu sets.
func (s *Store) SetPlatformContext(permissions []string, menus model.MenuTree) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.PlatformPermissions = model.NewPermissionSet(permissions...)
	s.state.PlatformMenus = nonNilMenus(menus.Clone())
	s.persistLocked()
}

// ClearSystemContext empties the system fields. Platform fields are untouched.
func (s *Store) ClearSystemContext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.System = nil
	s.state.Role = nil
	s.state.Organization = nil
	s.state.Permissions = model.PermissionSet{}
	s.state.Menus = model.MenuTree{}
	s.persistLocked()
}

// Reset clears everything, platform fields included. Used by logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = emptyState()
	s.persistLocked()
}

// HasPermission reports whether code is granted by the system set or the
// platform set. Platform grants apply whichever system is entered.
func (s *Store) HasPermission(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Permissions.Has(code) || s.state.PlatformPermissions.Has(code)
}

// ActiveMenus returns the system tree when a system is selected, else the
// platform tree. The two are never merged.
func (s *Store) ActiveMenus() model.MenuTree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.System != nil {
		return s.state.Menus.Clone()
	}
	return s.state.PlatformMenus.Clone()
}

// Current returns a copy of the active context. Its permission set is the
// union used by HasPermission.
func (s *Store) Current() model.ActiveContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perms := s.state.PlatformPermissions.Clone()
	for code := range s.state.Permissions {
		perms[code] = struct{}{}
	}
	menus := s.state.PlatformMenus
	if s.state.System != nil {
		menus = s.state.Menus
	}

	ctx := model.ActiveContext{
		Role:         copyRole(s.state.Role),
		Organization: copyOrganization(s.state.Organization),
		Permissions:  perms,
		Menus:        menus.Clone(),
	}
	if s.state.System != nil {
		system := *s.state.System
		ctx.System = &system
	}
	return ctx
}

// SystemCode returns the selected system's code, or "" in platform context.
func (s *Store) SystemCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.System == nil {
		return ""
	}
	return s.state.System.Code
}

// Selection returns the selected system, role and organization.
func (s *Store) Selection() (*model.SystemInfo, *model.RoleInfo, *model.Organization) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.System == nil {
		return nil, nil, nil
	}
	system := *s.state.System
	return &system, copyRole(s.state.Role), copyOrganization(s.state.Organization)
}

func (s *Store) persistLocked() {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := storage.SaveJSON(ctx, s.repo, storage.KeySystem, s.state); err != nil {
		s.log.Err(err).Str("key", storage.KeySystem).Msg("failed to persist system context")
	}
}

func normalize(st *state) {
	if st.Permissions == nil {
		st.Permissions = model.PermissionSet{}
	}
	if st.PlatformPermissions == nil {
		st.PlatformPermissions = model.PermissionSet{}
	}
	st.Menus = nonNilMenus(st.Menus)
	st.PlatformMenus = nonNilMenus(st.PlatformMenus)
}

func nonNilMenus(menus model.MenuTree) model.MenuTree {
	if menus == nil {
		return model.MenuTree{}
	}
	return menus
}

func copyRole(r *model.RoleInfo) *model.RoleInfo {
	role := utils.Clone(r)
	if role != nil {
		role.OrganizationID = utils.Clone(r.OrganizationID)
	}
	return role
}

func copyOrganization(o *model.Organization) *model.Organization {
	return utils.Clone(o)
}
