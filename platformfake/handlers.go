package platformfake

import (
	"net/http"
	"strings"

	perrors "github.com/jrsteele09/go-platform-client/internal/errors"
	"github.com/jrsteele09/go-platform-client/model"
)

type loginPayload struct {
	AccessToken       string         `json:"access_token,omitempty"`
	PlatformToken     string         `json:"platform_token,omitempty"`
	RefreshToken      string         `json:"refresh_token"`
	ExpiresIn         int64          `json:"expires_in"`
	User              model.User     `json:"user"`
	AvailableSystems  any            `json:"available_systems"`
	DefaultSystemCode string         `json:"default_system_code,omitempty"`
	Permissions       []string       `json:"permissions,omitempty"`
	Menus             model.MenuTree `json:"menus,omitempty"`
}

type refreshPayload struct {
	AccessToken   string `json:"access_token,omitempty"`
	PlatformToken string `json:"platform_token,omitempty"`
	RefreshToken  string `json:"refresh_token"`
	ExpiresIn     int64  `json:"expires_in"`
}

// LoginHandler checks the password and issues platform and refresh tokens.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.LoginRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body")
			return
		}
		var details []perrors.FieldError
		if strings.TrimSpace(req.Email) == "" {
			details = append(details, perrors.FieldError{Field: "email", Message: "is required"})
		}
		if req.Password == "" {
			details = append(details, perrors.FieldError{Field: "password", Message: "is required"})
		}
		if len(details) > 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid login request", details...)
			return
		}

		account, ok := s.directory.Authenticate(req.Email, req.Password)
		if !ok {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
			return
		}

		platformToken, refreshToken, ok := s.issuePlatform(w, account.User.ID)
		if !ok {
			return
		}

		payload := loginPayload{
			RefreshToken:      refreshToken,
			ExpiresIn:         int64(s.issuer.PlatformTTL().Seconds()),
			User:              account.User,
			AvailableSystems:  s.availableSystems(account),
			DefaultSystemCode: account.DefaultSystemCode,
		}
		if s.platformTokenField {
			payload.PlatformToken = platformToken
		} else {
			payload.AccessToken = platformToken
		}
		if s.loginContext {
			payload.Permissions = account.PlatformPermissions
			payload.Menus = account.PlatformMenus
		}
		writeData(w, http.StatusOK, payload)
	}
}

// RefreshHandler rotates the refresh token and issues a new platform token.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.RefreshRequest
		if err := decodeBody(r, &req); err != nil || req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "refresh_token is required")
			return
		}
		userID, next, err := s.refresh.Rotate(req.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", err.Error())
			return
		}
		platformGen, _ := s.generations()
		platformToken, err := s.issuer.PlatformToken(userID, platformGen)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
			return
		}

		payload := refreshPayload{RefreshToken: next, ExpiresIn: int64(s.issuer.PlatformTTL().Seconds())}
		if s.platformTokenField {
			payload.PlatformToken = platformToken
		} else {
			payload.AccessToken = platformToken
		}
		writeData(w, http.StatusOK, payload)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.refresh.Revoke(accountFrom(r).User.ID)
		writeData(w, http.StatusOK, nil)
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, accountFrom(r).User)
	}
}

func (s *Server) AvailableSystemsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]any{"systems": s.availableSystems(accountFrom(r))})
	}
}

// SwitchSystemHandler issues a system token for the requested system, role
// and organization. Only platform tokens may switch.
func (s *Server) SwitchSystemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if claimsFrom(r).TokenType != TokenTypePlatform {
			writeError(w, http.StatusForbidden, "PLATFORM_TOKEN_REQUIRED", "switching requires a platform token")
			return
		}
		var req model.SwitchSystemRequest
		if err := decodeBody(r, &req); err != nil || req.SystemCode == "" {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "system_code is required",
				perrors.FieldError{Field: "system_code", Message: "is required"})
			return
		}

		account := accountFrom(r)
		grant, ok := account.System(req.SystemCode)
		if !ok {
			writeError(w, http.StatusForbidden, "SYSTEM_ACCESS_DENIED", "no access to system "+req.SystemCode)
			return
		}
		role, ok := grant.SelectRole(req.RoleID, req.OrganizationID)
		if !ok {
			writeError(w, http.StatusForbidden, "ROLE_NOT_ASSIGNED", "no matching role in system "+req.SystemCode)
			return
		}

		var orgID *int64
		if role.Organization != nil {
			id := role.Organization.ID
			orgID = &id
		}
		_, systemGen := s.generations()
		token, err := s.issuer.SystemToken(account.User.ID, grant.System.Code, role.Role.ID, orgID, systemGen)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
			return
		}

		roleInfo := role.Role
		writeData(w, http.StatusOK, model.SwitchSystemResponse{
			SystemToken:         token,
			ExpiresIn:           int64(s.issuer.SystemTTL().Seconds()),
			CurrentSystem:       grant.System.Normalize(),
			CurrentRole:         &roleInfo,
			CurrentOrganization: role.Organization,
			Permissions:         nonNil(role.Permissions),
			Menus:               nonNilMenus(role.Menus),
		})
	}
}

func (s *Server) ExitSystemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, struct{}{})
	}
}

// CurrentContextHandler describes the context the presented token grants.
func (s *Server) CurrentContextHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account := accountFrom(r)
		user := account.User
		resp := model.CurrentContextResponse{
			ContextType:      model.TokenKindPlatform,
			User:             &user,
			Permissions:      nonNil(account.PlatformPermissions),
			Menus:            nonNilMenus(account.PlatformMenus),
			AvailableSystems: account.SystemRoles(),
		}
		if grant, role, ok := s.systemGrant(r); ok {
			system := grant.System.Normalize()
			roleInfo := role.Role
			resp.ContextType = model.TokenKindSystem
			resp.CurrentSystem = &system
			resp.CurrentRole = &roleInfo
			resp.CurrentOrganization = role.Organization
			resp.Permissions = nonNil(role.Permissions)
			resp.Menus = nonNilMenus(role.Menus)
		}
		writeData(w, http.StatusOK, resp)
	}
}

func (s *Server) PermissionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		permissions := accountFrom(r).PlatformPermissions
		if _, role, ok := s.systemGrant(r); ok {
			permissions = role.Permissions
		}
		writeData(w, http.StatusOK, model.PermissionsResponse{Permissions: nonNil(permissions)})
	}
}

func (s *Server) MenusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		menus := accountFrom(r).PlatformMenus
		if _, role, ok := s.systemGrant(r); ok {
			menus = role.Menus
		}
		writeData(w, http.StatusOK, model.MenusResponse{Menus: nonNilMenus(menus)})
	}
}

func (s *Server) DeviceRegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.DeviceRegistration
		if err := decodeBody(r, &req); err != nil || req.DeviceUID == "" {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "device_uid is required",
				perrors.FieldError{Field: "device_uid", Message: "is required"})
			return
		}
		s.mu.Lock()
		s.devices[req.DeviceUID] = DeviceRecord{UID: req.DeviceUID, Name: req.Name, Platform: req.Platform}
		s.mu.Unlock()
		writeData(w, http.StatusCreated, req)
	}
}

func (s *Server) DeviceHeartbeatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get("X-Device-UID")
		s.mu.Lock()
		d, ok := s.devices[uid]
		if ok {
			d.Heartbeats++
			s.devices[uid] = d
		}
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, "DEVICE_NOT_FOUND", "device is not registered")
			return
		}
		writeData(w, http.StatusOK, nil)
	}
}

func (s *Server) issuePlatform(w http.ResponseWriter, userID int64) (platformToken, refreshToken string, ok bool) {
	platformGen, _ := s.generations()
	platformToken, err := s.issuer.PlatformToken(userID, platformGen)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return "", "", false
	}
	refreshToken, err = s.refresh.Create(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return "", "", false
	}
	return platformToken, refreshToken, true
}

func (s *Server) availableSystems(account *Account) any {
	if !s.flatSystems {
		return account.SystemRoles()
	}
	flat := make([]model.SystemInfo, 0, len(account.Systems))
	for _, g := range account.Systems {
		flat = append(flat, g.System)
	}
	return flat
}

// systemGrant resolves the system and role a system token was issued for.
func (s *Server) systemGrant(r *http.Request) (SystemGrant, RoleGrant, bool) {
	claims := claimsFrom(r)
	if claims.TokenType != TokenTypeSystem {
		return SystemGrant{}, RoleGrant{}, false
	}
	grant, ok := accountFrom(r).System(claims.SystemCode)
	if !ok {
		return SystemGrant{}, RoleGrant{}, false
	}
	role, ok := grant.Role(claims.RoleID)
	if !ok {
		return SystemGrant{}, RoleGrant{}, false
	}
	return grant, role, true
}

func nonNil(codes []string) []string {
	if codes == nil {
		return []string{}
	}
	return codes
}

func nonNilMenus(menus model.MenuTree) model.MenuTree {
	if menus == nil {
		return model.MenuTree{}
	}
	return menus
}
