package model

import (
	"bytes"
	"encoding/json"

	perrors "github.com/jrsteele09/go-platform-client/internal/errors"
)

// Envelope is the response wrapper used by every API endpoint. Data is kept raw
// so the caller decodes it into the endpoint's own type.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
	Meta    *Meta           `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string               `json:"code"`
	Message string               `json:"message"`
	Details []perrors.FieldError `json:"details,omitempty"`
}

// Meta is pagination metadata on list responses.
type Meta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	DeviceUID string `json:"device_uid"`
}

// LoginResponse is the login payload. The platform token arrives as either
// "platform_token" or "access_token" depending on the backend version.
type LoginResponse struct {
	PlatformToken     string      `json:"platform_token"`
	RefreshToken      string      `json:"refresh_token"`
	ExpiresIn         int64       `json:"expires_in,omitempty"`
	User              User        `json:"user"`
	AvailableSystems  SystemRoles `json:"available_systems"`
	DefaultSystemCode string      `json:"default_system_code,omitempty"`
	Permissions       []string    `json:"permissions,omitempty"`
	Menus             MenuTree    `json:"menus,omitempty"`
}

func (r *LoginResponse) UnmarshalJSON(data []byte) error {
	type plain LoginResponse
	var raw struct {
		plain
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = LoginResponse(raw.plain)
	if r.PlatformToken == "" {
		r.PlatformToken = raw.AccessToken
	}
	return nil
}

// HasPlatformContext reports whether login returned the home permission and
// menu sets.
func (r *LoginResponse) HasPlatformContext() bool {
	return r.Permissions != nil && r.Menus != nil
}

// SystemRoles decodes both the nested {system, roles} form and a flat list of
// systems. Flat entries get no roles; roles are resolved at switch time.
type SystemRoles []SystemRole

func (s *SystemRoles) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(SystemRoles, 0, len(items))
	for _, item := range items {
		var nested struct {
			System *SystemInfo `json:"system"`
			Roles  []RoleInfo  `json:"roles"`
		}
		if err := json.Unmarshal(item, &nested); err != nil {
			return err
		}
		if nested.System != nil {
			out = append(out, SystemRole{System: nested.System.Normalize(), Roles: nonNilRoles(nested.Roles)})
			continue
		}
		var flat SystemInfo
		if err := json.Unmarshal(item, &flat); err != nil {
			return err
		}
		out = append(out, SystemRole{System: flat.Normalize(), Roles: []RoleInfo{}})
	}
	*s = out
	return nil
}

// Find returns the available system with the given code.
func (s SystemRoles) Find(code string) (SystemRole, bool) {
	for _, sr := range s {
		if sr.System.Code == code {
			return sr, true
		}
	}
	return SystemRole{}, false
}

// FindByID returns the available system with the given id.
func (s SystemRoles) FindByID(id int) (SystemRole, bool) {
	for _, sr := range s {
		if sr.System.ID == id {
			return sr, true
		}
	}
	return SystemRole{}, false
}

func nonNilRoles(roles []RoleInfo) []RoleInfo {
	if roles == nil {
		return []RoleInfo{}
	}
	return roles
}

type SwitchSystemRequest struct {
	SystemCode     string `json:"system_code"`
	OrganizationID *int64 `json:"organization_id,omitempty"`
	RoleID         *int   `json:"role_id,omitempty"`
}

type SwitchSystemResponse struct {
	SystemToken         string        `json:"system_token"`
	ExpiresIn           int64         `json:"expires_in,omitempty"`
	CurrentSystem       SystemInfo    `json:"current_system"`
	CurrentRole         *RoleInfo     `json:"current_role"`
	CurrentOrganization *Organization `json:"current_organization,omitempty"`
	Permissions         []string      `json:"permissions"`
	Menus               MenuTree      `json:"menus"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse carries the rotated platform credentials.
type RefreshResponse struct {
	PlatformToken string `json:"platform_token"`
	RefreshToken  string `json:"refresh_token"`
	ExpiresIn     int64  `json:"expires_in,omitempty"`
}

func (r *RefreshResponse) UnmarshalJSON(data []byte) error {
	type plain RefreshResponse
	var raw struct {
		plain
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = RefreshResponse(raw.plain)
	if r.PlatformToken == "" {
		r.PlatformToken = raw.AccessToken
	}
	return nil
}

type CurrentContextResponse struct {
	ContextType         TokenKind     `json:"context_type"`
	User                *User         `json:"user,omitempty"`
	CurrentSystem       *SystemInfo   `json:"current_system,omitempty"`
	CurrentRole         *RoleInfo     `json:"current_role,omitempty"`
	CurrentOrganization *Organization `json:"current_organization,omitempty"`
	Permissions         []string      `json:"permissions"`
	Menus               MenuTree      `json:"menus"`
	AvailableSystems    SystemRoles   `json:"available_systems,omitempty"`
}

type PermissionsResponse struct {
	Permissions []string `json:"permissions"`
}

type MenusResponse struct {
	Menus MenuTree `json:"menus"`
}

type AvailableSystemsResponse struct {
	Systems SystemRoles `json:"systems"`
}

// DeviceRegistration is the body of POST /devices/register.
type DeviceRegistration struct {
	DeviceUID  string `json:"device_uid"`
	Name       string `json:"name"`
	Platform   string `json:"platform"`
	OSVersion  string `json:"os_version,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
}

// IsJSONNull reports whether data is empty or the JSON null literal.
func IsJSONNull(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
