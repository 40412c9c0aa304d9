package model

// TokenKind says which credential is attached to outbound requests.
type TokenKind string

const (
	TokenKindPlatform TokenKind = "platform"
	TokenKindSystem   TokenKind = "system"
)

// IconRef is an opaque icon tag. The UI layer decides how to render it.
type IconRef string

const (
	defaultIcon  IconRef = "Box"
	defaultColor         = "#6366f1"
)

// User is the authenticated identity returned by login.
type User struct {
	ID              int64  `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	FamilyName      string `json:"family_name,omitempty"`
	AvatarURL       string `json:"avatar_url,omitempty"`
	LanguageCode    string `json:"language_code"`
	OrganizationID  *int64 `json:"organization_id,omitempty"`
	DefaultSystemID *int   `json:"default_system_id,omitempty"`
}

// DisplayName returns "First Last", falling back to the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// SystemInfo describes a system a user can enter. Code is the selector used by
// the switch protocol and is unique and stable.
type SystemInfo struct {
	ID          int     `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	IconName    IconRef `json:"icon_name"`
	IconURL     string  `json:"icon_url,omitempty"`
	Color       string  `json:"color"`
	Sequence    int     `json:"sequence"`
}

// Normalize fills presentation defaults the backend may leave empty.
func (s SystemInfo) Normalize() SystemInfo {
	if s.IconName == "" {
		s.IconName = defaultIcon
	}
	if s.Color == "" {
		s.Color = defaultColor
	}
	return s
}

// RoleInfo is a role held within a system, optionally scoped to an organization.
type RoleInfo struct {
	ID               int    `json:"id"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	OrganizationID   *int64 `json:"organization_id,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
}

type Organization struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name,omitempty"`
	RegNo     string `json:"reg_no,omitempty"`
}

// SystemRole is an available system together with the roles the user would
// hold in it.
type SystemRole struct {
	System SystemInfo `json:"system"`
	Roles  []RoleInfo `json:"roles"`
}

// ActiveContext is what the session may currently see and do. A nil System
// means the platform (home) context.
type ActiveContext struct {
	System       *SystemInfo   `json:"current_system,omitempty"`
	Role         *RoleInfo     `json:"current_role,omitempty"`
	Organization *Organization `json:"current_organization,omitempty"`
	Permissions  PermissionSet `json:"permissions"`
	Menus        MenuTree      `json:"menus"`
}

// InSystem reports whether a system is selected.
func (c ActiveContext) InSystem() bool {
	return c.System != nil
}

// SystemCode returns the selected system's code or "".
func (c ActiveContext) SystemCode() string {
	if c.System == nil {
		return ""
	}
	return c.System.Code
}
