package platformfake

import (
	"github.com/jrsteele09/go-platform-client/internal/utils"
	"github.com/jrsteele09/go-platform-client/model"
)

// Demo account credentials.
const (
	DemoEmail    = "john.doe@example.com"
	DemoPassword = "Password123"
)

// DemoAccount is a user with platform grants and two systems: "admin", scoped
// to an organization, and "dsl", which has no organization scoping.
func DemoAccount() Account {
	orgID := int64(100)
	return Account{
		User: model.User{
			ID:              1,
			Email:           DemoEmail,
			FirstName:       "John",
			LastName:        "Doe",
			LanguageCode:    "en",
			OrganizationID:  utils.Ptr(orgID),
			DefaultSystemID: utils.Ptr(1),
		},
		Password:            DemoPassword,
		DefaultSystemCode:   "admin",
		PlatformPermissions: []string{"platform.profile.view", "platform.system.switch"},
		PlatformMenus: model.MenuTree{
			{ID: 1, Code: "dashboard", Name: "Dashboard", Icon: "LayoutDashboard", Path: "/dashboard", Sequence: 1, IsVisible: true},
			{ID: 2, Code: "profile", Name: "Profile", Icon: "User", Path: "/profile", Sequence: 2, IsVisible: true},
		},
		Systems: []SystemGrant{
			{
				System: model.SystemInfo{ID: 1, Code: "admin", Name: "Administration", IconName: "Settings", Color: "#ef4444", Sequence: 1},
				Roles: []RoleGrant{
					{
						Role:         model.RoleInfo{ID: 10, Code: "admin_manager", Name: "Admin Manager", OrganizationID: utils.Ptr(orgID), OrganizationName: "Acme Holdings"},
						Organization: &model.Organization{ID: orgID, Name: "Acme Holdings", ShortName: "ACME"},
						Permissions:  []string{"admin.user.view", "admin.user.create", "admin.role.view"},
						Menus: model.MenuTree{
							{ID: 20, Code: "admin_users", Name: "Users", Icon: "Users", Path: "/admin/users", Sequence: 1, IsVisible: true, Children: []model.MenuItem{
								{ID: 21, Code: "admin_users_new", Name: "New User", Path: "/admin/users/new", Sequence: 1, IsVisible: true},
							}},
							{ID: 22, Code: "admin_roles", Name: "Roles", Icon: "Shield", Path: "/admin/roles", Sequence: 2, IsVisible: true},
						},
					},
				},
			},
			{
				System: model.SystemInfo{ID: 2, Code: "dsl", Name: "Digital Service Layer", Sequence: 2},
				Roles: []RoleGrant{
					{
						Role:        model.RoleInfo{ID: 30, Code: "dsl_operator", Name: "DSL Operator"},
						Permissions: []string{"dsl.request.view", "dsl.request.approve"},
						Menus: model.MenuTree{
							{ID: 40, Code: "dsl_requests", Name: "Requests", Icon: "Inbox", Path: "/dsl/requests", Sequence: 1, IsVisible: true},
							{ID: 41, Code: "dsl_hidden", Name: "Internal", Path: "/dsl/internal", Sequence: 2, IsVisible: false},
						},
					},
				},
			},
		},
	}
}
