package syscontext_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-platform-client/model"
	"github.com/jrsteele09/go-platform-client/storage/repofake"
	"github.com/jrsteele09/go-platform-client/syscontext"
	"github.com/stretchr/testify/require"
)

func platformMenus() model.MenuTree {
	return model.MenuTree{{ID: 1, Code: "home", Name: "Home", Path: "/dashboard", IsVisible: true}}
}

func hrContext() syscontext.SystemContext {
	orgID := int64(7)
	return syscontext.SystemContext{
		System:       model.SystemInfo{ID: 2, Code: "hr", Name: "HR"},
		Role:         &model.RoleInfo{ID: 3, Code: "hr_admin", Name: "HR Admin", OrganizationID: &orgID},
		Organization: &model.Organization{ID: orgID, Name: "Acme"},
		Permissions:  []string{"hr.employee.view", "hr.employee.edit"},
		Menus: model.MenuTree{
			{ID: 10, Code: "hr_employees", Name: "Employees", Path: "/hr/employees", IsVisible: true},
		},
	}
}

func TestPermissionUnionAcrossSystemAndPlatform(t *testing.T) {
	s := syscontext.NewStore(nil)
	s.SetPlatformContext([]string{"platform.profile.view"}, platformMenus())
	require.True(t, s.HasPermission("platform.profile.view"))
	require.False(t, s.HasPermission("hr.employee.view"))

	s.SetSystemContext(hrContext())
	require.True(t, s.HasPermission("hr.employee.view"))
	require.True(t, s.HasPermission("platform.profile.view"))
	require.False(t, s.HasPermission("finance.invoice.view"))
	require.False(t, s.HasPermission(""))
}

func TestActiveMenusAreNeverMerged(t *testing.T) {
	s := syscontext.NewStore(nil)
	s.SetPlatformContext(nil, platformMenus())
	require.Equal(t, platformMenus(), s.ActiveMenus())

	s.SetSystemContext(hrContext())
	menus := s.ActiveMenus()
	require.Len(t, menus, 1)
	require.Equal(t, "hr_employees", menus[0].Code)

	s.ClearSystemContext()
	require.Equal(t, platformMenus(), s.ActiveMenus())
}

func TestSetSystemContextReplacesWholesale(t *testing.T) {
	s := syscontext.NewStore(nil)
	s.SetSystemContext(hrContext())

	s.SetSystemContext(syscontext.SystemContext{
		System:      model.SystemInfo{ID: 4, Code: "finance", Name: "Finance"},
		Role:        &model.RoleInfo{ID: 5, Code: "accountant"},
		Permissions: []string{"finance.invoice.view"},
	})

	current := s.Current()
	require.Equal(t, "finance", current.SystemCode())
	require.Nil(t, current.Organization)
	require.Empty(t, current.Menus)
	require.False(t, s.HasPermission("hr.employee.view"))
	require.True(t, s.HasPermission("finance.invoice.view"))
}

func TestClearSystemContextKeepsPlatform(t *testing.T) {
	s := syscontext.NewStore(nil)
	s.SetPlatformContext([]string{"platform.profile.view"}, platformMenus())
	s.SetSystemContext(hrContext())

	s.ClearSystemContext()

	current := s.Current()
	require.False(t, current.InSystem())
	require.Nil(t, current.Role)
	require.Nil(t, current.Organization)
	require.Equal(t, []string{"platform.profile.view"}, current.Permissions.Codes())
	require.Equal(t, "", s.SystemCode())
}

func TestResetClearsEverything(t *testing.T) {
	s := syscontext.NewStore(nil)
	s.SetPlatformContext([]string{"platform.profile.view"}, platformMenus())
	s.SetSystemContext(hrContext())

	s.Reset()

	current := s.Current()
	require.False(t, current.InSystem())
	require.Zero(t, current.Permissions.Len())
	require.Empty(t, current.Menus)
	require.False(t, s.HasPermission("platform.profile.view"))
}

func TestCurrentReturnsCopies(t *testing.T) {
	s := syscontext.NewStore(nil)
	s.SetSystemContext(hrContext())

	current := s.Current()
	current.System.Code = "mutated"
	current.Menus[0].Code = "mutated"
	current.Permissions["injected"] = struct{}{}

	require.Equal(t, "hr", s.SystemCode())
	require.Equal(t, "hr_employees", s.ActiveMenus()[0].Code)
	require.False(t, s.HasPermission("injected"))
}

func TestSelection(t *testing.T) {
	s := syscontext.NewStore(nil)
	system, role, org := s.Selection()
	require.Nil(t, system)
	require.Nil(t, role)
	require.Nil(t, org)

	s.SetSystemContext(hrContext())
	system, role, org = s.Selection()
	require.Equal(t, "hr", system.Code)
	require.Equal(t, "hr_admin", role.Code)
	require.Equal(t, int64(7), org.ID)
}

func TestPersistAndLoad(t *testing.T) {
	repo := repofake.NewFakeRepo()
	s := syscontext.NewStore(repo)
	s.SetPlatformContext([]string{"platform.profile.view"}, platformMenus())
	s.SetSystemContext(hrContext())

	restored := syscontext.NewStore(repo)
	require.NoError(t, restored.Load(context.Background()))
	require.Equal(t, s.Current(), restored.Current())
	require.True(t, restored.HasPermission("hr.employee.edit"))
}

func TestLoadEmptyRepo(t *testing.T) {
	s := syscontext.NewStore(repofake.NewFakeRepo())
	require.NoError(t, s.Load(context.Background()))
	require.False(t, s.Current().InSystem())
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	repo := repofake.NewFakeRepo()
	repo.FailPuts = true
	s := syscontext.NewStore(repo)

	s.SetSystemContext(hrContext())
	require.Equal(t, "hr", s.SystemCode())
	require.Zero(t, repo.Puts())
}
