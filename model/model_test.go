package model_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-platform-client/model"
	"github.com/stretchr/testify/require"
)

func TestLoginResponseAcceptsAccessTokenAndFlatSystems(t *testing.T) {
	payload := `{
		"access_token": "platform-abc",
		"refresh_token": "refresh-abc",
		"expires_in": 86400,
		"user": {"id": 7, "email": "john.doe@example.com", "first_name": "John", "last_name": "Doe", "language_code": "mn"},
		"available_systems": [
			{"id": 1, "code": "admin", "name": "Admin", "sequence": 1},
			{"id": 2, "code": "dsl", "name": "DSL", "icon_name": "Workflow", "color": "#ff0000", "sequence": 2}
		]
	}`

	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	require.Equal(t, "platform-abc", resp.PlatformToken)
	require.Equal(t, "refresh-abc", resp.RefreshToken)
	require.Equal(t, "John Doe", resp.User.DisplayName())
	require.Len(t, resp.AvailableSystems, 2)
	require.Equal(t, model.IconRef("Box"), resp.AvailableSystems[0].System.IconName)
	require.Equal(t, "#6366f1", resp.AvailableSystems[0].System.Color)
	require.Equal(t, model.IconRef("Workflow"), resp.AvailableSystems[1].System.IconName)
	require.NotNil(t, resp.AvailableSystems[0].Roles)
	require.Empty(t, resp.AvailableSystems[0].Roles)
	require.False(t, resp.HasPlatformContext())
}

func TestLoginResponsePrefersPlatformTokenAndNestedSystems(t *testing.T) {
	payload := `{
		"platform_token": "platform-1",
		"access_token": "ignored",
		"refresh_token": "r",
		"user": {"id": 1, "email": "a@b.c"},
		"available_systems": [{"system": {"id": 1, "code": "admin", "name": "Admin"}, "roles": [{"id": 3, "code": "admin", "name": "Administrator", "organization_id": 9}]}],
		"permissions": ["platform.home"],
		"menus": []
	}`

	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	require.Equal(t, "platform-1", resp.PlatformToken)
	sr, ok := resp.AvailableSystems.Find("admin")
	require.True(t, ok)
	require.Len(t, sr.Roles, 1)
	require.Equal(t, int64(9), *sr.Roles[0].OrganizationID)
	require.True(t, resp.HasPlatformContext())

	_, ok = resp.AvailableSystems.Find("dsl")
	require.False(t, ok)
}

func TestRefreshResponseAlias(t *testing.T) {
	var resp model.RefreshResponse
	require.NoError(t, json.Unmarshal([]byte(`{"access_token":"p2","refresh_token":"r2"}`), &resp))
	require.Equal(t, "p2", resp.PlatformToken)
	require.Equal(t, "r2", resp.RefreshToken)
}

func TestMenuTreeVisibleOrdersAndFilters(t *testing.T) {
	tree := model.MenuTree{
		{ID: 2, Code: "users", Sequence: 2, IsVisible: true},
		{ID: 1, Code: "dashboard", Sequence: 1, IsVisible: true, Children: []model.MenuItem{
			{ID: 4, Code: "stats", Sequence: 2, IsVisible: true},
			{ID: 5, Code: "hidden", Sequence: 1, IsVisible: false},
			{ID: 6, Code: "charts", Sequence: 1, IsVisible: true, Path: "/dashboard/charts"},
		}},
		{ID: 3, Code: "secret", Sequence: 0, IsVisible: false, Children: []model.MenuItem{
			{ID: 7, Code: "under-secret", IsVisible: true},
		}},
	}

	visible := tree.Visible()
	require.Len(t, visible, 2)
	require.Equal(t, "dashboard", visible[0].Code)
	require.Equal(t, "users", visible[1].Code)
	require.Len(t, visible[0].Children, 2)
	require.Equal(t, "charts", visible[0].Children[0].Code)

	_, ok := visible.Find("under-secret")
	require.False(t, ok)
	item, ok := tree.FindByPath("/dashboard/charts")
	require.True(t, ok)
	require.Equal(t, 6, item.ID)
	require.Equal(t, 7, tree.Len())
}

func TestMenuTreeCloneIsDeep(t *testing.T) {
	tree := model.MenuTree{{Code: "a", Children: []model.MenuItem{{Code: "b"}}}}
	clone := tree.Clone()
	clone[0].Children[0].Code = "changed"
	require.Equal(t, "b", tree[0].Children[0].Code)
}

func TestPermissionSetJSON(t *testing.T) {
	set := model.NewPermissionSet("b.read", "a.write", "", "b.read")
	require.Equal(t, 2, set.Len())
	require.True(t, set.Has("a.write"))
	require.False(t, set.Has(""))

	data, err := json.Marshal(set)
	require.NoError(t, err)
	require.JSONEq(t, `["a.write","b.read"]`, string(data))

	var decoded model.PermissionSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, set, decoded)
}
