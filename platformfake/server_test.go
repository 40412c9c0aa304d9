package platformfake_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-platform-client/model"
	"github.com/jrsteele09/go-platform-client/platformfake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testFixture struct {
	fake *platformfake.Server
	srv  *httptest.Server
}

func setupTestFixture(t *testing.T, options ...platformfake.Option) *testFixture {
	t.Helper()
	fake, err := platformfake.New(append([]platformfake.Option{platformfake.WithBcryptCost(bcrypt.MinCost)}, options...)...)
	require.NoError(t, err)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return &testFixture{fake: fake, srv: srv}
}

func (f *testFixture) call(t *testing.T, method, path, token string, body any, out any) (int, model.Envelope) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, err := http.NewRequest(method, f.srv.URL+platformfake.APIPrefix+path, bytes.NewReader(payload))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env model.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if out != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode, env
}

func (f *testFixture) login(t *testing.T) model.LoginResponse {
	t.Helper()
	var resp model.LoginResponse
	status, _ := f.call(t, http.MethodPost, platformfake.RouteLogin, "", model.LoginRequest{
		Email:    platformfake.DemoEmail,
		Password: platformfake.DemoPassword,
	}, &resp)
	require.Equal(t, http.StatusOK, status)
	return resp
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	resp := f.login(t)

	require.NotEmpty(t, resp.PlatformToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "john.doe@example.com", resp.User.Email)
	require.Len(t, resp.AvailableSystems, 2)
	require.Equal(t, "admin", resp.AvailableSystems[0].System.Code)
	require.Len(t, resp.AvailableSystems[0].Roles, 1)
	require.False(t, resp.HasPlatformContext())
	require.Equal(t, 1, f.fake.Calls(platformfake.RouteLogin))
}

func TestLoginRejectsBadPassword(t *testing.T) {
	f := setupTestFixture(t)
	status, env := f.call(t, http.MethodPost, platformfake.RouteLogin, "", model.LoginRequest{
		Email:    platformfake.DemoEmail,
		Password: "wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.False(t, env.Success)
	require.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
}

func TestLoginValidation(t *testing.T) {
	f := setupTestFixture(t)
	status, env := f.call(t, http.MethodPost, platformfake.RouteLogin, "", model.LoginRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Len(t, env.Error.Details, 2)
}

func TestLoginVariants(t *testing.T) {
	f := setupTestFixture(t, platformfake.WithPlatformTokenField(), platformfake.WithLoginContext(), platformfake.WithFlatSystems())
	resp := f.login(t)

	require.NotEmpty(t, resp.PlatformToken)
	require.True(t, resp.HasPlatformContext())
	require.Len(t, resp.AvailableSystems, 2)
	require.Empty(t, resp.AvailableSystems[1].Roles)
	require.Equal(t, model.IconRef("Box"), resp.AvailableSystems[1].System.IconName)
}

func TestRefreshRotates(t *testing.T) {
	f := setupTestFixture(t)
	login := f.login(t)

	var refreshed model.RefreshResponse
	status, _ := f.call(t, http.MethodPost, platformfake.RouteRefresh, "", model.RefreshRequest{RefreshToken: login.RefreshToken}, &refreshed)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, refreshed.PlatformToken)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	status, env := f.call(t, http.MethodPost, platformfake.RouteRefresh, "", model.RefreshRequest{RefreshToken: login.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "INVALID_REFRESH_TOKEN", env.Error.Code)
}

func TestSwitchSystem(t *testing.T) {
	f := setupTestFixture(t)
	login := f.login(t)

	var sw model.SwitchSystemResponse
	status, _ := f.call(t, http.MethodPost, platformfake.RouteSwitchSystem, login.PlatformToken, model.SwitchSystemRequest{SystemCode: "admin"}, &sw)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, sw.SystemToken)
	require.Equal(t, "admin", sw.CurrentSystem.Code)
	require.Equal(t, "admin_manager", sw.CurrentRole.Code)
	require.Equal(t, int64(100), sw.CurrentOrganization.ID)
	require.Contains(t, sw.Permissions, "admin.user.create")

	var current model.CurrentContextResponse
	status, _ = f.call(t, http.MethodGet, platformfake.RouteCurrentContext, sw.SystemToken, nil, &current)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, model.TokenKindSystem, current.ContextType)
	require.Equal(t, "admin", current.CurrentSystem.Code)

	status, env := f.call(t, http.MethodPost, platformfake.RouteSwitchSystem, sw.SystemToken, model.SwitchSystemRequest{SystemCode: "dsl"}, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "PLATFORM_TOKEN_REQUIRED", env.Error.Code)
}

func TestSwitchSystemDenied(t *testing.T) {
	f := setupTestFixture(t)
	login := f.login(t)

	status, env := f.call(t, http.MethodPost, platformfake.RouteSwitchSystem, login.PlatformToken, model.SwitchSystemRequest{SystemCode: "finance"}, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "SYSTEM_ACCESS_DENIED", env.Error.Code)

	roleID := 999
	status, env = f.call(t, http.MethodPost, platformfake.RouteSwitchSystem, login.PlatformToken, model.SwitchSystemRequest{SystemCode: "admin", RoleID: &roleID}, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "ROLE_NOT_ASSIGNED", env.Error.Code)
}

func TestExpireTokens(t *testing.T) {
	f := setupTestFixture(t)
	login := f.login(t)

	status, _ := f.call(t, http.MethodGet, platformfake.RouteMe, login.PlatformToken, nil, nil)
	require.Equal(t, http.StatusOK, status)

	f.fake.ExpirePlatformTokens()
	status, env := f.call(t, http.MethodGet, platformfake.RouteMe, login.PlatformToken, nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "TOKEN_EXPIRED", env.Error.Code)
}

func TestFailureInjection(t *testing.T) {
	f := setupTestFixture(t)
	login := f.login(t)

	f.fake.FailNext(platformfake.RouteMe, http.StatusServiceUnavailable, "UNAVAILABLE")
	status, env := f.call(t, http.MethodGet, platformfake.RouteMe, login.PlatformToken, nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "UNAVAILABLE", env.Error.Code)

	status, _ = f.call(t, http.MethodGet, platformfake.RouteMe, login.PlatformToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 2, f.fake.Calls(platformfake.RouteMe))
}

func TestDeviceRegistrationAndHeartbeat(t *testing.T) {
	f := setupTestFixture(t)
	login := f.login(t)

	status, _ := f.call(t, http.MethodPost, platformfake.RouteDeviceRegister, "", model.DeviceRegistration{DeviceUID: "web_1_abc", Name: "laptop", Platform: "web"}, nil)
	require.Equal(t, http.StatusCreated, status)

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+platformfake.APIPrefix+platformfake.RouteDeviceHeartbeat, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+login.PlatformToken)
	req.Header.Set("X-Device-UID", "web_1_abc")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	device, ok := f.fake.Device("web_1_abc")
	require.True(t, ok)
	require.Equal(t, 1, device.Heartbeats)
}

func TestCORSAllowedOrigin(t *testing.T) {
	f := setupTestFixture(t, platformfake.WithAllowedOrigins("http://localhost:5173/"))

	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+platformfake.APIPrefix+platformfake.RouteLogin, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-Device-UID")
	require.Zero(t, f.fake.Calls(platformfake.RouteLogin))
}

func TestCORSUnknownOriginGetsNoHeaders(t *testing.T) {
	f := setupTestFixture(t, platformfake.WithAllowedOrigins("http://localhost:5173"))

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+platformfake.APIPrefix+platformfake.RouteMe, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
