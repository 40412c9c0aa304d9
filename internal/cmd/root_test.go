package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/go-platform-client/internal/cmd"
	"github.com/jrsteele09/go-platform-client/platformfake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type testFixture struct {
	fake *platformfake.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	fake, err := platformfake.New(platformfake.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	t.Setenv("PLATFORM_API_URL", srv.URL)
	t.Setenv("PLATFORM_STATE_PATH", filepath.Join(t.TempDir(), "state.db"))
	t.Setenv("PLATFORM_LOG_LEVEL", "error")
	return &testFixture{fake: fake}
}

// run executes one CLI invocation, as a separate process would.
func (f *testFixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := cmd.NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (f *testFixture) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := f.run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	out := f.mustRun(t, "login", "--email", platformfake.DemoEmail, "--password", platformfake.DemoPassword)
	require.Contains(t, out, "Logged in as John Doe")
	require.Contains(t, out, "Entered system admin")
}

func TestLoginPersistsAcrossInvocations(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	out := f.mustRun(t, "whoami", "--format", "json")
	var view struct {
		Authenticated bool   `json:"authenticated"`
		Email         string `json:"email"`
		DeviceUID     string `json:"device_uid"`
		State         string `json:"state"`
		System        string `json:"system"`
		Tokens        []struct {
			Kind   string `json:"kind"`
			Active bool   `json:"active"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.True(t, view.Authenticated)
	require.Equal(t, platformfake.DemoEmail, view.Email)
	require.Equal(t, "admin", view.System)
	require.NotEmpty(t, view.DeviceUID)
	require.Len(t, view.Tokens, 2)
	require.Equal(t, "system", view.Tokens[1].Kind)
	require.True(t, view.Tokens[1].Active)

	_, ok := f.fake.Device(view.DeviceUID)
	require.True(t, ok)
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	f := setupTestFixture(t)
	out, err := f.run(t, platformfake.DemoPassword+"\n", "login", "--email", platformfake.DemoEmail)
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as")
}

func TestLoginRejectsBadPassword(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.run(t, "", "login", "--email", platformfake.DemoEmail, "--password", "wrong")
	require.Error(t, err)
	require.Contains(t, err.Error(), "INVALID_CREDENTIALS")

	out := f.mustRun(t, "whoami")
	require.Contains(t, out, "Not logged in")
}

func TestSwitchExitAndPermissionChecks(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	require.Contains(t, f.mustRun(t, "can", "admin.user.view", "platform.profile.view"), "allowed")
	_, err := f.run(t, "", "can", "dsl.request.view")
	require.Error(t, err)

	require.Contains(t, f.mustRun(t, "switch", "dsl"), "Entered system dsl")
	require.Contains(t, f.mustRun(t, "can", "--any", "admin.user.view", "dsl.request.approve"), "allowed")
	_, err = f.run(t, "", "can", "admin.user.view")
	require.Error(t, err)

	require.Contains(t, f.mustRun(t, "exit"), "Back on the platform")
	out := f.mustRun(t, "context", "--format", "yaml")
	var view struct {
		State       string   `yaml:"state"`
		System      string   `yaml:"system"`
		Permissions []string `yaml:"permissions"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	require.Equal(t, "platform", view.State)
	require.Empty(t, view.System)
	require.ElementsMatch(t, []string{"platform.profile.view", "platform.system.switch"}, view.Permissions)
}

func TestSwitchUnknownSystemKeepsContext(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	_, err := f.run(t, "", "switch", "billing")
	require.Error(t, err)
	require.Contains(t, f.mustRun(t, "context"), "System:       admin")
}

func TestMenusHideInvisibleItems(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.mustRun(t, "switch", "dsl")

	visible := f.mustRun(t, "menus")
	require.NotContains(t, visible, "(hidden)")

	all := f.mustRun(t, "menus", "--all")
	require.Contains(t, all, "(hidden)")
}

func TestSystemsMarksActive(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	out := f.mustRun(t, "systems", "--format", "json")
	var views []struct {
		Code   string `json:"code"`
		Active bool   `json:"active"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 2)
	for _, v := range views {
		require.Equal(t, v.Code == "admin", v.Active, v.Code)
	}
}

func TestLogoutClearsState(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	require.Contains(t, f.mustRun(t, "logout"), "Logged out")
	require.Contains(t, f.mustRun(t, "whoami"), "Not logged in")
	_, err := f.run(t, "", "systems")
	require.Error(t, err)
}

func TestSyncAfterTokenExpiry(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.fake.ExpirePlatformTokens()
	f.fake.ExpireSystemTokens()

	require.Contains(t, f.mustRun(t, "sync"), "Context synced (in_system)")
	require.Contains(t, f.mustRun(t, "context"), "System:       admin")
}

func TestVersionRunsWithoutState(t *testing.T) {
	t.Setenv("PLATFORM_STATE_PATH", filepath.Join(t.TempDir(), "missing", "state.db"))
	root := cmd.NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "Platform CLI 1.0.0")
}
