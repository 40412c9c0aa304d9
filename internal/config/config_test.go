package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-platform-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("PLATFORM_STATE_PATH", "/tmp/state.db")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000/api/v1", c.GetAPIBaseURL())
	require.Equal(t, "web", c.GetPlatformHeader())
	require.Equal(t, 30*time.Second, c.GetRequestTimeout())
	require.Equal(t, "/tmp/state.db", c.GetStatePath())
	require.True(t, c.GetNotifyExit())
	require.True(t, c.GetAutoSwitch())
	require.Equal(t, "info", c.GetLogLevel())
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("PLATFORM_API_URL", "https://api.example.com/")
	t.Setenv("PLATFORM_REQUEST_TIMEOUT", "5s")
	t.Setenv("PLATFORM_AUTO_SWITCH", "false")
	t.Setenv("PLATFORM_HEADER", "cli")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/api/v1", c.GetAPIBaseURL())
	require.Equal(t, 5*time.Second, c.GetRequestTimeout())
	require.False(t, c.GetAutoSwitch())
	require.Equal(t, "cli", c.GetPlatformHeader())
}

func TestInvalidDuration(t *testing.T) {
	t.Setenv("PLATFORM_REQUEST_TIMEOUT", "soon")

	_, err := config.New()
	require.Error(t, err)
}

func TestClientBaseURLKeepsPrefix(t *testing.T) {
	c := config.Client{APIURL: "http://127.0.0.1:9000/api/v1"}
	require.Equal(t, "http://127.0.0.1:9000/api/v1", c.GetAPIBaseURL())
}
