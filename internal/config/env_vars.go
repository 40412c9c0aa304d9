package config

import (
	"os"
	"path/filepath"
)

type EnvVars struct {
	AppName    string `env:"APP_NAME" envDefault:"Platform CLI"`
	AppVersion string `env:"APP_VERSION" envDefault:"1.0.0"`
	LogLevel   string `env:"PLATFORM_LOG_LEVEL" envDefault:"info"`
	StatePath  string `env:"PLATFORM_STATE_PATH"`
	Env        string `env:"ENV" envDefault:"DEV"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return valueOr(e.AppName, "Platform CLI")
}

func (e EnvVars) GetAppVersion() string {
	return valueOr(e.AppVersion, "1.0.0")
}

func (e EnvVars) GetLogLevel() string {
	return valueOr(e.LogLevel, "info")
}

// GetStatePath returns the sqlite file holding the persisted session state.
// Defaults to platformctl/state.db under the user config directory.
func (e EnvVars) GetStatePath() string {
	if e.StatePath != "" {
		return e.StatePath
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "platformctl", "state.db")
}

func (e EnvVars) GetEnv() string {
	return valueOr(e.Env, "DEV")
}

func valueOr(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
