package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	ClientConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAppVersion() string
	GetLogLevel() string
	GetStatePath() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Client
	Session
}

// New loads the configuration from environment variables, applying defaults for
// anything unset.
func New() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}
