package config

import (
	"strings"
	"time"
)

const apiPrefix = "/api/v1"

type ClientConfig interface {
	GetAPIBaseURL() string
	GetPlatformHeader() string
	GetRequestTimeout() time.Duration
}

type Client struct {
	APIURL         string        `env:"PLATFORM_API_URL" envDefault:"http://localhost:8000"`
	Platform       string        `env:"PLATFORM_HEADER" envDefault:"web"`
	RequestTimeout time.Duration `env:"PLATFORM_REQUEST_TIMEOUT" envDefault:"30s"`
}

var _ ClientConfig = Client{}

// GetAPIBaseURL returns the API root including the /api/v1 prefix, e.g.
// "http://localhost:8000/api/v1".
func (c Client) GetAPIBaseURL() string {
	base := strings.TrimRight(valueOr(c.APIURL, "http://localhost:8000"), "/")
	if strings.HasSuffix(base, apiPrefix) {
		return base
	}
	return base + apiPrefix
}

// GetPlatformHeader is the value sent in X-Platform.
func (c Client) GetPlatformHeader() string {
	return valueOr(c.Platform, "web")
}

func (c Client) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return c.RequestTimeout
}
