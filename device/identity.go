package device

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-platform-client/storage"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const randomSuffixLength = 9

// Identity owns the per-device identifier sent as X-Device-UID. The identifier
// is generated once, persisted, and reused for the life of the install.
type Identity struct {
	repo       storage.Repo
	platform   string
	appVersion string

	mu  sync.Mutex
	uid string
}

func NewIdentity(repo storage.Repo, platform, appVersion string) *Identity {
	return &Identity{
		repo:       repo,
		platform:   platform,
		appVersion: appVersion,
	}
}

// UID returns the device identifier, generating and persisting it on first use.
func (i *Identity) UID(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.uid != "" {
		return i.uid, nil
	}

	stored, ok, err := i.repo.Get(ctx, storage.KeyDeviceUID)
	if err != nil {
		return "", fmt.Errorf("[Identity.UID] load: %w", err)
	}
	if ok && len(stored) > 0 {
		i.uid = string(stored)
		return i.uid, nil
	}

	uid := Generate(i.platform)
	if err := i.repo.Put(ctx, storage.KeyDeviceUID, []byte(uid)); err != nil {
		return "", fmt.Errorf("[Identity.UID] persist: %w", err)
	}
	i.uid = uid
	return uid, nil
}

// Registration builds the device registration payload for this install.
func (i *Identity) Registration(ctx context.Context, hostname string) (DeviceInfo, error) {
	uid, err := i.UID(ctx)
	if err != nil {
		return DeviceInfo{}, err
	}
	name := hostname
	if name == "" {
		name = i.platform + " client"
	}
	if len(name) > 50 {
		name = name[:50]
	}
	return DeviceInfo{
		UID:        uid,
		Name:       name,
		Platform:   i.platform,
		OSVersion:  runtime.GOOS + "/" + runtime.GOARCH,
		AppVersion: i.appVersion,
	}, nil
}

// DeviceInfo describes this install to the backend.
type DeviceInfo struct {
	UID        string
	Name       string
	Platform   string
	OSVersion  string
	AppVersion string
}

// Generate builds a new identifier of the form <platform>_<unix millis>_<random>.
func Generate(platform string) string {
	if platform == "" {
		platform = "web"
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:randomSuffixLength]
	return fmt.Sprintf("%s_%d_%s", platform, NowTimeFunc().UnixMilli(), random)
}
