package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Keys of the persisted client state.
const (
	KeyDeviceUID = "device_uid"
	KeyAuth      = "auth-storage"
	KeySystem    = "system-storage"
)

// Repo is durable client storage: a small key/blob store that survives
// restarts. It is local to one device and never shared.
type Repo interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// LoadJSON decodes the blob stored at key into target. It reports false when
// nothing is stored.
func LoadJSON(ctx context.Context, repo Repo, key string, target any) (bool, error) {
	data, ok, err := repo.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("storage get %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("storage decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes value and stores it at key.
func SaveJSON(ctx context.Context, repo Repo, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage encode %s: %w", key, err)
	}
	if err := repo.Put(ctx, key, data); err != nil {
		return fmt.Errorf("storage put %s: %w", key, err)
	}
	return nil
}
