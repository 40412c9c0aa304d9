package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-platform-client/storage"
	"github.com/jrsteele09/go-platform-client/storage/sqlite"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store, err := sqlite.Open(path)
	require.NoError(t, err)

	_, ok, err := store.Get(ctx, storage.KeyAuth)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(ctx, storage.KeyAuth, []byte(`{"a":1}`)))
	require.NoError(t, store.Put(ctx, storage.KeyAuth, []byte(`{"a":2}`)))

	value, ok, err := store.Get(ctx, storage.KeyAuth)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"a":2}`, string(value))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err = reopened.Get(ctx, storage.KeyAuth)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"a":2}`, string(value))

	require.NoError(t, reopened.Delete(ctx, storage.KeyAuth))
	_, ok, err = reopened.Get(ctx, storage.KeyAuth)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := sqlite.Open("  ")
	require.Error(t, err)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	type blob struct {
		Name string `json:"name"`
	}
	require.NoError(t, storage.SaveJSON(ctx, store, storage.KeySystem, blob{Name: "admin"}))

	var got blob
	ok, err := storage.LoadJSON(ctx, store, storage.KeySystem, &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "admin", got.Name)

	ok, err = storage.LoadJSON(ctx, store, storage.KeyDeviceUID, &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNilStore(t *testing.T) {
	var store *sqlite.Store
	require.NoError(t, store.Close())
	_, _, err := store.Get(context.Background(), "k")
	require.Error(t, err)
}
