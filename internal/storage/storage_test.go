package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()

	dir := t.TempDir()
	sqlite, err := OpenSQLite(filepath.Join(dir, "nested", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"file":   NewFileStorage(filepath.Join(dir, "nested", "state.json")),
		"sqlite": sqlite,
	}
}

func TestBackendsRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			_, err := store.Read(ctx)
			require.ErrorIs(t, err, ErrStateNotFound)

			require.NoError(t, store.Write(ctx, []byte(`{"version":1}`)))
			got, err := store.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, `{"version":1}`, string(got))

			require.NoError(t, store.Write(ctx, []byte(`{"version":1,"page":"settings"}`)))
			got, err = store.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, `{"version":1,"page":"settings"}`, string(got))
		})
	}
}

func TestMemoryStorageDefensiveCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	data := []byte("abc")
	require.NoError(t, store.Write(ctx, data))
	data[0] = 'z'

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[0] = 'y'
	again, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryStorageConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(2)

		go func(offset int) {
			defer wg.Done()
			if err := store.Write(ctx, []byte(fmt.Sprintf("state-%d", offset))); err != nil {
				t.Errorf("Write failed: %v", err)
			}
		}(i)

		go func() {
			defer wg.Done()
			if _, err := store.Read(ctx); err != nil && !errors.Is(err, ErrStateNotFound) {
				t.Errorf("Read failed: %v", err)
			}
		}()
	}

	wg.Wait()

	_, err := store.Read(ctx)
	require.NoError(t, err)
}

func TestFileStorageWritesPrivateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir", "state.json")
	store := NewFileStorage(path)

	require.NoError(t, store.Write(context.Background(), []byte("{}")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStorageHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewFileStorage(filepath.Join(t.TempDir(), "state.json"))
	assert.ErrorIs(t, store.Write(ctx, []byte("{}")), context.Canceled)
	_, err := store.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteStorageSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := OpenSQLite(path)
	require.NoError(t, err)

	version, err := userVersion(store.db)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
	require.NoError(t, store.Write(context.Background(), []byte("persisted")))
	require.NoError(t, store.Close())

	// reopening must not re-run migrations or lose data
	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(BackendFile, filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStorage{}, store)

	store, err = Open(BackendSQLite, filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStorage{}, store)
	require.NoError(t, store.Close())

	store, err = Open(BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, store)

	_, err = Open("etcd", filepath.Join(dir, "x"))
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	path, err := DefaultPath(BackendFile)
	require.NoError(t, err)
	assert.Equal(t, "state.json", filepath.Base(path))
	assert.Equal(t, AppKey, filepath.Base(filepath.Dir(path)))

	path, err = DefaultPath(BackendSQLite)
	require.NoError(t, err)
	assert.Equal(t, "state.db", filepath.Base(path))

	_, err = DefaultPath("etcd")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
