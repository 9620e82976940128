package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// AppKey identifies this application's state in shared locations.
const AppKey = "spacing-calculator"

// Backend names a Storage implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

var (
	// ErrStateNotFound indicates nothing has been saved yet.
	ErrStateNotFound = errors.New("no saved state")
	// ErrUnknownBackend indicates an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown state backend")
)

// Storage reads and writes the encoded session aggregate.
type Storage interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Open creates the Storage for backend at path. An empty path resolves to
// DefaultPath(backend).
func Open(backend Backend, path string) (Storage, error) {
	if backend != BackendMemory && path == "" {
		resolved, err := DefaultPath(backend)
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	switch backend {
	case BackendFile:
		return NewFileStorage(path), nil
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// DefaultPath returns the per-user location for backend's state, under the
// user configuration directory.
func DefaultPath(backend Backend) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	dir := filepath.Join(base, AppKey)
	switch backend {
	case BackendFile:
		return filepath.Join(dir, "state.json"), nil
	case BackendSQLite:
		return filepath.Join(dir, "state.db"), nil
	case BackendMemory:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// MemoryStorage keeps the encoded state in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Read returns a defensive copy of the stored bytes.
func (s *MemoryStorage) Read(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, ErrStateNotFound
	}
	return clone(s.data), nil
}

// Write replaces the stored bytes with a copy of data.
func (s *MemoryStorage) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	s.data = clone(data)
	s.mu.Unlock()

	return nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}

func clone(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)
	return out
}
