package sessioncache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// MemoryStore keeps the cached session in process memory only.
type MemoryStore struct {
	mu      sync.Mutex
	session *CachedSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (ms *MemoryStore) Load() (*CachedSession, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.session == nil {
		return nil, nil
	}
	s := *ms.session
	return &s, nil
}

func (ms *MemoryStore) Save(s *CachedSession) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	copied := *s
	ms.session = &copied
	return nil
}

func (ms *MemoryStore) Clear() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.session = nil
	return nil
}

// FileStore persists the cached session as JSON, surviving restarts the way
// browser session storage survives reloads.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs2 *FileStore) Load() (*CachedSession, error) {
	fs2.mu.Lock()
	defer fs2.mu.Unlock()

	data, err := os.ReadFile(fs2.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var s CachedSession
	if err := json.Unmarshal(data, &s); err != nil {
		// A corrupt cache is treated as no cache.
		return nil, nil
	}
	return &s, nil
}

func (fs2 *FileStore) Save(s *CachedSession) error {
	fs2.mu.Lock()
	defer fs2.mu.Unlock()

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fs2.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(fs2.path, data, 0o600)
}

func (fs2 *FileStore) Clear() error {
	fs2.mu.Lock()
	defer fs2.mu.Unlock()

	err := os.Remove(fs2.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
