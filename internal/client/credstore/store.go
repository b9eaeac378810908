// Package credstore persists the portal's bearer token between runs.
//
// Exactly one value is stored, under the well-known key "access_token". The
// file store keeps an in-memory copy so the HTTP transport can read the token
// on every request without touching the disk.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store is the persisted credential as seen by the session store and the
// HTTP transport.
type Store interface {
	// Load returns the stored token, or "" when none is stored.
	Load() (string, error)
	// Save replaces the stored token.
	Save(token string) error
	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear() error
	// ClearIf removes the stored token only while it still equals token and
	// reports whether it did.
	ClearIf(token string) (bool, error)
}

// fileLayout is the on-disk JSON document.
type fileLayout struct {
	AccessToken string `json:"access_token"`
}

// FileStore keeps the token in a JSON file readable only by the owner.
type FileStore struct {
	path   string
	mu     sync.Mutex
	loaded bool
	token  string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by the file at path. The file and its
// directory are created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads the token from disk once and serves later calls from memory.
func (s *FileStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() (string, error) {
	if s.loaded {
		return s.token, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.loaded = true
			s.token = ""
			return "", nil
		}
		return "", fmt.Errorf("open credentials: %w", err)
	}
	defer f.Close()

	var doc fileLayout
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode credentials: %w", err)
	}
	s.loaded = true
	s.token = doc.AccessToken
	return s.token, nil
}

// Save writes the token to disk with 0600 permissions.
func (s *FileStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	b, err := json.Marshal(fileLayout{AccessToken: token})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	// Write then rename so a crash never leaves a truncated file behind.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}

	s.loaded = true
	s.token = token
	return nil
}

// Clear deletes the credentials file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// ClearIf deletes the credentials file if it still holds token.
func (s *FileStore) ClearIf(token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked()
	if err != nil {
		return false, err
	}
	if current == "" || current != token {
		return false, nil
	}
	return true, s.clearLocked()
}

func (s *FileStore) clearLocked() error {
	s.loaded = true
	s.token = ""
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// Memory is a Store that lives only as long as the process. It backs tests
// and the --ephemeral client mode.
type Memory struct {
	mu    sync.Mutex
	token string
}

var _ Store = (*Memory)(nil)

// NewMemory returns a Memory store pre-populated with token ("" for empty).
func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

// Load returns the current token.
func (m *Memory) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Save replaces the current token.
func (m *Memory) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Clear forgets the current token.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// ClearIf forgets the current token if it equals token.
func (m *Memory) ClearIf(token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || m.token != token {
		return false, nil
	}
	m.token = ""
	return true, nil
}
