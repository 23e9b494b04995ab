package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const tokenFileName = "token.json"

// Store persists the session token.
type Store interface {
	// Load returns the cached token, or nil when none has been saved yet.
	Load() (*Token, error)
	Save(*Token) error
}

// FileStore keeps the token as JSON in a single file. Reads and writes are
// whole-file and the write goes through a rename, so callers may treat both
// as atomic.
type FileStore struct {
	path string
}

// NewFileStore creates a store at the default XDG config location
// (~/.config/cadenza/token.json).
func NewFileStore() (*FileStore, error) {
	path, err := xdg.ConfigFile(filepath.Join("cadenza", tokenFileName))
	if err != nil {
		return nil, fmt.Errorf("resolve token path: %w", err)
	}
	return &FileStore{path: path}, nil
}

// NewFileStoreAt creates a store at an explicit path.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (*Token, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token cache: %w", err)
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token cache: %w", err)
	}
	return &tok, nil
}

func (s *FileStore) Save(tok *Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write token cache: %w", err)
	}
	return nil
}

// Verify FileStore implements Store at compile time.
var _ Store = (*FileStore)(nil)
