package session

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultSessionFileName is the default name for the session file.
	DefaultSessionFileName = "session.txt"
)

// Storage handles persisting the serialized session blob to disk.
type Storage struct {
	path string
}

// NewStorage creates session storage at the specified path. If path is
// empty, the default location (~/.config/echoctl/session.txt) is used.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		path = filepath.Join(configDir, "echoctl", DefaultSessionFileName)
	}

	return &Storage{path: path}, nil
}

// Save persists a session blob to disk.
func (s *Storage) Save(blob string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write with restricted permissions (owner only)
	if err := os.WriteFile(s.path, []byte(blob), 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load reads the session blob from disk. It returns the empty string
// when no session is stored.
func (s *Storage) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read session file: %w", err)
	}
	return string(data), nil
}

// Delete removes the stored session.
func (s *Storage) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// Exists returns true if a session file exists.
func (s *Storage) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the path to the session file.
func (s *Storage) Path() string {
	return s.path
}
