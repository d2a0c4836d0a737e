// Package fs provides a file-backed token store. The token is kept as a small
// JSON file under the user config dir with owner-only permissions.
package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TokenStore stores the bearer token as a JSON file on the filesystem.
type TokenStore struct {
	mu   sync.Mutex
	path string
}

// tokenFile is the JSON structure stored on disk.
type tokenFile struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

// NewTokenStore creates a file-backed token store.
// If path is empty, defaults to ~/.config/<appName>/token.json
func NewTokenStore(path string, appName string) (*TokenStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = "etuitionbd"
		}
		path = filepath.Join(configDir, appName, "token.json")
	}
	return &TokenStore{path: path}, nil
}

// Load returns the persisted token, or "" when the file does not exist.
func (s *TokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	var file tokenFile
	if err := json.Unmarshal(data, &file); err != nil {
		return "", fmt.Errorf("failed to parse token file: %w", err)
	}
	return file.Token, nil
}

// Store persists the token with restricted permissions.
func (s *TokenStore) Store(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(tokenFile{Token: token, SavedAt: time.Now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize token: %w", err)
	}

	// Write-then-rename so a crash never leaves a half-written token file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

// Clear removes the persisted token file.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the path to the token file.
func (s *TokenStore) Path() string { return s.path }
