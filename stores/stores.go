// Package stores defines durable client storage for the persisted bearer
// token: a single string slot that survives restarts so page loads can attach
// an Authorization header before async session resolution completes.
package stores

import "sync"

// TokenStore is the durable slot holding the current bearer token. Absence of
// a stored token is equivalent to "logged out" at load time. Only the session
// store writes it: when a principal is observed, when the provider reports no
// principal, and on explicit logout.
type TokenStore interface {
	// Load returns the persisted token, or "" when none is stored.
	Load() (string, error)

	// Store persists the token, replacing any previous value.
	Store(token string) error

	// Clear removes the persisted token. Clearing an empty slot is not an
	// error.
	Clear() error
}

// MemoryTokenStore is an in-memory TokenStore for tests.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryTokenStore) Store(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
