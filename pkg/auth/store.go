package auth

import (
	"context"
	"errors"
	"sync"
)

// ErrSessionNotFound is returned by SessionStore.Load for unknown sessions.
var ErrSessionNotFound = errors.New("auth: session not found")

// SessionStore persists serialized browser sessions for RemoteAuth.
type SessionStore interface {
	// SessionExists reports whether a session is stored under name
	SessionExists(ctx context.Context, name string) (bool, error)

	// Load returns the stored session, ErrSessionNotFound if there is none
	Load(ctx context.Context, name string) ([]byte, error)

	// Save stores data under name, replacing any previous value
	Save(ctx context.Context, name string, data []byte) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, name string) error
}

// MemoryStore implements SessionStore using an in-memory map.
// Sessions do not survive the process; it is meant for tests and short-lived tools.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates a new MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// SessionExists implements SessionStore.
func (s *MemoryStore) SessionExists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[name]
	return ok, nil
}

// Load implements SessionStore.
func (s *MemoryStore) Load(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[name]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return append([]byte(nil), data...), nil
}

// Save implements SessionStore.
func (s *MemoryStore) Save(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[name] = append([]byte(nil), data...)
	return nil
}

// Delete implements SessionStore.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, name)
	return nil
}
