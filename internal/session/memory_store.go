package session

import (
	"context"
	"sync"
)

// Compile-time check to ensure memoryStore implements Store.
var _ Store = (*memoryStore)(nil)

// memoryStore keeps the session pair in process memory. Used in tests
// and single-node development setups without Redis.
type memoryStore struct {
	mu       sync.Mutex
	token    string
	identity string
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Get(_ context.Context) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", "", ErrNoSession
	}
	return s.token, s.identity, nil
}

func (s *memoryStore) Set(_ context.Context, token, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.identity = identity
	return nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.identity = ""
	return nil
}
