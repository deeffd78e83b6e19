package memory

import (
	"context"
	"sync"
)

// KeyStore is an in-memory key/value store used in tests and for running the
// agent without a database file.  Nothing survives a restart.
type KeyStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func New() *KeyStore {
	return &KeyStore{
		data: make(map[string]string),
	}
}

func (s *KeyStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *KeyStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *KeyStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len reports the number of stored keys.  Test helper.
func (s *KeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
