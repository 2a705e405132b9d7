// Package memory provides an in-process cache store for single-instance
// deployments and tests.
package memory

import (
	"context"
	"sync"
)

// Store is a mutex-guarded map satisfying the cache store contract.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New creates an empty in-memory cache store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Get returns the cached value for key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s == nil {
		return nil, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = copied
	return nil
}

// Delete evicts the provided keys. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
