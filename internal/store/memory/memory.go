// Package memory is an in-process Store used for local development and tests.
package memory

import (
	"context"
	"sync"

	"pitch-scorer/internal/store"
)

type blob struct {
	data        []byte
	contentType string
}

type Store struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

func New() *Store {
	return &Store{blobs: make(map[string]blob)}
}

func (s *Store) Put(_ context.Context, key string, data []byte, contentType string) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; ok {
		return store.ErrExists
	}
	s.blobs[key] = blob{data: cp, contentType: contentType}
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	b, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return cp, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	return store.ChildPrefixes(keys, prefix), nil
}

// ContentType reports the tag stored with key.
func (s *Store) ContentType(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	return b.contentType, ok
}

// Keys returns every stored key. Tests use it to assert what was written.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		out = append(out, k)
	}
	return out
}
