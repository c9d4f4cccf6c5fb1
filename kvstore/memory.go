package kvstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a process-local Store, used in tests and for throwaway instances
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemory() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *MemoryStore) Each(_ context.Context, fn func(key string, value []byte) error) error {
	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	snapshot := make(map[string][]byte, len(s.values))
	for k, v := range s.values {
		snapshot[k] = append([]byte(nil), v...)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		if err := fn(k, snapshot[k]); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
