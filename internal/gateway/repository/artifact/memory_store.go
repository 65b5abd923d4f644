package artifact

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func memoryKey(prefix, path string) (string, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if prefix == "" {
		return "", fmt.Errorf("prefix is required")
	}
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	return prefix + "/" + path, nil
}

func (s *MemoryStore) Put(_ context.Context, prefix, path string, content []byte) error {
	key, err := memoryKey(prefix, path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, prefix, path string) ([]byte, error) {
	key, err := memoryKey(prefix, path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	p := strings.Trim(strings.TrimSpace(prefix), "/") + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, 16)
	for key := range s.data {
		if strings.HasPrefix(key, p) {
			out = append(out, strings.TrimPrefix(key, p))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Remove(_ context.Context, prefix string) error {
	p := strings.Trim(strings.TrimSpace(prefix), "/") + "/"
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.data {
		if strings.HasPrefix(key, p) {
			delete(s.data, key)
		}
	}
	return nil
}
