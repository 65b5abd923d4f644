package apps

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"appforge/internal/gateway/entity"
)

type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]entity.GenerationRecord
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[int64]entity.GenerationRecord),
		now:  time.Now,
	}
}

func cloneRecord(rec entity.GenerationRecord) entity.GenerationRecord {
	rec.Files = slices.Clone(rec.Files)
	rec.EnvVars = slices.Clone(rec.EnvVars)
	return rec.Normalize()
}

func (s *MemoryStore) Create(_ context.Context, rec entity.GenerationRecord) (entity.GenerationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec = cloneRecord(rec)
	rec.ID = s.nextID
	rec.CreatedAt = s.now().UTC()
	s.data[rec.ID] = rec
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Update(_ context.Context, rec entity.GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[rec.ID]
	if !ok {
		return ErrNotFound
	}
	rec = cloneRecord(rec)
	rec.CreatedAt = cur.CreatedAt
	s.data[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (entity.GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[id]
	if !ok {
		return entity.GenerationRecord{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) List(_ context.Context) ([]entity.GenerationRecord, error) {
	s.mu.RLock()
	out := make([]entity.GenerationRecord, 0, len(s.data))
	for _, rec := range s.data {
		out = append(out, cloneRecord(rec))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}
