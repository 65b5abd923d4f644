package apps

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"appforge/internal/gateway/entity"
)

type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries: 256,
		TTL:        5 * time.Minute,
	}
}

type CacheStats struct {
	Hits   uint64
	Misses uint64
}

// CachedStore serves Get from an LRU and invalidates on every write to the
// same id. List always reads through so ordering stays authoritative.
//
// A Get that misses only fills the cache when no write landed while it was
// reading the origin; writes bump epoch under mu.
type CachedStore struct {
	origin Store
	byID   *expirable.LRU[int64, entity.GenerationRecord]

	mu    sync.Mutex
	epoch uint64

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultCacheConfig().MaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheConfig().TTL
	}
	return &CachedStore{
		origin: origin,
		byID:   expirable.NewLRU[int64, entity.GenerationRecord](cfg.MaxEntries, nil, cfg.TTL),
	}
}

func (s *CachedStore) Stats() CacheStats {
	return CacheStats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

func (s *CachedStore) Create(ctx context.Context, rec entity.GenerationRecord) (entity.GenerationRecord, error) {
	return s.origin.Create(ctx, rec)
}

func (s *CachedStore) Update(ctx context.Context, rec entity.GenerationRecord) error {
	err := s.origin.Update(ctx, rec)
	s.invalidate(rec.ID)
	return err
}

func (s *CachedStore) invalidate(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.byID.Remove(id)
}

func (s *CachedStore) Get(ctx context.Context, id int64) (entity.GenerationRecord, error) {
	if rec, ok := s.byID.Get(id); ok {
		s.hits.Add(1)
		return cloneRecord(rec), nil
	}
	s.misses.Add(1)
	s.mu.Lock()
	seen := s.epoch
	s.mu.Unlock()

	rec, err := s.origin.Get(ctx, id)
	if err != nil {
		return entity.GenerationRecord{}, err
	}

	s.mu.Lock()
	if s.epoch == seen {
		s.byID.Add(id, cloneRecord(rec))
	}
	s.mu.Unlock()
	return rec, nil
}

func (s *CachedStore) List(ctx context.Context) ([]entity.GenerationRecord, error) {
	return s.origin.List(ctx)
}

func (s *CachedStore) Delete(ctx context.Context, id int64) error {
	err := s.origin.Delete(ctx, id)
	s.invalidate(id)
	return err
}
