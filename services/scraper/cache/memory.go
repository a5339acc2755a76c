package cache

import (
	"context"
	"sync"
	"time"

	"xscrape-backend/lib/records"
)

type memoryEntry struct {
	result    records.ScrapeResult
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore keeps results in process memory. Useful for tests and
// one-shot CLI runs where persistence across processes is not wanted.
type MemoryStore struct {
	defaultTTL time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry

	now func() time.Time
}

func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &MemoryStore{
		defaultTTL: defaultTTL,
		entries:    map[string]memoryEntry{},
		now:        time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, identity string) (*records.ScrapeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := records.NormalizeIdentity(identity)
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}

	now := s.now()
	if !entry.expiresAt.After(now) {
		delete(s.entries, key)
		return nil, nil
	}

	result := entry.result
	annotateHit(&result, now.Sub(entry.createdAt))
	return &result, nil
}

func (s *MemoryStore) Set(ctx context.Context, identity string, result records.ScrapeResult, ttl ...time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[records.NormalizeIdentity(identity)] = memoryEntry{
		result:    result,
		createdAt: now,
		expiresAt: now.Add(effectiveTTL(s.defaultTTL, ttl)),
	}
	return nil
}

func (s *MemoryStore) Invalidate(ctx context.Context, identity string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := records.NormalizeIdentity(identity)
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok, nil
}

func (s *MemoryStore) Clear(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := int64(len(s.entries))
	s.entries = map[string]memoryEntry{}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
