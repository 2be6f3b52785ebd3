package geocache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/weather-fortune/internal/domain/geo"
)

type entry struct {
	place     geo.Place
	expiresAt time.Time
}

// MemoryStore is an in-process geocode cache for tests/dev.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore constructs a cache backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get implements geo.Cache.
func (s *MemoryStore) Get(_ context.Context, key string) (geo.Place, bool, error) {
	s.mu.RLock()
	item, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return geo.Place{}, false, nil
	}
	if expired(item.expiresAt, s.now()) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return geo.Place{}, false, nil
	}
	return item.place, true, nil
}

// Set stores the place with an optional TTL; ttl <= 0 keeps it until evicted.
func (s *MemoryStore) Set(_ context.Context, key string, place geo.Place, ttl time.Duration) error {
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry{place: place, expiresAt: exp}
	s.mu.Unlock()
	return nil
}

// Prune drops expired entries and reports how many were removed.
func (s *MemoryStore) Prune(_ context.Context) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, item := range s.entries {
		if expired(item.expiresAt, now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of cached entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func expired(ts, now time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return !ts.After(now)
}

var _ geo.Cache = (*MemoryStore)(nil)
