package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/weather-fortune/internal/domain/auth"
)

// MemoryStore keeps sessions in process memory for tests/dev.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]auth.Session
	now      func() time.Time
}

// NewMemoryStore constructs an empty session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]auth.Session),
		now:      time.Now,
	}
}

// Save implements auth.SessionStore.
func (s *MemoryStore) Save(_ context.Context, session auth.Session) error {
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return nil
}

// Get implements auth.SessionStore. Expired sessions are reported as missing.
func (s *MemoryStore) Get(_ context.Context, id string) (auth.Session, bool, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || !session.ExpiresAt.After(s.now()) {
		return auth.Session{}, false, nil
	}
	return session, true, nil
}

// Delete implements auth.SessionStore.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Prune drops expired sessions and reports how many were removed.
func (s *MemoryStore) Prune(_ context.Context) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

var _ auth.SessionStore = (*MemoryStore)(nil)
