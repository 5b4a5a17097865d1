package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Its sessions end when the
// server restarts, which is what a browser-session login expects.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

// Save stores a copy of s
func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	cp := *s
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &cp
	return nil
}

// Get returns a copy of the session
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// Delete removes a session
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// DeleteByAccessToken removes every session holding token
func (m *MemoryStore) DeleteByAccessToken(ctx context.Context, token string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []int64
	for id, s := range m.sessions {
		if s.AccessToken == token {
			delete(m.sessions, id)
			users = append(users, s.User.ID)
		}
	}
	return users, nil
}

// PurgeExpired removes expired sessions
func (m *MemoryStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
