package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists sessions.
type Store interface {
	// Get returns the session, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Put creates or replaces the session.
	Put(ctx context.Context, s *Session) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Expired lists sessions closed before closedBefore, and open sessions
	// last updated before idleBefore.
	Expired(ctx context.Context, closedBefore, idleBefore time.Time) ([]string, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Expired(_ context.Context, closedBefore, idleBefore time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, s := range m.sessions {
		if isExpired(s, closedBefore, idleBefore) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func isExpired(s *Session, closedBefore, idleBefore time.Time) bool {
	if s.Closed {
		return s.EndTime != nil && s.EndTime.Before(closedBefore)
	}
	return s.UpdatedAt.Before(idleBefore)
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
