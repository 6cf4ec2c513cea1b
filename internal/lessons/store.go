package lessons

import (
	"context"
	"fmt"
	"sync"
)

// Store persists finalized lessons.
type Store interface {
	// Get returns the lesson for token, or ErrInvalidToken.
	Get(ctx context.Context, token string) (*Lesson, error)

	// Put creates or replaces the lesson, including its summaries.
	Put(ctx context.Context, lesson *Lesson) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	lessons map[string]*Lesson
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lessons: make(map[string]*Lesson)}
}

func (m *MemoryStore) Get(_ context.Context, token string) (*Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.lessons[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, token)
	}
	return l.Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, lesson *Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lessons[lesson.Token] = lesson.Clone()
	return nil
}
