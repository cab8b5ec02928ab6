package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"classplanner/internal/models"
)

// MemorySessionStore is a process-local session store with the same
// contract as SessionRepository
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	now      func() time.Time
}

// NewMemorySessionStore creates an empty store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]models.Session), now: time.Now}
}

func (m *MemorySessionStore) List(_ context.Context) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Copy())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *MemorySessionStore) GetByID(_ context.Context, id string) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return s.Copy(), nil
}

func (m *MemorySessionStore) Create(_ context.Context, s models.Session) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s = normalize(s.Copy(), m.now())
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	m.sessions[s.ID] = s
	return s.Copy(), nil
}

func (m *MemorySessionStore) Update(_ context.Context, id string, patch models.SessionPatch) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	s = s.Copy()
	patch.Apply(&s)
	s.ID = id
	s.UpdatedAt = m.now()
	s = normalize(s, s.CreatedAt)
	m.sessions[id] = s
	return s.Copy(), nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemorySessionStore) DeleteAll(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.sessions)
	m.sessions = make(map[string]models.Session)
	return n, nil
}
