package history

import (
	"context"
	"sync"
	"time"

	"classplanner/internal/models"
)

// MemoryBuffer is a process-local Buffer
type MemoryBuffer struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry // oldest first
	now      func() time.Time
}

// NewMemoryBuffer creates a buffer holding at most capacity entries
func NewMemoryBuffer(capacity int) *MemoryBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryBuffer{capacity: capacity, now: time.Now}
}

func (b *MemoryBuffer) Push(_ context.Context, s models.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, Entry{Session: s.Copy(), DeletedAt: b.now()})
	if over := len(b.entries) - b.capacity; over > 0 {
		b.entries = append([]Entry(nil), b.entries[over:]...)
	}
	return nil
}

func (b *MemoryBuffer) Get(_ context.Context, id string) (models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i := b.find(id); i >= 0 {
		return b.entries[i].Session.Copy(), nil
	}
	return models.Session{}, ErrNotFound
}

func (b *MemoryBuffer) Remove(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.find(id)
	if i < 0 {
		return ErrNotFound
	}
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	return nil
}

func (b *MemoryBuffer) List(_ context.Context) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, 0, len(b.entries))
	for i := len(b.entries) - 1; i >= 0; i-- {
		out = append(out, b.entries[i])
	}
	return out, nil
}

// find returns the index of the newest entry for id, or -1
func (b *MemoryBuffer) find(id string) int {
	for i := len(b.entries) - 1; i >= 0; i-- {
		if b.entries[i].Session.ID == id {
			return i
		}
	}
	return -1
}
