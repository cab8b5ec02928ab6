// Package history keeps a bounded undo buffer of deleted sessions
package history

import (
	"context"
	"errors"
	"time"

	"classplanner/internal/models"
)

// DefaultCapacity is the number of deleted sessions kept before the oldest is dropped
const DefaultCapacity = 10

// ErrNotFound is returned when no snapshot exists for a session id
var ErrNotFound = errors.New("session not found in deletion history")

// Entry is a deleted session snapshot
type Entry struct {
	Session   models.Session `json:"session"`
	DeletedAt time.Time      `json:"deletedAt"`
}

// Buffer is a bounded stack of deleted sessions, newest first
type Buffer interface {
	Push(ctx context.Context, s models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]Entry, error)
}
