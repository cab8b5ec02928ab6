package service

import (
	"context"
	"time"

	"classplanner/internal/models"
)

// SessionStore persists scheduled sessions. Implemented by
// repository.SessionRepository and repository.MemorySessionStore
type SessionStore interface {
	List(ctx context.Context) ([]models.Session, error)
	GetByID(ctx context.Context, id string) (models.Session, error)
	Create(ctx context.Context, s models.Session) (models.Session, error)
	Update(ctx context.Context, id string, patch models.SessionPatch) (models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
}

// TimetableSource reads the weekly timetable
type TimetableSource interface {
	Sections(ctx context.Context) ([]models.Section, error)
	EntriesForDay(ctx context.Context, day string) ([]models.TimetableEntry, error)
}

// Clock tells the time
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
