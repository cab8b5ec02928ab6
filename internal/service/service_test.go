package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"classplanner/internal/logger"
	"classplanner/internal/models"
	"classplanner/internal/repository"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

// failingStore wraps the memory store and fails writes on demand
type failingStore struct {
	*repository.MemorySessionStore
	createErr error
	updateErr error
	deleteErr error
}

func (f *failingStore) Create(ctx context.Context, s models.Session) (models.Session, error) {
	if f.createErr != nil {
		return models.Session{}, f.createErr
	}
	return f.MemorySessionStore.Create(ctx, s)
}

func (f *failingStore) Update(ctx context.Context, id string, patch models.SessionPatch) (models.Session, error) {
	if f.updateErr != nil {
		return models.Session{}, f.updateErr
	}
	return f.MemorySessionStore.Update(ctx, id, patch)
}

func (f *failingStore) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemorySessionStore.Delete(ctx, id)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

func intPtr(n int) *int { return &n }

func newTestRescheduler(store SessionStore) *Rescheduler {
	r := NewRescheduler(store, logger.NewNop())
	r.SetIDGenerator(sequentialIDs())
	return r
}

func mustCreate(t *testing.T, store SessionStore, s models.Session) models.Session {
	t.Helper()
	created, err := store.Create(context.Background(), s)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return created
}

func listJSON(t *testing.T, store SessionStore) string {
	t.Helper()
	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	raw, err := json.Marshal(list)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return string(raw)
}

// seedGroup stores a two-session lesson in section A on Monday and Tuesday
// of the week of 2025-01-06; the second session is numbered 2
func seedGroup(t *testing.T, store SessionStore) (first, second models.Session) {
	t.Helper()
	stages := func(done bool) []models.Stage {
		return []models.Stage{
			{ID: "x-core", Title: "Explain", IsCore: true, IsCompleted: done, TemplateStageID: "s1"},
			{ID: "x-note", Title: "Homework note", IsCompleted: true},
		}
	}
	first = mustCreate(t, store, models.Session{
		LessonGroupID:    "G",
		TemplateID:       "T",
		Date:             "2025-01-06",
		AssignedSections: []string{"A"},
		CompletionStatus: map[string]models.Status{"A": models.StatusCompleted},
		Stages:           stages(true),
		Progress:         100,
		CustomTitle:      "Fractions",
	})
	second = mustCreate(t, store, models.Session{
		LessonGroupID:       "G",
		TemplateID:          "T",
		Date:                "2025-01-07",
		AssignedSections:    []string{"A"},
		CompletionStatus:    map[string]models.Status{"A": models.StatusPlanned},
		Stages:              stages(false),
		ManualSessionNumber: intPtr(2),
		CustomTitle:         "Fractions",
	})
	return first, second
}
