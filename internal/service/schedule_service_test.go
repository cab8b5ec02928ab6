package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"classplanner/internal/calendar"
	"classplanner/internal/history"
	"classplanner/internal/logger"
	"classplanner/internal/models"
	"classplanner/internal/repository"
)

var testNow = time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)

func newTestScheduleService(store SessionStore) (*ScheduleService, *history.MemoryBuffer) {
	hist := history.NewMemoryBuffer(history.DefaultCapacity)
	svc := NewScheduleService(store, hist, newTestRescheduler(store), &fixedClock{now: testNow}, logger.NewNop())
	return svc, hist
}

func TestSnapshotRecomputesGroups(t *testing.T) {
	store := repository.NewMemorySessionStore()
	seedGroup(t, store)
	mustCreate(t, store, models.Session{Date: "2025-01-09", AssignedSections: []string{"B"}})
	svc, _ := newTestScheduleService(store)

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap.Sessions) != 3 || len(snap.Groups) != 2 {
		t.Fatalf("got %d sessions / %d groups, want 3 / 2", len(snap.Sessions), len(snap.Groups))
	}
	if snap.Statistics.Total != 2 || snap.Statistics.InProgress != 1 || snap.Statistics.NotStarted != 1 {
		t.Errorf("Statistics = %+v", snap.Statistics)
	}
	if !snap.GeneratedAt.Equal(testNow) {
		t.Errorf("GeneratedAt = %v, want %v", snap.GeneratedAt, testNow)
	}
}

func TestDeleteAndRestoreOnce(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySessionStore()
	first, _ := seedGroup(t, store)
	svc, hist := newTestScheduleService(store)

	if err := svc.DeleteSession(ctx, first.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := store.GetByID(ctx, first.ID); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("session still stored: %v", err)
	}
	entries, _ := hist.List(ctx)
	if len(entries) != 1 || entries[0].Session.ID != first.ID {
		t.Fatalf("history = %+v", entries)
	}

	restored, err := svc.RestoreSession(ctx, first.ID)
	if err != nil {
		t.Fatalf("RestoreSession() error = %v", err)
	}
	if restored.ID == "" || restored.ID == first.ID {
		t.Errorf("restored id = %q, want a new id", restored.ID)
	}
	if restored.LessonGroupID != "G" || restored.Date != first.Date || restored.CustomTitle != first.CustomTitle {
		t.Errorf("restored = %+v", restored)
	}

	if _, err := svc.RestoreSession(ctx, first.ID); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("second RestoreSession() error = %v, want history.ErrNotFound", err)
	}
	list, _ := store.List(ctx)
	if len(list) != 2 {
		t.Errorf("got %d sessions after restore, want 2", len(list))
	}
}

func TestDeleteMissingSession(t *testing.T) {
	svc, hist := newTestScheduleService(repository.NewMemorySessionStore())
	err := svc.DeleteSession(context.Background(), "missing")
	if !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("DeleteSession() error = %v, want ErrSessionNotFound", err)
	}
	entries, _ := hist.List(context.Background())
	if len(entries) != 0 {
		t.Errorf("history has %d entries, want 0", len(entries))
	}
}

func TestDeleteFailureLeavesHistoryUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemorySessionStore: repository.NewMemorySessionStore()}
	first, _ := seedGroup(t, store)
	svc, hist := newTestScheduleService(store)

	store.deleteErr = errors.New("backend unavailable")
	if err := svc.DeleteSession(ctx, first.ID); err == nil {
		t.Fatal("DeleteSession() error = nil, want the store error")
	}
	entries, _ := hist.List(ctx)
	if len(entries) != 0 {
		t.Fatalf("history has %d entries after a failed delete, want 0", len(entries))
	}
	if _, err := svc.RestoreSession(ctx, first.ID); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("RestoreSession() error = %v, want history.ErrNotFound", err)
	}
	list, _ := store.List(ctx)
	if len(list) != 2 {
		t.Errorf("got %d sessions, want 2", len(list))
	}
}

func TestRestoreKeepsDerivedGroup(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySessionStore()
	svc, _ := newTestScheduleService(store)
	mustCreate(t, store, models.Session{ID: "solo", Date: "2025-01-06", AssignedSections: []string{"A"}})

	cell := models.DropCell{Date: "2025-01-07", SectionID: "A"}
	outcome, err := svc.Drop(ctx, cell, models.LessonDrop{LessonID: "solo"})
	if err != nil || outcome.Action != DropCloned {
		t.Fatalf("Drop() = %s, %v; want cloned", outcome.Action, err)
	}
	if len(outcome.Snapshot.Groups) != 1 {
		t.Fatalf("got %d groups before delete, want 1", len(outcome.Snapshot.Groups))
	}

	if err := svc.DeleteSession(ctx, "solo"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	restored, err := svc.RestoreSession(ctx, "solo")
	if err != nil {
		t.Fatalf("RestoreSession() error = %v", err)
	}
	if restored.LessonGroupID != "solo" {
		t.Errorf("restored LessonGroupID = %q, want solo", restored.LessonGroupID)
	}

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap.Groups) != 1 || len(snap.Groups[0].Sessions) != 2 {
		t.Errorf("groups after restore = %+v, want one group of two", snap.Groups)
	}
}

func TestRestoreFailurePutsSnapshotBack(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemorySessionStore: repository.NewMemorySessionStore()}
	first, _ := seedGroup(t, store)
	svc, hist := newTestScheduleService(store)

	if err := svc.DeleteSession(ctx, first.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	store.createErr = errors.New("backend unavailable")
	if _, err := svc.RestoreSession(ctx, first.ID); err == nil {
		t.Fatal("RestoreSession() error = nil, want the store error")
	}
	if _, err := hist.Get(ctx, first.ID); err != nil {
		t.Fatalf("snapshot missing after failed restore: %v", err)
	}

	store.createErr = nil
	if _, err := svc.RestoreSession(ctx, first.ID); err != nil {
		t.Fatalf("retried RestoreSession() error = %v", err)
	}
	entries, _ := hist.List(ctx)
	if len(entries) != 0 {
		t.Errorf("history has %d entries after restore, want 0", len(entries))
	}
}

// claimedBuffer reports every entry as already removed, as when another
// replica restored it between Get and Remove
type claimedBuffer struct {
	*history.MemoryBuffer
}

func (claimedBuffer) Remove(context.Context, string) error { return history.ErrNotFound }

func TestRestoreClaimedByAnotherReplica(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySessionStore()
	first, _ := seedGroup(t, store)
	hist := claimedBuffer{MemoryBuffer: history.NewMemoryBuffer(history.DefaultCapacity)}
	svc := NewScheduleService(store, hist, newTestRescheduler(store), &fixedClock{now: testNow}, logger.NewNop())

	if err := hist.Push(ctx, first); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if err := store.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := svc.RestoreSession(ctx, first.ID); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("RestoreSession() error = %v, want history.ErrNotFound", err)
	}
	list, _ := store.List(ctx)
	if len(list) != 1 {
		t.Errorf("got %d sessions, want 1", len(list))
	}
}

func TestHistoryKeepsLastTenDeletes(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySessionStore()
	svc, _ := newTestScheduleService(store)

	for i := 1; i <= 12; i++ {
		s := mustCreate(t, store, models.Session{ID: fmt.Sprintf("s%02d", i), Date: "2025-01-06"})
		if err := svc.DeleteSession(ctx, s.ID); err != nil {
			t.Fatalf("DeleteSession() error = %v", err)
		}
	}

	entries, err := svc.History(ctx)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("len(History()) = %d, want 10", len(entries))
	}
	for _, e := range entries {
		if e.Session.ID == "s01" || e.Session.ID == "s02" {
			t.Errorf("oldest entry %s was not evicted", e.Session.ID)
		}
	}
}

func TestClearCalendarLeavesHistory(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySessionStore()
	first, _ := seedGroup(t, store)
	svc, hist := newTestScheduleService(store)

	if err := svc.DeleteSession(ctx, first.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	n, err := svc.ClearCalendar(ctx)
	if err != nil {
		t.Fatalf("ClearCalendar() error = %v", err)
	}
	if n != 1 {
		t.Errorf("ClearCalendar() = %d, want 1", n)
	}
	entries, _ := hist.List(ctx)
	if len(entries) != 1 {
		t.Errorf("history has %d entries, want 1", len(entries))
	}
}

func TestSetCoreStageCompletesGroup(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySessionStore()
	seedGroup(t, store)
	svc, _ := newTestScheduleService(store)

	group, err := svc.SetCoreStage(ctx, "G", "s1", true)
	if err != nil {
		t.Fatalf("SetCoreStage() error = %v", err)
	}
	if group.CompletionStatus != models.GroupCompleted || group.OverallProgress != 100 {
		t.Errorf("group = %s/%d, want completed/100", group.CompletionStatus, group.OverallProgress)
	}
	for _, s := range group.Sessions {
		if !s.Stages[0].IsCompleted || s.Stages[0].CompletionDate == nil {
			t.Errorf("session %s stage not completed: %+v", s.ID, s.Stages[0])
		}
	}

	group, err = svc.SetCoreStage(ctx, "G", "s1", false)
	if err != nil {
		t.Fatalf("SetCoreStage(false) error = %v", err)
	}
	if group.CompletionStatus != models.GroupNotStarted {
		t.Errorf("CompletionStatus = %s, want not-started", group.CompletionStatus)
	}
}

func TestSetCoreStageErrors(t *testing.T) {
	store := repository.NewMemorySessionStore()
	seedGroup(t, store)
	svc, _ := newTestScheduleService(store)

	if _, err := svc.SetCoreStage(context.Background(), "nope", "s1", true); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("unknown group error = %v, want ErrGroupNotFound", err)
	}
	if _, err := svc.SetCoreStage(context.Background(), "G", "nope", true); !errors.Is(err, ErrStageNotFound) {
		t.Errorf("unknown stage error = %v, want ErrStageNotFound", err)
	}
}

func TestToggleStage(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySessionStore()
	_, second := seedGroup(t, store)
	svc, _ := newTestScheduleService(store)

	updated, err := svc.ToggleStage(ctx, second.ID, "s1", true)
	if err != nil {
		t.Fatalf("ToggleStage() error = %v", err)
	}
	if !updated.Stages[0].IsCompleted || !updated.Stages[0].CompletionDate.Equal(testNow) {
		t.Errorf("stage = %+v", updated.Stages[0])
	}

	snap, _ := svc.Snapshot(ctx)
	if snap.Groups[0].CompletionStatus != models.GroupCompleted {
		t.Errorf("group status = %s, want completed", snap.Groups[0].CompletionStatus)
	}

	if _, err := svc.ToggleStage(ctx, second.ID, "missing", true); !errors.Is(err, ErrStageNotFound) {
		t.Errorf("ToggleStage(missing) error = %v, want ErrStageNotFound", err)
	}
}

func TestDropReloadsSnapshot(t *testing.T) {
	store := repository.NewMemorySessionStore()
	first, _ := seedGroup(t, store)
	svc, _ := newTestScheduleService(store)

	out, err := svc.Drop(context.Background(), models.DropCell{Date: "2025-01-08", SectionID: "A"}, models.LessonDrop{LessonID: first.ID})
	if err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if out.Action != DropCloned {
		t.Errorf("Action = %s, want cloned", out.Action)
	}
	if len(out.Snapshot.Sessions) != 3 || len(out.Snapshot.Groups) != 1 {
		t.Errorf("snapshot has %d sessions / %d groups", len(out.Snapshot.Sessions), len(out.Snapshot.Groups))
	}
	if got := len(out.Snapshot.Groups[0].Sessions); got != 3 {
		t.Errorf("group G has %d sessions, want 3", got)
	}
}

func TestWeekView(t *testing.T) {
	store := repository.NewMemorySessionStore()
	seedGroup(t, store)
	mustCreate(t, store, models.Session{LessonGroupID: "G", Date: "2025-01-13", AssignedSections: []string{"A"}})
	svc, _ := newTestScheduleService(store)

	day, _ := calendar.ParseDate("2025-01-08")
	view, err := svc.Week(context.Background(), day)
	if err != nil {
		t.Fatalf("Week() error = %v", err)
	}
	if view.Start != "2025-01-06" || view.End != "2025-01-12" {
		t.Errorf("week = %s..%s", view.Start, view.End)
	}
	if len(view.Sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(view.Sessions))
	}
	if view.Sessions[0].SessionNumber != 1 || view.Sessions[1].SessionNumber != 2 {
		t.Errorf("numbers = %d, %d, want 1, 2", view.Sessions[0].SessionNumber, view.Sessions[1].SessionNumber)
	}
}

func TestCreateSessionDefaultsStatus(t *testing.T) {
	svc, _ := newTestScheduleService(repository.NewMemorySessionStore())
	created, err := svc.CreateSession(context.Background(), models.Session{ID: "ignored", Date: "2025-01-06", AssignedSections: []string{"A"}})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if created.ID == "ignored" || created.ID == "" {
		t.Errorf("ID = %q, want generated", created.ID)
	}
	if created.CompletionStatus["A"] != models.StatusPlanned {
		t.Errorf("CompletionStatus = %v", created.CompletionStatus)
	}
}
