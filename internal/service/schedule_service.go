package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"classplanner/internal/calendar"
	"classplanner/internal/grouping"
	"classplanner/internal/history"
	"classplanner/internal/logger"
	"classplanner/internal/models"
	"classplanner/internal/observability"
)

var (
	ErrGroupNotFound = errors.New("lesson group not found")
	ErrStageNotFound = errors.New("stage not found")
)

// ScheduleService orchestrates session mutations and recomputes the derived
// lesson groups from a fresh session list after each one
type ScheduleService struct {
	store       SessionStore
	history     history.Buffer
	rescheduler *Rescheduler
	clock       Clock
	log         *logger.Logger

	// mu serializes drops and restores so that numbering and the
	// at-most-once restore see a consistent list within this process
	mu sync.Mutex
}

// NewScheduleService creates a schedule service
func NewScheduleService(store SessionStore, hist history.Buffer, rescheduler *Rescheduler, clock Clock, log *logger.Logger) *ScheduleService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ScheduleService{
		store:       store,
		history:     hist,
		rescheduler: rescheduler,
		clock:       clock,
		log:         log.With("service", "schedule"),
	}
}

// Snapshot lists every session and derives groups and statistics from it
func (s *ScheduleService) Snapshot(ctx context.Context) (models.Snapshot, error) {
	ctx, span := observability.StartSpan(ctx, "ScheduleService.Snapshot")
	sessions, err := s.store.List(ctx)
	observability.EndSpan(span, err)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	now := s.clock.Now()
	groups := grouping.Aggregate(sessions, now)
	return models.Snapshot{
		Sessions:    sessions,
		Groups:      groups,
		Statistics:  grouping.Summarize(groups),
		GeneratedAt: now,
	}, nil
}

// WeekView is the calendar of one Monday..Sunday week
type WeekView struct {
	Start    string                   `json:"start"`
	End      string                   `json:"end"`
	Dates    []string                 `json:"dates"`
	Sessions []models.NumberedSession `json:"sessions"`
}

// Week returns the sessions of day's week with their display numbers.
// Numbers are computed against the whole schedule, not just the week
func (s *ScheduleService) Week(ctx context.Context, day time.Time) (WeekView, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return WeekView{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	dates := calendar.WeekDates(day)
	inWeek := make(map[string]bool, len(dates))
	for _, d := range dates {
		inWeek[d] = true
	}

	numbers := grouping.NumberSessions(sessions)
	view := WeekView{
		Start:    dates[0],
		End:      dates[len(dates)-1],
		Dates:    dates,
		Sessions: []models.NumberedSession{},
	}
	for _, sess := range sessions {
		if !inWeek[sess.Date] {
			continue
		}
		view.Sessions = append(view.Sessions, models.NumberedSession{
			Session:       sess,
			SessionNumber: numbers[sess.ID],
		})
	}
	return view, nil
}

// GetSession returns one session
func (s *ScheduleService) GetSession(ctx context.Context, id string) (models.Session, error) {
	return s.store.GetByID(ctx, id)
}

// CreateSession stores a session authored directly rather than dropped
func (s *ScheduleService) CreateSession(ctx context.Context, sess models.Session) (models.Session, error) {
	sess.ID = ""
	if len(sess.AssignedSections) > 0 && sess.CompletionStatus == nil {
		sess.CompletionStatus = make(map[string]models.Status, len(sess.AssignedSections))
		for _, sec := range sess.AssignedSections {
			sess.CompletionStatus[sec] = models.StatusPlanned
		}
	}

	created, err := s.store.Create(ctx, sess)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	s.log.Info("session created", "session", created.ID, "date", created.Date)
	return created, nil
}

// UpdateSession applies a partial update
func (s *ScheduleService) UpdateSession(ctx context.Context, id string, patch models.SessionPatch) (models.Session, error) {
	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to update session %s: %w", id, err)
	}
	return updated, nil
}

// DeleteSession snapshots the session into the deletion history, then deletes
// it. A failed delete takes the snapshot back out of the history
func (s *ScheduleService) DeleteSession(ctx context.Context, id string) error {
	sess, err := s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if err := s.history.Push(ctx, sess); err != nil {
		return fmt.Errorf("failed to record deleted session: %w", err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if rerr := s.history.Remove(ctx, id); rerr != nil {
			s.log.Warn("failed to drop history entry of undeleted session", "session", id, "error", rerr)
		}
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	s.log.Info("session deleted", "session", id)
	return nil
}

// ClearCalendar deletes every session. The deletion history is not touched
func (s *ScheduleService) ClearCalendar(ctx context.Context) (int, error) {
	n, err := s.store.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear calendar: %w", err)
	}
	s.log.Info("calendar cleared", "deleted", n)
	return n, nil
}

// History lists deleted sessions, newest first
func (s *ScheduleService) History(ctx context.Context) ([]history.Entry, error) {
	return s.history.List(ctx)
}

// RestoreSession recreates a deleted session from its snapshot. The snapshot
// is claimed by removing it from the history before the session is created,
// so each snapshot is restored at most once even when replicas share the
// history. A failed create puts the snapshot back. The restored session gets
// a new id but keeps its lesson group
func (s *ScheduleService) RestoreSession(ctx context.Context, id string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.history.Get(ctx, id)
	if err != nil {
		return models.Session{}, err
	}
	if err := s.history.Remove(ctx, id); err != nil {
		return models.Session{}, err
	}

	deleted := snap.Copy()
	if snap.LessonGroupID == "" {
		snap.LessonGroupID = grouping.GroupKey(snap)
	}
	snap.ID = ""
	snap.CreatedAt = time.Time{}
	snap.UpdatedAt = time.Time{}

	restored, err := s.store.Create(ctx, snap)
	if err != nil {
		if perr := s.history.Push(ctx, deleted); perr != nil {
			s.log.Error("lost history entry after failed restore", "session", id, "error", perr)
		}
		return models.Session{}, fmt.Errorf("failed to restore session %s: %w", id, err)
	}

	s.log.Info("session restored", "from", id, "session", restored.ID, "group", restored.LessonGroupID)
	return restored, nil
}

// ToggleStage sets the completion of one stage of one session. stageID
// matches the stage id or its template stage id
func (s *ScheduleService) ToggleStage(ctx context.Context, sessionID, stageID string, completed bool) (models.Session, error) {
	sess, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return models.Session{}, err
	}

	found := false
	for i, st := range sess.Stages {
		if st.ID != stageID && st.TemplateStageID != stageID {
			continue
		}
		found = true
		sess.Stages[i].IsCompleted = completed
		sess.Stages[i].CompletionDate = nil
		if completed {
			now := s.clock.Now()
			sess.Stages[i].CompletionDate = &now
		}
		break
	}
	if !found {
		return models.Session{}, ErrStageNotFound
	}

	return s.UpdateSession(ctx, sessionID, models.SessionPatch{Stages: sess.Stages})
}

// SetCoreStage sets a core stage in every session of a lesson group and
// returns the recomputed group
func (s *ScheduleService) SetCoreStage(ctx context.Context, groupKey, stageKey string, completed bool) (models.LessonGroup, error) {
	ctx, span := observability.StartSpan(ctx, "ScheduleService.SetCoreStage",
		attribute.String("group.key", groupKey),
		attribute.String("stage.key", stageKey),
	)
	var err error
	defer func() { observability.EndSpan(span, err) }()

	sessions, err := s.store.List(ctx)
	if err != nil {
		return models.LessonGroup{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	members := grouping.SessionsInGroup(sessions, groupKey)
	if len(members) == 0 {
		err = ErrGroupNotFound
		return models.LessonGroup{}, err
	}

	updated, changed := grouping.SetCoreStage(members, stageKey, completed, s.clock.Now())
	if len(changed) == 0 && !hasStage(members, stageKey) {
		err = ErrStageNotFound
		return models.LessonGroup{}, err
	}

	byID := make(map[string]models.Session, len(updated))
	for _, u := range updated {
		byID[u.ID] = u
	}
	for _, id := range changed {
		if _, err = s.store.Update(ctx, id, models.SessionPatch{Stages: byID[id].Stages}); err != nil {
			err = fmt.Errorf("failed to update session %s: %w", id, err)
			return models.LessonGroup{}, err
		}
	}

	// reload so the group reflects what the store holds
	sessions, err = s.store.List(ctx)
	if err != nil {
		return models.LessonGroup{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	return grouping.BuildGroup(groupKey, grouping.SessionsInGroup(sessions, groupKey), s.clock.Now()), nil
}

func hasStage(sessions []models.Session, key string) bool {
	for _, sess := range sessions {
		for _, st := range sess.Stages {
			if st.ID == key || st.TemplateStageID == key {
				return true
			}
		}
	}
	return false
}

// DropOutcome is a drop result plus the schedule reloaded after it
type DropOutcome struct {
	DropResult
	Snapshot models.Snapshot `json:"snapshot"`
}

// Drop applies a drop and reloads the schedule. On error nothing is
// reloaded and the schedule is as it was
func (s *ScheduleService) Drop(ctx context.Context, cell models.DropCell, payload models.DropPayload) (DropOutcome, error) {
	s.mu.Lock()
	result, err := s.rescheduler.Apply(ctx, cell, payload)
	s.mu.Unlock()
	if err != nil {
		s.log.Error("drop failed", "date", cell.Date, "section", cell.SectionID, "error", err)
		return DropOutcome{}, err
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return DropOutcome{}, err
	}
	return DropOutcome{DropResult: result, Snapshot: snap}, nil
}
