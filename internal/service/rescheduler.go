package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"classplanner/internal/calendar"
	"classplanner/internal/grouping"
	"classplanner/internal/logger"
	"classplanner/internal/models"
	"classplanner/internal/observability"
)

// DropAction is what a drop did to the schedule
type DropAction string

const (
	DropCreated DropAction = "created"
	DropCloned  DropAction = "cloned"
	DropMoved   DropAction = "moved"
	DropIgnored DropAction = "ignored"
)

// DropResult describes the outcome of a drop. Session is the created or
// updated session and is nil when the drop was ignored
type DropResult struct {
	Action  DropAction      `json:"action"`
	Session *models.Session `json:"session,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

func ignored(reason string) DropResult {
	return DropResult{Action: DropIgnored, Reason: reason}
}

// Rescheduler decides what a drop onto a calendar cell means and performs
// the matching create or update
type Rescheduler struct {
	store            SessionStore
	log              *logger.Logger
	newID            func() string
	defaultStartTime string
}

// NewRescheduler creates a rescheduler writing to store
func NewRescheduler(store SessionStore, log *logger.Logger) *Rescheduler {
	return &Rescheduler{
		store:            store,
		log:              log.With("component", "rescheduler"),
		newID:            uuid.NewString,
		defaultStartTime: models.DefaultStartTime,
	}
}

// SetDefaultStartTime sets the start time of sessions created from templates
func (r *Rescheduler) SetDefaultStartTime(hhmm string) {
	if hhmm != "" {
		r.defaultStartTime = hhmm
	}
}

// SetIDGenerator replaces the generator used for lesson group and stage ids
func (r *Rescheduler) SetIDGenerator(fn func() string) {
	if fn != nil {
		r.newID = fn
	}
}

// Apply handles payload dropped on cell. Unsupported payloads, stale
// session ids and drops onto the session's own slot are ignored without error
func (r *Rescheduler) Apply(ctx context.Context, cell models.DropCell, payload models.DropPayload) (result DropResult, err error) {
	ctx, span := observability.StartSpan(ctx, "Rescheduler.Apply",
		attribute.String("drop.date", cell.Date),
		attribute.String("drop.section", cell.SectionID),
	)
	defer func() {
		span.SetAttributes(attribute.String("drop.action", string(result.Action)))
		observability.EndSpan(span, err)
	}()

	switch p := payload.(type) {
	case models.TemplateDrop:
		return r.instantiate(ctx, cell, p.Template)
	case models.LessonDrop:
		return r.reschedule(ctx, cell, p.LessonID)
	default:
		return ignored(models.ErrUnsupportedPayload.Error()), nil
	}
}

func (r *Rescheduler) instantiate(ctx context.Context, cell models.DropCell, tmpl models.LessonTemplate) (DropResult, error) {
	stages := make([]models.Stage, 0, len(tmpl.Stages))
	for _, ts := range tmpl.Stages {
		stages = append(stages, models.Stage{
			ID:              r.newID(),
			Title:           ts.Title,
			IsCore:          true,
			IsCompleted:     false,
			TemplateStageID: ts.ID,
		})
	}

	session := models.Session{
		TemplateID:        tmpl.ID,
		LessonGroupID:     r.newID(),
		Date:              cell.Date,
		StartTime:         r.defaultStartTime,
		AssignedSections:  []string{cell.SectionID},
		CompletionStatus:  map[string]models.Status{cell.SectionID: models.StatusPlanned},
		Stages:            stages,
		EstimatedSessions: tmpl.EstimatedSessions,
		Progress:          0,
		CustomTitle:       tmpl.Title,
		CustomDescription: tmpl.Description,
		Subject:           tmpl.Subject,
	}

	created, err := r.store.Create(ctx, session)
	if err != nil {
		return DropResult{}, fmt.Errorf("failed to create session from template %s: %w", tmpl.ID, err)
	}

	r.log.Info("lesson instantiated from template", "template", tmpl.ID, "session", created.ID, "date", cell.Date, "section", cell.SectionID)
	return DropResult{Action: DropCreated, Session: &created}, nil
}

func (r *Rescheduler) reschedule(ctx context.Context, cell models.DropCell, lessonID string) (DropResult, error) {
	sessions, err := r.store.List(ctx)
	if err != nil {
		return DropResult{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	var original *models.Session
	for i := range sessions {
		if sessions[i].ID == lessonID {
			original = &sessions[i]
			break
		}
	}
	if original == nil {
		r.log.Debug("drop of unknown session ignored", "session", lessonID)
		return ignored("session not found"), nil
	}

	if original.InSlot(cell.Date, cell.SectionID) {
		return ignored("session already in this slot"), nil
	}

	if calendar.SameISOWeekDates(original.Date, cell.Date) {
		return r.clone(ctx, cell, *original, sessions)
	}
	return r.move(ctx, cell, *original)
}

func (r *Rescheduler) clone(ctx context.Context, cell models.DropCell, original models.Session, all []models.Session) (DropResult, error) {
	clone := original.Copy()
	clone.ID = ""
	clone.CreatedAt = time.Time{}
	clone.UpdatedAt = time.Time{}
	clone.LessonGroupID = grouping.GroupKey(original)
	clone.Date = cell.Date
	clone.AssignedSections = []string{cell.SectionID}
	clone.CompletionStatus = map[string]models.Status{cell.SectionID: models.StatusPlanned}
	clone.Progress = 0

	for i, st := range clone.Stages {
		if st.TemplateStageID == "" {
			// keep the clone matchable against the original's stage
			clone.Stages[i].TemplateStageID = st.ID
		}
		clone.Stages[i].ID = r.newID()
		if st.IsCore {
			clone.Stages[i].IsCompleted = false
			clone.Stages[i].CompletionDate = nil
		}
	}

	if cell.SectionID == original.PrimarySection() {
		n := nextSessionNumber(all, clone.LessonGroupID, cell.Date)
		clone.ManualSessionNumber = &n
	}

	created, err := r.store.Create(ctx, clone)
	if err != nil {
		return DropResult{}, fmt.Errorf("failed to clone session %s: %w", original.ID, err)
	}

	r.log.Info("session cloned", "from", original.ID, "session", created.ID, "date", cell.Date, "section", cell.SectionID)
	return DropResult{Action: DropCloned, Session: &created}, nil
}

func (r *Rescheduler) move(ctx context.Context, cell models.DropCell, original models.Session) (DropResult, error) {
	status := original.CompletionStatus[cell.SectionID]
	if !status.Valid() {
		status = models.StatusPlanned
	}

	date := cell.Date
	patch := models.SessionPatch{
		Date:             &date,
		AssignedSections: []string{cell.SectionID},
		CompletionStatus: map[string]models.Status{cell.SectionID: status},
	}

	updated, err := r.store.Update(ctx, original.ID, patch)
	if err != nil {
		return DropResult{}, fmt.Errorf("failed to move session %s: %w", original.ID, err)
	}

	r.log.Info("session moved", "session", original.ID, "from", original.Date, "date", cell.Date, "section", cell.SectionID)
	return DropResult{Action: DropMoved, Session: &updated}, nil
}

// nextSessionNumber returns one more than the highest manual number among
// the group's sessions in date's ISO week, or 2 when none is numbered
func nextSessionNumber(all []models.Session, groupKey, date string) int {
	highest := 0
	for _, s := range all {
		if s.ManualSessionNumber == nil || grouping.GroupKey(s) != groupKey {
			continue
		}
		if !calendar.SameISOWeekDates(s.Date, date) {
			continue
		}
		if *s.ManualSessionNumber > highest {
			highest = *s.ManualSessionNumber
		}
	}
	if highest == 0 {
		return 2
	}
	return highest + 1
}
