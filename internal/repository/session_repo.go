package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"classplanner/internal/database"
	"classplanner/internal/models"
)

// ErrSessionNotFound is returned when no session has the requested id
var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `id, template_id, lesson_group_id, lesson_date, start_time,
	assigned_sections, completion_status, stages, estimated_sessions,
	manual_session_number, progress, custom_title, custom_description, notes,
	subject, classroom, created_at, updated_at`

// SessionRepository handles database operations for scheduled sessions
type SessionRepository struct {
	db  database.DBTX
	now func() time.Time
}

// NewSessionRepository creates a session repository over a connection or transaction
func NewSessionRepository(db database.DBTX) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// List returns every session ordered by date and start time
func (r *SessionRepository) List(ctx context.Context) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM scheduled_sessions
		ORDER BY lesson_date, start_time, created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

// GetByID retrieves a session by id
func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.Session, error) {
	return getSession(ctx, r.db, id)
}

// Create inserts a session. An empty id is replaced by a fresh UUID
func (r *SessionRepository) Create(ctx context.Context, s models.Session) (models.Session, error) {
	s = normalize(s, r.now())
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	cols, err := encodeSession(s)
	if err != nil {
		return models.Session{}, err
	}

	query := `INSERT INTO scheduled_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, nullString(s.TemplateID), nullString(s.LessonGroupID), s.Date, s.StartTime,
		cols.sections, cols.status, cols.stages, s.EstimatedSessions,
		nullInt(s.ManualSessionNumber), s.Progress, s.CustomTitle, s.CustomDescription, s.Notes,
		s.Subject, s.Classroom, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// Update applies patch to the session with the given id and returns the result
func (r *SessionRepository) Update(ctx context.Context, id string, patch models.SessionPatch) (models.Session, error) {
	var updated models.Session
	err := r.inTx(ctx, func(q database.DBTX) error {
		current, err := getSession(ctx, q, id)
		if err != nil {
			return err
		}
		patch.Apply(&current)
		current.ID = id
		current.UpdatedAt = r.now()

		cols, err := encodeSession(current)
		if err != nil {
			return err
		}

		query := `UPDATE scheduled_sessions SET
			template_id = ?, lesson_group_id = ?, lesson_date = ?, start_time = ?,
			assigned_sections = ?, completion_status = ?, stages = ?, estimated_sessions = ?,
			manual_session_number = ?, progress = ?, custom_title = ?, custom_description = ?,
			notes = ?, subject = ?, classroom = ?, updated_at = ?
			WHERE id = ?`
		_, err = q.ExecContext(ctx, query,
			nullString(current.TemplateID), nullString(current.LessonGroupID), current.Date, current.StartTime,
			cols.sections, cols.status, cols.stages, current.EstimatedSessions,
			nullInt(current.ManualSessionNumber), current.Progress, current.CustomTitle, current.CustomDescription,
			current.Notes, current.Subject, current.Classroom, current.UpdatedAt,
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		updated = current
		return nil
	})
	return updated, err
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM scheduled_sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteAll removes every session and returns how many were deleted
func (r *SessionRepository) DeleteAll(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM scheduled_sessions")
	if err != nil {
		return 0, fmt.Errorf("failed to clear sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check deleted rows: %w", err)
	}
	return int(n), nil
}

func (r *SessionRepository) inTx(ctx context.Context, fn func(q database.DBTX) error) error {
	if db, ok := r.db.(*database.DB); ok {
		return db.WithTx(ctx, func(tx *database.Tx) error { return fn(tx) })
	}
	return fn(r.db)
}

func getSession(ctx context.Context, q database.DBTX, id string) (models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM scheduled_sessions WHERE id = ?`
	s, err := scanSession(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (models.Session, error) {
	var (
		s                         models.Session
		templateID, lessonGroupID sql.NullString
		sections, status, stages  string
		manualNumber              sql.NullInt64
	)
	err := row.Scan(
		&s.ID, &templateID, &lessonGroupID, &s.Date, &s.StartTime,
		&sections, &status, &stages, &s.EstimatedSessions,
		&manualNumber, &s.Progress, &s.CustomTitle, &s.CustomDescription, &s.Notes,
		&s.Subject, &s.Classroom, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, err
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to scan session: %w", err)
	}

	s.TemplateID = templateID.String
	s.LessonGroupID = lessonGroupID.String
	if manualNumber.Valid {
		n := int(manualNumber.Int64)
		s.ManualSessionNumber = &n
	}
	if err := json.Unmarshal([]byte(sections), &s.AssignedSections); err != nil {
		return models.Session{}, fmt.Errorf("failed to decode assigned sections of %s: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(status), &s.CompletionStatus); err != nil {
		return models.Session{}, fmt.Errorf("failed to decode completion status of %s: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(stages), &s.Stages); err != nil {
		return models.Session{}, fmt.Errorf("failed to decode stages of %s: %w", s.ID, err)
	}
	return normalize(s, s.CreatedAt), nil
}

type encodedColumns struct {
	sections, status, stages string
}

func encodeSession(s models.Session) (encodedColumns, error) {
	sections, err := json.Marshal(s.AssignedSections)
	if err != nil {
		return encodedColumns{}, fmt.Errorf("failed to encode assigned sections: %w", err)
	}
	status, err := json.Marshal(s.CompletionStatus)
	if err != nil {
		return encodedColumns{}, fmt.Errorf("failed to encode completion status: %w", err)
	}
	stages, err := json.Marshal(s.Stages)
	if err != nil {
		return encodedColumns{}, fmt.Errorf("failed to encode stages: %w", err)
	}
	return encodedColumns{sections: string(sections), status: string(status), stages: string(stages)}, nil
}

// normalize fills defaults so that stored sessions never carry null collections
func normalize(s models.Session, now time.Time) models.Session {
	if s.StartTime == "" {
		s.StartTime = models.DefaultStartTime
	}
	if s.AssignedSections == nil {
		s.AssignedSections = []string{}
	}
	if s.CompletionStatus == nil {
		s.CompletionStatus = map[string]models.Status{}
	}
	if s.Stages == nil {
		s.Stages = []models.Stage{}
	}
	if s.EstimatedSessions < 1 {
		s.EstimatedSessions = 1
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
