package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"classplanner/internal/database"
	"classplanner/internal/models"
)

// TimetableRepository reads the weekly timetable
type TimetableRepository struct {
	db database.DBTX
}

// NewTimetableRepository creates a timetable repository
func NewTimetableRepository(db database.DBTX) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Sections returns all sections in display order
func (r *TimetableRepository) Sections(ctx context.Context) ([]models.Section, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, position FROM sections ORDER BY position, name")
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()

	sections := []models.Section{}
	for rows.Next() {
		var s models.Section
		if err := rows.Scan(&s.ID, &s.Name, &s.Position); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// Entries returns every timetable entry
func (r *TimetableRepository) Entries(ctx context.Context) ([]models.TimetableEntry, error) {
	return r.queryEntries(ctx, "", nil)
}

// EntriesForDay returns the entries of one weekday ordered by start time
func (r *TimetableRepository) EntriesForDay(ctx context.Context, day string) ([]models.TimetableEntry, error) {
	return r.queryEntries(ctx, "WHERE day = ?", []interface{}{strings.ToLower(day)})
}

func (r *TimetableRepository) queryEntries(ctx context.Context, where string, args []interface{}) ([]models.TimetableEntry, error) {
	query := `SELECT id, day, start_time, duration_hours, section_id, subject, teacher, classroom
		FROM timetable_entries ` + where + ` ORDER BY day, start_time`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list timetable entries: %w", err)
	}
	defer rows.Close()

	entries := []models.TimetableEntry{}
	for rows.Next() {
		var e models.TimetableEntry
		if err := rows.Scan(&e.ID, &e.Day, &e.StartTime, &e.DurationHours, &e.SectionID, &e.Subject, &e.Teacher, &e.Classroom); err != nil {
			return nil, fmt.Errorf("failed to scan timetable entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CreateSection inserts a section; used by backup restore
func (r *TimetableRepository) CreateSection(ctx context.Context, s models.Section) error {
	_, err := r.db.ExecContext(ctx, "INSERT INTO sections (id, name, position) VALUES (?, ?, ?)", s.ID, s.Name, s.Position)
	if err != nil {
		return fmt.Errorf("failed to create section %s: %w", s.ID, err)
	}
	return nil
}

// CreateEntry inserts a timetable entry; used by backup restore
func (r *TimetableRepository) CreateEntry(ctx context.Context, e models.TimetableEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.DurationHours < 1 {
		e.DurationHours = 1
	}
	query := `INSERT INTO timetable_entries (id, day, start_time, duration_hours, section_id, subject, teacher, classroom)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, e.ID, strings.ToLower(e.Day), e.StartTime, e.DurationHours, e.SectionID, e.Subject, e.Teacher, e.Classroom)
	if err != nil {
		return fmt.Errorf("failed to create timetable entry: %w", err)
	}
	return nil
}

// DeleteAll clears the timetable
func (r *TimetableRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM timetable_entries"); err != nil {
		return fmt.Errorf("failed to clear timetable entries: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sections"); err != nil {
		return fmt.Errorf("failed to clear sections: %w", err)
	}
	return nil
}

// StaticTimetable serves a fixed timetable from memory
type StaticTimetable struct {
	SectionList []models.Section
	EntryList   []models.TimetableEntry
}

func (t *StaticTimetable) Sections(_ context.Context) ([]models.Section, error) {
	return append([]models.Section(nil), t.SectionList...), nil
}

func (t *StaticTimetable) EntriesForDay(_ context.Context, day string) ([]models.TimetableEntry, error) {
	day = strings.ToLower(day)
	var out []models.TimetableEntry
	for _, e := range t.EntryList {
		if strings.ToLower(e.Day) == day {
			out = append(out, e)
		}
	}
	return out, nil
}
