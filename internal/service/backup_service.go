package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"classplanner/internal/database"
	"classplanner/internal/logger"
	"classplanner/internal/models"
	"classplanner/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version    string                  `json:"version"`
	ExportedAt time.Time               `json:"exported_at"`
	Sessions   []models.Session        `json:"sessions"`
	Sections   []models.Section        `json:"sections"`
	Timetable  []models.TimetableEntry `json:"timetable"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db  *database.DB
	log *logger.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log *logger.Logger) *BackupService {
	return &BackupService{db: db, log: log.With("service", "backup")}
}

// Export writes a complete backup of the database to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportTo(ctx, file); err != nil {
		return err
	}
	s.log.Info("database exported", "path", outputPath)
	return nil
}

// ExportTo writes a complete backup as indented JSON
func (s *BackupService) ExportTo(ctx context.Context, w io.Writer) error {
	backup, err := s.collect(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("backup written", "sessions", len(backup.Sessions), "sections", len(backup.Sections), "timetable", len(backup.Timetable))
	return nil
}

func (s *BackupService) collect(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{Version: BackupVersion, ExportedAt: time.Now().UTC()}

	sessions, err := repository.NewSessionRepository(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export sessions: %w", err)
	}
	backup.Sessions = sessions

	timetable := repository.NewTimetableRepository(s.db)
	if backup.Sections, err = timetable.Sections(ctx); err != nil {
		return nil, fmt.Errorf("failed to export sections: %w", err)
	}
	if backup.Timetable, err = timetable.Entries(ctx); err != nil {
		return nil, fmt.Errorf("failed to export timetable: %w", err)
	}
	return backup, nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string, clear bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file, clear)
}

// ImportFromReader restores a backup in a single transaction. With clear,
// existing sessions and timetable rows are removed first
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader, clear bool) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	s.log.Info("importing backup", "version", backup.Version, "exported_at", backup.ExportedAt)

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		sessions := repository.NewSessionRepository(tx)
		timetable := repository.NewTimetableRepository(tx)

		if clear {
			if _, err := sessions.DeleteAll(ctx); err != nil {
				return err
			}
			if err := timetable.DeleteAll(ctx); err != nil {
				return err
			}
		}

		// sections before entries for the foreign key
		for _, sec := range backup.Sections {
			if err := timetable.CreateSection(ctx, sec); err != nil {
				return err
			}
		}
		for _, e := range backup.Timetable {
			if err := timetable.CreateEntry(ctx, e); err != nil {
				return err
			}
		}
		for _, sess := range backup.Sessions {
			if _, err := sessions.Create(ctx, sess); err != nil {
				return fmt.Errorf("failed to import session %s: %w", sess.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to import backup: %w", err)
	}

	s.log.Info("database import completed", "sessions", len(backup.Sessions), "sections", len(backup.Sections), "timetable", len(backup.Timetable))
	return nil
}
