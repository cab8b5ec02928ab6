package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"classplanner/internal/calendar"
	"classplanner/internal/logger"
	"classplanner/internal/models"
)

// DefaultCurrentLessonTTL is how long a computed recommendation is reused
const DefaultCurrentLessonTTL = 30 * time.Second

// CurrentLessonService recommends which section to show by default: the
// one being taught now, else the next one today, else the first section.
// Results are cached for the TTL
type CurrentLessonService struct {
	source TimetableSource
	clock  Clock
	ttl    time.Duration
	loc    *time.Location
	log    *logger.Logger

	mu       sync.Mutex
	cached   *models.CurrentLesson
	cachedAt time.Time
}

// NewCurrentLessonService creates the service. A nil location means time.Local
func NewCurrentLessonService(source TimetableSource, clock Clock, ttl time.Duration, loc *time.Location, log *logger.Logger) *CurrentLessonService {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &CurrentLessonService{
		source: source,
		clock:  clock,
		ttl:    ttl,
		loc:    loc,
		log:    log.With("service", "current-lesson"),
	}
}

// Current returns the recommendation. Timetable errors yield an uncached
// fallback with no recommended section
func (s *CurrentLessonService) Current(ctx context.Context) models.CurrentLesson {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().In(s.loc)
	if s.cached != nil && now.Sub(s.cachedAt) < s.ttl {
		return *s.cached
	}

	info, err := s.compute(ctx, now)
	if err != nil {
		s.log.Warn("current lesson lookup failed", "error", err)
		return models.CurrentLesson{
			CurrentTime:    now.Format("15:04"),
			CurrentDay:     calendar.DayName(now),
			DisplayMessage: "Refreshing...",
			Fallback:       true,
		}
	}

	s.cached = &info
	s.cachedAt = now
	return info
}

// Reset drops the cached recommendation
func (s *CurrentLessonService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.cachedAt = time.Time{}
}

// Subscribe calls fn with the recommendation every interval until ctx is done
func (s *CurrentLessonService) Subscribe(ctx context.Context, interval time.Duration, fn func(models.CurrentLesson)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(s.Current(ctx))
			}
		}
	}()
}

func (s *CurrentLessonService) compute(ctx context.Context, now time.Time) (models.CurrentLesson, error) {
	day := calendar.DayName(now)
	entries, err := s.source.EntriesForDay(ctx, day)
	if err != nil {
		return models.CurrentLesson{}, fmt.Errorf("failed to load timetable for %s: %w", day, err)
	}
	sections, err := s.source.Sections(ctx)
	if err != nil {
		return models.CurrentLesson{}, fmt.Errorf("failed to load sections: %w", err)
	}
	return recommend(now, entries, sections), nil
}

// recommend resolves the current and next lesson of now's day and picks
// the section to show
func recommend(now time.Time, entries []models.TimetableEntry, sections []models.Section) models.CurrentLesson {
	info := models.CurrentLesson{
		CurrentTime: now.Format("15:04"),
		CurrentDay:  calendar.DayName(now),
	}

	names := make(map[string]string, len(sections))
	for _, sec := range sections {
		names[sec.ID] = sec.Name
	}

	type timed struct {
		entry models.TimetableEntry
		start int
	}
	var today []timed
	for _, e := range entries {
		start, err := calendar.ParseClock(e.StartTime)
		if err != nil {
			continue
		}
		today = append(today, timed{entry: e, start: start})
	}
	sort.SliceStable(today, func(i, j int) bool { return today[i].start < today[j].start })

	minute := calendar.MinutesOfDay(now)
	for _, t := range today {
		end := t.start + t.entry.DurationHours*60
		if info.Current == nil && t.start <= minute && minute < end {
			info.Current = slot(t.entry, names)
		}
		if info.Next == nil && t.start > minute {
			info.Next = slot(t.entry, names)
		}
	}

	if len(sections) > 0 {
		ordered := append([]models.Section(nil), sections...)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })
		info.DefaultSection = &ordered[0]
	}

	switch {
	case info.Current != nil:
		info.IsTeachingTime = true
		info.RecommendedSectionID = info.Current.SectionID
		info.DisplayMessage = fmt.Sprintf("Current lesson - %s - %s", info.Current.SectionName, info.Current.StartTime)
	case info.Next != nil:
		info.RecommendedSectionID = info.Next.SectionID
		info.DisplayMessage = fmt.Sprintf("Next lesson - %s - %s", info.Next.SectionName, info.Next.StartTime)
	case info.DefaultSection != nil:
		info.RecommendedSectionID = info.DefaultSection.ID
		info.DisplayMessage = fmt.Sprintf("Default section - %s", info.DefaultSection.Name)
	default:
		info.DisplayMessage = "No timetable configured"
	}
	return info
}

func slot(e models.TimetableEntry, names map[string]string) *models.LessonSlot {
	name := names[e.SectionID]
	if name == "" {
		name = e.SectionID
	}
	return &models.LessonSlot{
		SectionID:     e.SectionID,
		SectionName:   name,
		StartTime:     e.StartTime,
		DurationHours: e.DurationHours,
		Subject:       e.Subject,
		Teacher:       e.Teacher,
		Classroom:     e.Classroom,
	}
}
