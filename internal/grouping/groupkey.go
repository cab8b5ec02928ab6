// Package grouping derives logical lessons from scheduled sessions.
// Everything here is pure and recomputed from a full session list on
// every read; nothing is cached between mutations
package grouping

import (
	"sort"

	"classplanner/internal/calendar"
	"classplanner/internal/models"
)

// GroupKey returns the logical-lesson identity of a session:
// lessonGroupId, else templateId, else the session's own id
func GroupKey(s models.Session) string {
	if s.LessonGroupID != "" {
		return s.LessonGroupID
	}
	if s.TemplateID != "" {
		return s.TemplateID
	}
	return s.ID
}

// SessionsInGroup returns the sessions whose group key equals key, in input order
func SessionsInGroup(sessions []models.Session, key string) []models.Session {
	var out []models.Session
	for _, s := range sessions {
		if GroupKey(s) == key {
			out = append(out, s)
		}
	}
	return out
}

// SortByDate returns a date-ascending copy of sessions. The sort is stable
// and sessions with unparseable dates go last
func SortByDate(sessions []models.Session) []models.Session {
	type keyed struct {
		s     models.Session
		day   int64
		valid bool
	}
	ks := make([]keyed, len(sessions))
	for i, s := range sessions {
		k := keyed{s: s}
		if t, err := calendar.ParseDate(s.Date); err == nil {
			k.day = t.Unix()
			k.valid = true
		}
		ks[i] = k
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if ks[i].valid != ks[j].valid {
			return ks[i].valid
		}
		return ks[i].day < ks[j].day
	})
	out := make([]models.Session, len(ks))
	for i, k := range ks {
		out[i] = k.s
	}
	return out
}
