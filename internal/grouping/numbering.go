package grouping

import (
	"classplanner/internal/calendar"
	"classplanner/internal/models"
)

// SessionNumber returns the display number of s among all sessions, or 0
// when it has none. A manual number wins; otherwise it is the 1-based
// position in the date-sorted group, shown only for groups larger than one.
// Sessions with unparseable dates are left out of the positional count
func SessionNumber(s models.Session, all []models.Session) int {
	if s.ManualSessionNumber != nil {
		return *s.ManualSessionNumber
	}
	return positions(all)[s.ID]
}

// NumberSessions computes SessionNumber for every session in one pass
func NumberSessions(all []models.Session) map[string]int {
	pos := positions(all)
	out := make(map[string]int, len(all))
	for _, s := range all {
		if s.ManualSessionNumber != nil {
			out[s.ID] = *s.ManualSessionNumber
			continue
		}
		if n := pos[s.ID]; n > 0 {
			out[s.ID] = n
		}
	}
	return out
}

func positions(all []models.Session) map[string]int {
	byKey := make(map[string][]models.Session)
	for _, s := range all {
		if _, err := calendar.ParseDate(s.Date); err != nil {
			continue
		}
		key := GroupKey(s)
		byKey[key] = append(byKey[key], s)
	}

	pos := make(map[string]int)
	for _, members := range byKey {
		if len(members) < 2 {
			continue
		}
		for i, s := range SortByDate(members) {
			pos[s.ID] = i + 1
		}
	}
	return pos
}
