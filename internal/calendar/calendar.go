// Package calendar holds the date helpers shared by the scheduler: ISO
// dates, Monday-start weeks and HH:MM clock times
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of session dates
const DateLayout = "2006-01-02"

// ParseDate parses an ISO date. A full RFC 3339 timestamp is accepted and
// truncated to its date part
func ParseDate(s string) (time.Time, error) {
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SameISOWeek reports whether a and b fall in the same ISO week
func SameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

// SameISOWeekDates is SameISOWeek for two ISO date strings. Unparseable
// dates are never in the same week
func SameISOWeekDates(a, b string) bool {
	at, err := ParseDate(a)
	if err != nil {
		return false
	}
	bt, err := ParseDate(b)
	if err != nil {
		return false
	}
	return SameISOWeek(at, bt)
}

// WeekStart returns the Monday of t's week at midnight
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// WeekDates returns the seven ISO dates Monday..Sunday of t's week
func WeekDates(t time.Time) []string {
	start := WeekStart(t)
	dates := make([]string, 7)
	for i := range dates {
		dates[i] = FormatDate(start.AddDate(0, 0, i))
	}
	return dates
}

// DayName returns the lowercase English weekday name used by the timetable
func DayName(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// ParseClock parses HH:MM into minutes after midnight
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MinutesOfDay returns the minutes after midnight of t in its location
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
