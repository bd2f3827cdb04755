package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/timmy/culturemap/internal/domain"
)

var dayLayouts = []string{"2006-01-02", "02.01.2006"}

var clockLayouts = []string{"15:04", "15:04:05", "15.04"}

// parseDay reads a calendar day as midnight in loc.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid day %q", s)
}

// parseClock returns hour and minute of a wall clock string; ok is false for "".
func parseClock(s string) (hour, minute int, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false, nil
	}
	for _, layout := range clockLayouts {
		if t, perr := time.Parse(layout, s); perr == nil {
			return t.Hour(), t.Minute(), true, nil
		}
	}
	return 0, 0, false, fmt.Errorf("invalid time %q", s)
}

// BuildDate converts a local wall clock entry into absolute instants. The
// zone's rules decide between standard and summer offset for that day, so a
// July evening in Europe/Berlin is read as +02:00 and a January one as +01:00.
func BuildDate(spec DateSpec, loc *time.Location) (domain.EventDate, error) {
	day, err := parseDay(spec.Day, loc)
	if err != nil {
		return domain.EventDate{}, err
	}
	d := domain.EventDate{Date: day, Begin: day, End: day}

	bh, bm, hasBegin, err := parseClock(spec.Begin)
	if err != nil {
		return domain.EventDate{}, err
	}
	if !hasBegin {
		// all day
		return d, nil
	}
	d.Begin = time.Date(day.Year(), day.Month(), day.Day(), bh, bm, 0, 0, loc)
	d.End = d.Begin

	eh, em, hasEnd, err := parseClock(spec.End)
	if err != nil {
		return domain.EventDate{}, err
	}
	if hasEnd {
		d.End = time.Date(day.Year(), day.Month(), day.Day(), eh, em, 0, 0, loc)
		if d.End.Before(d.Begin) {
			d.End = time.Date(day.Year(), day.Month(), day.Day()+1, eh, em, 0, 0, loc)
		}
	}
	return d, nil
}

// futureDates builds all occurrences on or after the start of today in loc.
// Invalid entries are returned as problems instead of failing the event.
func futureDates(specs map[string]DateSpec, loc *time.Location, now time.Time) (dates []domain.EventDate, problems []string) {
	today := now.In(loc)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)

	for _, key := range sortedKeys(specs) {
		d, err := BuildDate(specs[key], loc)
		if err != nil {
			problems = append(problems, fmt.Sprintf("date %s: %v", key, err))
			continue
		}
		if d.Date.Before(today) {
			continue
		}
		dates = append(dates, d)
	}
	return dates, problems
}
