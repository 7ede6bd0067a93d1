// Package period provides day/week/month reporting boundaries.
// Weeks are Monday-start ISO weeks; months follow the calendar and are
// leap-year aware. A Period is half-open: [Start, End).
package period

import (
	"fmt"
	"time"
)

// Unit identifies the granularity of a reporting period.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
)

// Period is a half-open time range with a stable label used in note paths
// and frontmatter ("2026-02-21", "2026-W08", "2026-02").
type Period struct {
	Unit  Unit
	Label string
	Start time.Time // inclusive
	End   time.Time // exclusive
}

// Day returns the period covering the calendar day containing t,
// in t's location.
func Day(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Period{
		Unit:  UnitDay,
		Label: start.Format("2006-01-02"),
		Start: start,
		End:   start.AddDate(0, 0, 1),
	}
}

// Week returns the ISO week isoYear-Www in the given location.
// The week starts on Monday and ends before the following Monday.
func Week(isoYear, isoWeek int, loc *time.Location) (Period, error) {
	if isoWeek < 1 || isoWeek > 53 {
		return Period{}, fmt.Errorf("invalid ISO week number: %d", isoWeek)
	}
	// January 4th is always inside ISO week 1.
	jan4 := time.Date(isoYear, time.January, 4, 0, 0, 0, 0, loc)
	daysSinceMonday := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -daysSinceMonday)
	start := monday.AddDate(0, 0, (isoWeek-1)*7)
	if y, w := start.ISOWeek(); y != isoYear || w != isoWeek {
		return Period{}, fmt.Errorf("year %d has no ISO week %d", isoYear, isoWeek)
	}
	return Period{
		Unit:  UnitWeek,
		Label: fmt.Sprintf("%04d-W%02d", isoYear, isoWeek),
		Start: start,
		End:   start.AddDate(0, 0, 7),
	}, nil
}

// WeekOf returns the ISO week containing t.
func WeekOf(t time.Time) Period {
	y, w := t.ISOWeek()
	p, err := Week(y, w, t.Location())
	if err != nil {
		// Unreachable: ISOWeek always yields a valid week.
		panic(err)
	}
	return p
}

// Month returns the calendar month period for year/month in the given
// location. February in leap years runs through the 29th.
func Month(year int, month time.Month, loc *time.Location) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Period{
		Unit:  UnitMonth,
		Label: start.Format("2006-01"),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// ParseDay parses a "YYYY-MM-DD" label into a day period in loc.
func ParseDay(s string, loc *time.Location) (Period, error) {
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return Period{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Day(t), nil
}

// ParseWeek parses a "YYYY-Www" label into a week period in loc.
func ParseWeek(s string, loc *time.Location) (Period, error) {
	var year, week int
	if _, err := fmt.Sscanf(s, "%4d-W%2d", &year, &week); err != nil {
		return Period{}, fmt.Errorf("invalid week %q (want YYYY-Www): %w", s, err)
	}
	return Week(year, week, loc)
}

// ParseMonth parses a "YYYY-MM" label into a month period in loc.
func ParseMonth(s string, loc *time.Location) (Period, error) {
	t, err := time.ParseInLocation("2006-01", s, loc)
	if err != nil {
		return Period{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return Month(t.Year(), t.Month(), loc), nil
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// StartUnixMs returns the inclusive lower bound in Unix milliseconds.
func (p Period) StartUnixMs() int64 { return p.Start.UnixMilli() }

// EndUnixMs returns the exclusive upper bound in Unix milliseconds.
func (p Period) EndUnixMs() int64 { return p.End.UnixMilli() }

// Days returns the number of calendar days the period spans.
func (p Period) Days() int {
	n := 0
	for d := p.Start; d.Before(p.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}
