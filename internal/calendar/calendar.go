// Package calendar answers which days fulfillment and postage work on and
// steps dates forward by working days.
package calendar

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DateLayout is the layout of specific closed dates in settings.
const DateLayout = "2006-01-02"

// MaxConsecutiveClosedDays bounds how many non-working days in a row the
// advancer will skip before giving up.
const MaxConsecutiveClosedDays = 3650

// ErrNonTerminatingCalendar is returned when no working day can be reached.
var ErrNonTerminatingCalendar = errors.New("calendar has no reachable working day")

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Calendar is the read-only set of non-working days for one store.
type Calendar struct {
	loc     *time.Location
	weekly  map[time.Weekday]struct{}
	store   map[string]struct{}
	postage map[string]struct{}
}

// New builds a calendar in loc. Unknown weekday names and dates that are not
// YYYY-MM-DD are dropped and logged.
func New(loc *time.Location, weekly, storeDates, postageDates []string) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	c := &Calendar{
		loc:     loc,
		weekly:  make(map[time.Weekday]struct{}, len(weekly)),
		store:   parseDates("store", storeDates),
		postage: parseDates("postage", postageDates),
	}
	for _, name := range weekly {
		wd, ok := ParseWeekday(name)
		if !ok {
			slog.Warn("ignoring unknown weekday in closed days", "value", name)
			continue
		}
		c.weekly[wd] = struct{}{}
	}
	return c
}

// ParseWeekday matches a lowercase or capitalized English weekday name.
func ParseWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	return wd, ok
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

func parseDates(set string, values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		d, err := ParseDate(v)
		if err != nil {
			slog.Warn("ignoring malformed closed date", "set", set, "value", v)
			continue
		}
		out[d.Format(DateLayout)] = struct{}{}
	}
	return out
}

// Location returns the store timezone the calendar works in.
func (c *Calendar) Location() *time.Location { return c.loc }

// Validate reports ErrNonTerminatingCalendar when every weekday is closed.
func (c *Calendar) Validate() error {
	if len(c.weekly) == len(weekdays) {
		return fmt.Errorf("all seven weekdays are closed: %w", ErrNonTerminatingCalendar)
	}
	return nil
}

// IsNonWorkingDay reports whether the calendar day of t, in the store
// timezone, is a weekly closure, a store holiday or a postage holiday.
func (c *Calendar) IsNonWorkingDay(t time.Time) bool {
	t = t.In(c.loc)
	if _, ok := c.weekly[t.Weekday()]; ok {
		return true
	}
	key := t.Format(DateLayout)
	if _, ok := c.store[key]; ok {
		return true
	}
	_, ok := c.postage[key]
	return ok
}

// AddWorkingDays returns the day n working days after start. The returned
// day is itself always a working day, so n == 0 yields the first working
// day at or after start. Negative n is treated as 0.
func (c *Calendar) AddWorkingDays(start time.Time, n int) (time.Time, error) {
	if n < 0 {
		n = 0
	}
	cur := c.midnight(start)
	closedRun := 0
	for n > 0 {
		cur = c.nextDay(cur)
		if c.IsNonWorkingDay(cur) {
			closedRun++
			if closedRun > MaxConsecutiveClosedDays {
				return time.Time{}, ErrNonTerminatingCalendar
			}
			continue
		}
		closedRun = 0
		n--
	}
	for c.IsNonWorkingDay(cur) {
		closedRun++
		if closedRun > MaxConsecutiveClosedDays {
			return time.Time{}, ErrNonTerminatingCalendar
		}
		cur = c.nextDay(cur)
	}
	return cur, nil
}

// NextWorkingDay returns the first working day at or after t.
func (c *Calendar) NextWorkingDay(t time.Time) (time.Time, error) {
	return c.AddWorkingDays(t, 0)
}

func (c *Calendar) midnight(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

func (c *Calendar) nextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, c.loc)
}
