// Package civilday maps UTC instants to calendar days of a fixed-offset zone.
//
// Every "today" or "this day" question in the service goes through a Calendar.
// Comparing against UTC midnight would put evening check-ins on the wrong day.
package civilday

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KeyLayout is the format of a civil-day key, e.g. "2024-01-10".
const KeyLayout = "2006-01-02"

// Range is the half-open UTC interval [Start, End) covering one civil day.
type Range struct {
	Key   string
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the day.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Calendar resolves civil days in a single fixed zone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar returns a Calendar for loc. A nil loc means UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// Location returns the zone of the calendar.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Key returns the civil-day key of t.
func (c Calendar) Key(t time.Time) string {
	return t.In(c.Location()).Format(KeyLayout)
}

// RangeOf returns the civil day containing t.
func (c Calendar) RangeOf(t time.Time) Range {
	local := t.In(c.Location())
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location())
	return Range{
		Key:   local.Format(KeyLayout),
		Start: start.UTC(),
		End:   start.AddDate(0, 0, 1).UTC(),
	}
}

// Range returns the UTC range of the civil day identified by key.
func (c Calendar) Range(key string) (Range, error) {
	day, err := time.ParseInLocation(KeyLayout, key, c.Location())
	if err != nil {
		return Range{}, fmt.Errorf("invalid civil day %q: %w", key, err)
	}
	return Range{
		Key:   key,
		Start: day.UTC(),
		End:   day.AddDate(0, 0, 1).UTC(),
	}, nil
}

// Span returns the UTC range from the start of startKey to the end of endKey.
func (c Calendar) Span(startKey, endKey string) (time.Time, time.Time, error) {
	first, err := c.Range(startKey)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	last, err := c.Range(endKey)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return first.Start, last.End, nil
}

// MinuteOfDay returns the local wall-clock minutes since midnight of t.
func (c Calendar) MinuteOfDay(t time.Time) int {
	local := t.In(c.Location())
	return local.Hour()*60 + local.Minute()
}

// Clock returns the local wall-clock time of t as "HH:MM:SS".
func (c Calendar) Clock(t time.Time) string {
	return t.In(c.Location()).Format("15:04:05")
}

// Compose builds the UTC instant for a local wall-clock time on a civil day.
// clock is "HH:MM" or "HH:MM:SS".
func (c Calendar) Compose(key, clock string) (time.Time, error) {
	day, err := time.ParseInLocation(KeyLayout, key, c.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid civil day %q: %w", key, err)
	}
	h, m, s, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, c.Location()).UTC(), nil
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into its parts.
func ParseClock(clock string) (hour, minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid time %q: expected HH:MM or HH:MM:SS", clock)
	}
	limits := []int{23, 59, 59}
	values := make([]int, 3)
	for i, p := range parts {
		if len(p) != 2 {
			return 0, 0, 0, fmt.Errorf("invalid time %q: expected HH:MM or HH:MM:SS", clock)
		}
		v, convErr := strconv.Atoi(p)
		if convErr != nil || v < 0 || v > limits[i] {
			return 0, 0, 0, fmt.Errorf("invalid time %q: expected HH:MM or HH:MM:SS", clock)
		}
		values[i] = v
	}
	return values[0], values[1], values[2], nil
}

// ParseOffset builds a fixed zone from an offset such as "+08:00" or "-05:30".
func ParseOffset(offset string) (*time.Location, error) {
	offset = strings.TrimSpace(offset)
	if offset == "" || offset == "Z" || offset == "UTC" {
		return time.UTC, nil
	}
	if len(offset) != 6 || (offset[0] != '+' && offset[0] != '-') || offset[3] != ':' {
		return nil, fmt.Errorf("invalid zone offset %q: expected ±HH:MM", offset)
	}
	h, err := strconv.Atoi(offset[1:3])
	if err != nil || h > 14 {
		return nil, fmt.Errorf("invalid zone offset %q: bad hours", offset)
	}
	m, err := strconv.Atoi(offset[4:6])
	if err != nil || m > 59 {
		return nil, fmt.Errorf("invalid zone offset %q: bad minutes", offset)
	}
	seconds := h*3600 + m*60
	if offset[0] == '-' {
		seconds = -seconds
	}
	return time.FixedZone("UTC"+offset, seconds), nil
}

// AddDays shifts a civil-day key by n days.
func AddDays(key string, n int) (string, error) {
	day, err := time.Parse(KeyLayout, key)
	if err != nil {
		return "", fmt.Errorf("invalid civil day %q: %w", key, err)
	}
	return day.AddDate(0, 0, n).Format(KeyLayout), nil
}

// Before reports whether day a comes strictly before day b.
// Keys in KeyLayout order lexically.
func Before(a, b string) bool {
	return a < b
}

// Min returns the earlier of two keys.
func Min(a, b string) string {
	if Before(b, a) {
		return b
	}
	return a
}

// IsWeekday reports whether key falls Monday through Friday.
func IsWeekday(key string) bool {
	day, err := time.Parse(KeyLayout, key)
	if err != nil {
		return false
	}
	wd := day.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Days lists every key from startKey to endKey inclusive.
// An inverted range yields no days.
func Days(startKey, endKey string) ([]string, error) {
	start, err := time.Parse(KeyLayout, startKey)
	if err != nil {
		return nil, fmt.Errorf("invalid civil day %q: %w", startKey, err)
	}
	end, err := time.Parse(KeyLayout, endKey)
	if err != nil {
		return nil, fmt.Errorf("invalid civil day %q: %w", endKey, err)
	}
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(KeyLayout))
	}
	return days, nil
}
