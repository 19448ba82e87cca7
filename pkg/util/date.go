package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDate parses a calendar date in loc. Besides YYYY-MM-DD it accepts "today" with an
// optional day offset ("today-7", "today+21"), resolved against now.
func ParseDate(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "today"); ok {
		offset := 0
		if rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil {
				return time.Time{}, fmt.Errorf("parse date %q: bad offset", s)
			}
			offset = n
		}
		y, m, d := now.In(loc).Date()
		return time.Date(y, m, d+offset, 0, 0, 0, 0, loc), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseTime tries RFC3339, RFC3339Nano, "2006-01-02 15:04:05" (UTC) and unix seconds or
// milliseconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		if ts > 1e12 {
			return time.UnixMilli(ts).UTC(), true
		}
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// DayBounds widens an inclusive date range to [start 00:00, end+1 00:00) in loc,
// the half-open window bar queries use.
func DayBounds(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	return time.Date(sy, sm, sd, 0, 0, 0, 0, loc), time.Date(ey, em, ed+1, 0, 0, 0, 0, loc)
}
