package models

import (
	"fmt"
	"time"
)

// DayClassification labels a calendar date.
type DayClassification string

const (
	DayHigh DayClassification = "High"
	DayLow  DayClassification = "Low"
	DayNone DayClassification = "None"
)

// HourBucket labels a single clock hour.
type HourBucket string

const (
	HourPeak    HourBucket = "peak"
	HourDip     HourBucket = "dip"
	HourNeutral HourBucket = "neutral"
)

// Direction of a position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// DateCode holds the numerological codes derived from a date.
// AnchoredCode is only meaningful for a concrete timestamp; for a plain date it is
// the code of the trading day that starts at the anchor on that date.
type DateCode struct {
	DayCode      int `json:"day_code"`
	FullCode     int `json:"full_code"`
	AnchoredCode int `json:"anchored_code"`
}

// HourSignal is one clock hour of a date with its derived code.
type HourSignal struct {
	Hour   int        `json:"hour"`
	Label  string     `json:"label"` // e.g. "3pm"
	Code   int        `json:"code"`
	Bucket HourBucket `json:"bucket"`
}

// SignalRecord is the classification of one calendar date.
type SignalRecord struct {
	Date           time.Time         `json:"date"`
	Codes          DateCode          `json:"codes"`
	Classification DayClassification `json:"classification"`
	PeakHours      []HourSignal      `json:"peak_hours"`
	DipHours       []HourSignal      `json:"dip_hours"`
}

// Signal returns the actionable side of the record: LONG at dip hours on a Low day,
// SHORT at peak hours on a High day. ok is false when the date carries no signal.
func (r SignalRecord) Signal() (dir Direction, hours []HourSignal, ok bool) {
	switch {
	case r.Classification == DayLow && len(r.DipHours) > 0:
		return Long, r.DipHours, true
	case r.Classification == DayHigh && len(r.PeakHours) > 0:
		return Short, r.PeakHours, true
	default:
		return "", nil, false
	}
}

// HourLabel formats a clock hour the way the calendar shows it (12am, 1am ... 11pm).
func HourLabel(h int) string {
	suffix := "am"
	if h >= 12 {
		suffix = "pm"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d%s", h12, suffix)
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate reports ErrInvalidRange when End is before Start.
func (r DateRange) Validate() error {
	if CivilDate(r.End).Before(CivilDate(r.Start)) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidRange,
			r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	}
	return nil
}

// Days returns the number of dates in the range.
func (r DateRange) Days() int {
	return int(utcDate(r.End).Sub(utcDate(r.Start)).Hours()/24) + 1
}

// utcDate moves the calendar date of t to UTC midnight, where every day is 24h long.
func utcDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CivilDate truncates t to midnight in its own location.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
