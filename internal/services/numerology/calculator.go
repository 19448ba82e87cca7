package numerology

import (
	"time"

	"CryptoSign/internal/domain/models"
)

// Calculator derives date and hour codes under one SignalConfig.
// It is immutable and safe for concurrent use.
type Calculator struct {
	reduce       Reducer
	offset       int
	anchorHour   int
	anchorMinute int
	loc          *time.Location
}

// NewCalculator binds the reducer, offsets, anchor and timezone of cfg.
func NewCalculator(cfg models.SignalConfig) *Calculator {
	r := Reducer(Reduce)
	if !cfg.PreserveMasters {
		r = ReduceFully
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{
		reduce:       r,
		offset:       cfg.OffsetC1 + cfg.OffsetC2,
		anchorHour:   cfg.AnchorHour,
		anchorMinute: cfg.AnchorMinute,
		loc:          loc,
	}
}

// Reduce applies the configured reducer.
func (c *Calculator) Reduce(n int) int { return c.reduce(n) }

// Location is the timezone dates and hours are evaluated in.
func (c *Calculator) Location() *time.Location { return c.loc }

// DayCode reduces the day of month.
func (c *Calculator) DayCode(day int) int { return c.reduce(day) }

// FullCode reduces month+day+year taken as plain integers (the universal day).
func (c *Calculator) FullCode(year, month, day int) int { return c.reduce(month + day + year) }

// TradingDayCode is the code of the trading day that opens at the anchor on date.
func (c *Calculator) TradingDayCode(date time.Time) int {
	y, m, d := date.Date()
	py := c.reduce(c.offset + y)
	pm := c.reduce(py + int(m))
	return c.reduce(pm + d)
}

// AnchorDate returns the calendar date whose trading day contains ts: the same date,
// or the previous one when ts is before the anchor time.
func (c *Calculator) AnchorDate(ts time.Time) time.Time {
	ts = ts.In(c.loc)
	date := models.CivilDate(ts)
	h, m := ts.Hour(), ts.Minute()
	if h < c.anchorHour || (h == c.anchorHour && m < c.anchorMinute) {
		date = date.AddDate(0, 0, -1)
	}
	return date
}

// AnchoredCode is the trading-day code in force at ts.
func (c *Calculator) AnchoredCode(ts time.Time) int {
	return c.TradingDayCode(c.AnchorDate(ts))
}

// HourCode combines an anchored code with the weight of hour.
// Master sums are kept as is. Panics on an hour outside 0-23.
func (c *Calculator) HourCode(hour, anchored int) int {
	v := anchored + HourWeight(hour)
	if IsMaster(v) {
		return v
	}
	return c.reduce(v)
}

// HourCodeAt is the hour code of the clock hour containing ts.
func (c *Calculator) HourCodeAt(ts time.Time) int {
	ts = ts.In(c.loc)
	return c.HourCode(ts.Hour(), c.AnchoredCode(ts))
}

// HourCodeOn is the code of wall-clock hour on the calendar date of date. Unlike
// HourCodeAt it never resolves a concrete instant, so an hour skipped by a DST
// transition keeps its own code.
func (c *Calculator) HourCodeOn(date time.Time, hour int) int {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if hour < c.anchorHour || (hour == c.anchorHour && c.anchorMinute > 0) {
		day = day.AddDate(0, 0, -1)
	}
	return c.HourCode(hour, c.TradingDayCode(day))
}

// DateCodes computes every code of a calendar date. The date is read in its own
// location; the time of day is ignored.
func (c *Calculator) DateCodes(date time.Time) models.DateCode {
	y, m, d := date.Date()
	return models.DateCode{
		DayCode:      c.DayCode(d),
		FullCode:     c.FullCode(y, int(m), d),
		AnchoredCode: c.TradingDayCode(date),
	}
}
