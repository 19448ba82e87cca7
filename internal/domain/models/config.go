package models

import (
	"fmt"
	"time"
)

// ClassificationRule names a day-level classification policy.
type ClassificationRule string

const (
	RuleMembership ClassificationRule = "membership"
	RuleTwoTier    ClassificationRule = "two_tier"
)

// Granularity is the bar size of a price series.
type Granularity string

const (
	Hourly Granularity = "1h"
	Daily  Granularity = "1d"
)

// SimulationMode selects the entry/exit rule set of the simulator.
type SimulationMode string

const (
	ModeSimple  SimulationMode = "simple"
	ModeHeld    SimulationMode = "held"
	ModeBracket SimulationMode = "bracket"
)

// FlushPolicy decides how held positions leave the book.
type FlushPolicy string

const (
	// FlushAll closes every open position of a track on any opposite-side entry event.
	FlushAll FlushPolicy = "flush_all"
	// FlushScheduled closes a position only on its own scheduled exit date.
	FlushScheduled FlushPolicy = "scheduled_only"
)

// DefaultDaySets returns the reference high and low day sets of a rule.
// Under membership 6 counts as High only; the legacy low set also listed it.
func DefaultDaySets(rule ClassificationRule) (high, low CodeSet) {
	if rule == RuleTwoTier {
		return MustCodeSet(3, 5, 7, 9), MustCodeSet(6, 8)
	}
	return MustCodeSet(1, 3, 5, 6, 7, 9), MustCodeSet(2, 4, 8, 11, 22)
}

// SignalConfig is the numerological tuning. It is built once and passed by value.
type SignalConfig struct {
	AnchorHour      int
	AnchorMinute    int
	OffsetC1        int
	OffsetC2        int
	PreserveMasters bool
	Rule            ClassificationRule
	HighDays        CodeSet
	LowDays         CodeSet
	PeakHours       CodeSet
	DipHours        CodeSet
	Location        *time.Location
}

// DefaultSignalConfig returns the reference tuning: anchor 18:15, offsets (3,1), membership rule, peak {3,6,9}, dip {7,11}.
func DefaultSignalConfig() SignalConfig {
	high, low := DefaultDaySets(RuleMembership)
	return SignalConfig{
		HighDays:        high,
		LowDays:         low,
		AnchorHour:      18,
		AnchorMinute:    15,
		OffsetC1:        3,
		OffsetC2:        1,
		PreserveMasters: true,
		Rule:            RuleMembership,
		PeakHours:       MustCodeSet(3, 6, 9),
		DipHours:        MustCodeSet(7, 11),
		Location:        time.UTC,
	}
}

// WithRule switches the classification rule and resets the day sets to that rule's defaults.
func (c SignalConfig) WithRule(rule ClassificationRule) SignalConfig {
	c.Rule = rule
	c.HighDays, c.LowDays = DefaultDaySets(rule)
	return c
}

// Validate fails fast on tuning that would make classification ambiguous.
func (c SignalConfig) Validate() error {
	if c.AnchorHour < 0 || c.AnchorHour > 23 {
		return NewConfigError("anchor_hour", "must be within 0-23, got %d", c.AnchorHour)
	}
	if c.AnchorMinute < 0 || c.AnchorMinute > 59 {
		return NewConfigError("anchor_minute", "must be within 0-59, got %d", c.AnchorMinute)
	}
	if c.OffsetC1 < 0 || c.OffsetC2 < 0 {
		return NewConfigError("offsets", "must not be negative")
	}
	switch c.Rule {
	case RuleMembership, RuleTwoTier:
	default:
		return NewConfigError("rule", "unknown classification rule %q", c.Rule)
	}
	if c.HighDays.Empty() || c.LowDays.Empty() {
		return NewConfigError("day_sets", "rule %s references an undefined high or low set", c.Rule)
	}
	if both := c.HighDays.Intersect(c.LowDays); !both.Empty() {
		return NewConfigError("day_sets", "high and low sets overlap on %s", both)
	}
	if c.PeakHours.Empty() || c.DipHours.Empty() {
		return NewConfigError("hour_sets", "peak and dip sets must be defined")
	}
	if both := c.PeakHours.Intersect(c.DipHours); !both.Empty() {
		return NewConfigError("hour_sets", "peak and dip sets overlap on %s", both)
	}
	if c.Location == nil {
		return NewConfigError("timezone", "location is required")
	}
	return nil
}

// Fingerprint identifies the tuning in cache keys. Two configs with equal
// fingerprints produce identical calendars.
func (c SignalConfig) Fingerprint() string {
	loc := "UTC"
	if c.Location != nil {
		loc = c.Location.String()
	}
	return fmt.Sprintf("%s|%02d%02d|%d.%d|%t|%x.%x|%x.%x|%s",
		c.Rule, c.AnchorHour, c.AnchorMinute, c.OffsetC1, c.OffsetC2, c.PreserveMasters,
		uint32(c.HighDays), uint32(c.LowDays), uint32(c.PeakHours), uint32(c.DipHours), loc)
}

// BacktestConfig is the simulator tuning.
type BacktestConfig struct {
	Mode          SimulationMode
	Granularity   Granularity
	FlushPolicy   FlushPolicy
	TakeProfitPct float64
	StopLossPct   float64
	FeePct        float64
}

// DefaultBacktestConfig returns the hourly bracket reference: TP 1%, SL 0.5%, 0.08% fee per side.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		Mode:          ModeBracket,
		Granularity:   Hourly,
		FlushPolicy:   FlushAll,
		TakeProfitPct: 0.01,
		StopLossPct:   0.005,
		FeePct:        0.0008,
	}
}

// Validate fails fast on unusable simulator settings.
func (c BacktestConfig) Validate() error {
	switch c.Mode {
	case ModeSimple, ModeHeld, ModeBracket:
	default:
		return NewConfigError("mode", "unknown simulation mode %q", c.Mode)
	}
	switch c.Granularity {
	case Hourly, Daily:
	default:
		return NewConfigError("granularity", "unknown bar granularity %q", c.Granularity)
	}
	if c.Mode == ModeHeld {
		switch c.FlushPolicy {
		case FlushAll, FlushScheduled:
		default:
			return NewConfigError("flush_policy", "unknown flush policy %q", c.FlushPolicy)
		}
	}
	if c.Mode == ModeBracket && (c.TakeProfitPct <= 0 || c.StopLossPct <= 0) {
		return NewConfigError("bracket", "take profit and stop loss must be positive")
	}
	if c.TakeProfitPct < 0 || c.StopLossPct < 0 || c.FeePct < 0 {
		return NewConfigError("bracket", "percentages must not be negative")
	}
	return nil
}
