// Package classifier turns date and hour codes into day classifications and hour buckets.
package classifier

import (
	"CryptoSign/internal/domain/models"
	domsvc "CryptoSign/internal/domain/service"
)

func classifyCode(code int, high, low models.CodeSet) models.DayClassification {
	switch {
	case high.Contains(code):
		return models.DayHigh
	case low.Contains(code):
		return models.DayLow
	default:
		return models.DayNone
	}
}

// MembershipPolicy classifies the universal day (full code) by set membership.
type MembershipPolicy struct {
	High models.CodeSet
	Low  models.CodeSet
}

func (MembershipPolicy) Name() models.ClassificationRule { return models.RuleMembership }

func (p MembershipPolicy) Classify(codes models.DateCode) models.DayClassification {
	return classifyCode(codes.FullCode, p.High, p.Low)
}

// TwoTierPolicy classifies by day code first and falls back to the full code
// when the day code is in neither set.
type TwoTierPolicy struct {
	High models.CodeSet
	Low  models.CodeSet
}

func (TwoTierPolicy) Name() models.ClassificationRule { return models.RuleTwoTier }

func (p TwoTierPolicy) Classify(codes models.DateCode) models.DayClassification {
	if c := classifyCode(codes.DayCode, p.High, p.Low); c != models.DayNone {
		return c
	}
	return classifyCode(codes.FullCode, p.High, p.Low)
}

// NewPolicy builds the policy named by cfg.Rule.
func NewPolicy(cfg models.SignalConfig) (domsvc.ClassificationPolicy, error) {
	if cfg.HighDays.Empty() || cfg.LowDays.Empty() {
		return nil, models.NewConfigError("day_sets", "rule %s references an undefined high or low set", cfg.Rule)
	}
	if both := cfg.HighDays.Intersect(cfg.LowDays); !both.Empty() {
		return nil, models.NewConfigError("day_sets", "high and low sets overlap on %s", both)
	}
	switch cfg.Rule {
	case models.RuleMembership:
		return MembershipPolicy{High: cfg.HighDays, Low: cfg.LowDays}, nil
	case models.RuleTwoTier:
		return TwoTierPolicy{High: cfg.HighDays, Low: cfg.LowDays}, nil
	default:
		return nil, models.NewConfigError("rule", "unknown classification rule %q", cfg.Rule)
	}
}

var (
	_ domsvc.ClassificationPolicy = MembershipPolicy{}
	_ domsvc.ClassificationPolicy = TwoTierPolicy{}
)
