package classifier

import (
	"CryptoSign/internal/domain/models"
	domsvc "CryptoSign/internal/domain/service"
)

// HourBucketer maps hour codes to peak, dip or neutral.
type HourBucketer struct {
	Peak models.CodeSet
	Dip  models.CodeSet
}

func (b HourBucketer) Bucket(code int) models.HourBucket {
	switch {
	case b.Peak.Contains(code):
		return models.HourPeak
	case b.Dip.Contains(code):
		return models.HourDip
	default:
		return models.HourNeutral
	}
}

// Classifier combines a day policy with an hour bucketer.
type Classifier struct {
	policy domsvc.ClassificationPolicy
	hours  HourBucketer
}

// New validates cfg and builds the classifier it describes.
func New(cfg models.SignalConfig) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := NewPolicy(cfg)
	if err != nil {
		return nil, err
	}
	return &Classifier{policy: p, hours: HourBucketer{Peak: cfg.PeakHours, Dip: cfg.DipHours}}, nil
}

// NewWithPolicy injects a custom day policy.
func NewWithPolicy(p domsvc.ClassificationPolicy, hours HourBucketer) (*Classifier, error) {
	if p == nil {
		return nil, models.NewConfigError("rule", "policy is required")
	}
	if both := hours.Peak.Intersect(hours.Dip); !both.Empty() {
		return nil, models.NewConfigError("hour_sets", "peak and dip sets overlap on %s", both)
	}
	return &Classifier{policy: p, hours: hours}, nil
}

func (c *Classifier) Rule() models.ClassificationRule { return c.policy.Name() }

func (c *Classifier) Day(codes models.DateCode) models.DayClassification {
	return c.policy.Classify(codes)
}

func (c *Classifier) Hour(code int) models.HourBucket { return c.hours.Bucket(code) }
