// Package signals produces the per-date signal calendar.
package signals

import (
	"iter"
	"time"

	"CryptoSign/internal/domain/models"
	domsvc "CryptoSign/internal/domain/service"
	"CryptoSign/internal/services/classifier"
	"CryptoSign/internal/services/numerology"
)

// Generator derives SignalRecords from calendar dates. It holds no mutable state;
// the same range always yields the same records.
type Generator struct {
	calc *numerology.Calculator
	cls  *classifier.Classifier
	fp   string
}

// New validates cfg and builds a generator for it.
func New(cfg models.SignalConfig) (*Generator, error) {
	cls, err := classifier.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Generator{calc: numerology.NewCalculator(cfg), cls: cls, fp: cfg.Fingerprint()}, nil
}

// Fingerprint identifies the tuning behind the generator for cache keys.
func (g *Generator) Fingerprint() string { return g.fp }

func (g *Generator) Location() *time.Location { return g.calc.Location() }

func (g *Generator) Rule() models.ClassificationRule { return g.cls.Rule() }

// civil reads the calendar date of t as given and pins it to the generator location.
func (g *Generator) civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, g.calc.Location())
}

// Classify returns the day classification of a calendar date.
func (g *Generator) Classify(date time.Time) models.DayClassification {
	return g.cls.Day(g.calc.DateCodes(g.civil(date)))
}

// HourSignals lists all 24 wall-clock hours of date with their codes and buckets,
// including an hour a DST jump skips.
func (g *Generator) HourSignals(date time.Time) []models.HourSignal {
	out := make([]models.HourSignal, 0, 24)
	for h := 0; h < 24; h++ {
		code := g.calc.HourCodeOn(date, h)
		out = append(out, models.HourSignal{
			Hour:   h,
			Label:  models.HourLabel(h),
			Code:   code,
			Bucket: g.cls.Hour(code),
		})
	}
	return out
}

// Record computes the SignalRecord of one calendar date.
func (g *Generator) Record(date time.Time) models.SignalRecord {
	d := g.civil(date)
	codes := g.calc.DateCodes(d)
	rec := models.SignalRecord{
		Date:           d,
		Codes:          codes,
		Classification: g.cls.Day(codes),
	}
	for _, hs := range g.HourSignals(d) {
		switch hs.Bucket {
		case models.HourPeak:
			rec.PeakHours = append(rec.PeakHours, hs)
		case models.HourDip:
			rec.DipHours = append(rec.DipHours, hs)
		}
	}
	return rec
}

// Records returns a lazy sequence of one record per date in rng, oldest first.
// The range is checked before anything is produced. The sequence can be ranged
// over any number of times.
func (g *Generator) Records(rng models.DateRange) (iter.Seq[models.SignalRecord], error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	start, end := g.civil(rng.Start), g.civil(rng.End)
	return func(yield func(models.SignalRecord) bool) {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !yield(g.Record(d)) {
				return
			}
		}
	}, nil
}

// Generate collects Records into a slice.
func (g *Generator) Generate(rng models.DateRange) ([]models.SignalRecord, error) {
	seq, err := g.Records(rng)
	if err != nil {
		return nil, err
	}
	out := make([]models.SignalRecord, 0, rng.Days())
	for rec := range seq {
		out = append(out, rec)
	}
	return out, nil
}

// NextDate scans the dates strictly after `after` up to and including `until`
// and returns the first one classified class.
func (g *Generator) NextDate(after time.Time, class models.DayClassification, until time.Time) (time.Time, bool) {
	end := g.civil(until)
	for d := g.civil(after).AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		if g.Classify(d) == class {
			return d, true
		}
	}
	return time.Time{}, false
}

// HourBucket returns the bucket and hour code of the clock hour containing ts.
func (g *Generator) HourBucket(ts time.Time) (models.HourBucket, int) {
	code := g.calc.HourCodeAt(ts)
	return g.cls.Hour(code), code
}

var _ domsvc.SignalSource = (*Generator)(nil)
