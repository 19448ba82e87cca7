package service

import (
	"iter"
	"time"

	"CryptoSign/internal/domain/models"
)

// ClassificationPolicy labels a calendar date from its codes. Implementations are
// selected by configuration and never mixed within one generator.
type ClassificationPolicy interface {
	Name() models.ClassificationRule
	Classify(codes models.DateCode) models.DayClassification
}

// SignalSource produces the per-date classification stream consumed by the simulator.
type SignalSource interface {
	Records(rng models.DateRange) (iter.Seq[models.SignalRecord], error)
	Record(date time.Time) models.SignalRecord
	Classify(date time.Time) models.DayClassification
	NextDate(after time.Time, class models.DayClassification, until time.Time) (time.Time, bool)
	HourBucket(ts time.Time) (models.HourBucket, int)
	Location() *time.Location
}
