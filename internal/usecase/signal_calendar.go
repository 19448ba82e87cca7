package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"CryptoSign/internal/domain/models"
	domrepo "CryptoSign/internal/domain/repository"
	"CryptoSign/internal/service/cache"
	"CryptoSign/internal/services/signals"
	applogger "CryptoSign/pkg/logger"
)

// ErrPublisherDisabled is returned by Publish when no signal publisher is wired.
var ErrPublisherDisabled = errors.New("signal publisher is not configured")

// SignalCalendar serves signal records for date ranges. Generated calendars are
// cached by tuning fingerprint and range, and optionally published.
type SignalCalendar struct {
	gen     *signals.Generator
	cache   cache.BytesCache
	ttl     time.Duration
	pub     domrepo.SignalPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger
}

// CalendarOption configures SignalCalendar.
type CalendarOption func(*SignalCalendar)

func WithCalendarCache(c cache.BytesCache, ttl time.Duration) CalendarOption {
	return func(s *SignalCalendar) { s.cache, s.ttl = c, ttl }
}

func WithCalendarPublisher(p domrepo.SignalPublisher) CalendarOption {
	return func(s *SignalCalendar) { s.pub = p }
}

func WithCalendarMetrics(m domrepo.Metrics) CalendarOption {
	return func(s *SignalCalendar) { s.metrics = m }
}

func WithCalendarLogger(l *applogger.Logger) CalendarOption {
	return func(s *SignalCalendar) {
		if l != nil {
			s.l = l
		}
	}
}

func NewSignalCalendar(gen *signals.Generator, opts ...CalendarOption) *SignalCalendar {
	s := &SignalCalendar{gen: gen, l: applogger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SignalCalendar) Generator() *signals.Generator { return s.gen }

func (s *SignalCalendar) cacheKey(rng models.DateRange) string {
	return fmt.Sprintf("cal:%s:%s:%s", s.gen.Fingerprint(),
		rng.Start.Format(time.DateOnly), rng.End.Format(time.DateOnly))
}

// Calendar returns one record per date in rng. Cache and publish failures are
// logged and never fail the call.
func (s *SignalCalendar) Calendar(ctx context.Context, rng models.DateRange) ([]models.SignalRecord, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	key := s.cacheKey(rng)
	if recs, ok := s.fromCache(ctx, key); ok {
		return recs, nil
	}

	start := time.Now()
	recs, err := s.gen.Generate(rng)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		for _, r := range recs {
			s.metrics.RecordSignal(string(s.gen.Rule()), string(r.Classification))
		}
		s.metrics.RecordLatency("calendar_generate", time.Since(start).Seconds())
	}

	if s.cache != nil {
		if b, err := json.Marshal(recs); err == nil {
			if err := s.cache.SetBytes(ctx, key, b, s.ttl); err != nil {
				s.l.Warn("calendar cache write failed", applogger.String("key", key), applogger.Error(err))
			}
		}
	}
	return recs, nil
}

func (s *SignalCalendar) fromCache(ctx context.Context, key string) ([]models.SignalRecord, bool) {
	if s.cache == nil {
		return nil, false
	}
	b, ok, err := s.cache.GetBytes(ctx, key)
	if err != nil {
		s.l.Warn("calendar cache read failed", applogger.String("key", key), applogger.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordCache(ok)
	}
	if !ok {
		return nil, false
	}
	var recs []models.SignalRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		s.l.Warn("calendar cache entry corrupt", applogger.String("key", key), applogger.Error(err))
		return nil, false
	}
	loc := s.gen.Location()
	for i := range recs {
		recs[i].Date = recs[i].Date.In(loc)
	}
	return recs, true
}

// Publish generates the calendar of rng and sends it downstream.
func (s *SignalCalendar) Publish(ctx context.Context, rng models.DateRange) (int, error) {
	if s.pub == nil {
		return 0, ErrPublisherDisabled
	}
	recs, err := s.Calendar(ctx, rng)
	if err != nil {
		return 0, err
	}
	if err := s.pub.PublishCalendar(ctx, recs); err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("publish_calendar")
		}
		return 0, fmt.Errorf("publish calendar: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordPublished("signals")
	}
	s.l.Info("calendar published", applogger.Date("start", rng.Start), applogger.Date("end", rng.End), applogger.Int("records", len(recs)))
	return len(recs), nil
}

// Record returns the signal record of one date.
func (s *SignalCalendar) Record(date time.Time) models.SignalRecord {
	return s.gen.Record(date)
}

// Hours returns the codes and buckets of all 24 hours of date.
func (s *SignalCalendar) Hours(date time.Time) []models.HourSignal {
	return s.gen.HourSignals(date)
}
