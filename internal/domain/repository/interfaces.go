package repository

import (
	"context"
	"time"

	"CryptoSign/internal/domain/models"
)

// BarSource loads OHLCV bars in [from, to), sorted by timestamp without duplicates.
type BarSource interface {
	Bars(ctx context.Context, symbol string, from, to time.Time, g models.Granularity) ([]models.PriceBar, error)
}

// BarSink stores bars fetched from an upstream source.
type BarSink interface {
	StoreBars(ctx context.Context, symbol string, g models.Granularity, bars []models.PriceBar) error
}

// LedgerStore persists backtest runs.
type LedgerStore interface {
	StoreReport(ctx context.Context, r models.BacktestReport) error
}

// SignalPublisher fans calendars and reports out to downstream consumers.
type SignalPublisher interface {
	PublishCalendar(ctx context.Context, records []models.SignalRecord) error
	PublishReport(ctx context.Context, r models.BacktestReport) error
}

type Metrics interface {
	RecordSignal(rule, class string)
	RecordTrade(mode, direction, reason string)
	RecordSkipped(kind string, n int)
	RecordPublished(topic string)
	RecordCache(hit bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
