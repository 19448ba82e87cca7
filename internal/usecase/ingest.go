package usecase

import (
	"context"
	"fmt"
	"time"

	"CryptoSign/internal/domain/models"
	domrepo "CryptoSign/internal/domain/repository"
	applogger "CryptoSign/pkg/logger"
	"CryptoSign/pkg/util"
)

// defaultIngestChunkDays bounds how many days of bars are held in memory per write.
const defaultIngestChunkDays = 31

// IngestParams selects what to copy.
type IngestParams struct {
	Symbol      string
	Range       models.DateRange
	Granularity models.Granularity
}

// IngestResult counts what was copied.
type IngestResult struct {
	Bars   int `json:"bars"`
	Chunks int `json:"chunks"`
}

// Ingester copies bars from an upstream source into a store, one chunk of days at a time.
type Ingester struct {
	src       domrepo.BarSource
	sink      domrepo.BarSink
	loc       *time.Location
	chunkDays int
	metrics   domrepo.Metrics
	l         *applogger.Logger
}

// IngestOption configures Ingester.
type IngestOption func(*Ingester)

func WithIngestChunkDays(n int) IngestOption {
	return func(i *Ingester) {
		if n > 0 {
			i.chunkDays = n
		}
	}
}

func WithIngestMetrics(m domrepo.Metrics) IngestOption {
	return func(i *Ingester) { i.metrics = m }
}

func WithIngestLogger(l *applogger.Logger) IngestOption {
	return func(i *Ingester) {
		if l != nil {
			i.l = l
		}
	}
}

// NewIngester wires src to sink. Day bounds are taken in loc.
func NewIngester(src domrepo.BarSource, sink domrepo.BarSink, loc *time.Location, opts ...IngestOption) (*Ingester, error) {
	if src == nil || sink == nil {
		return nil, models.NewConfigError("ingest", "bar source and sink are required")
	}
	if loc == nil {
		loc = time.UTC
	}
	i := &Ingester{src: src, sink: sink, loc: loc, chunkDays: defaultIngestChunkDays, l: applogger.Nop()}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Run copies every bar of p.Range. A failed chunk stops the run; chunks already
// written stay, and re-running is safe because the store deduplicates on timestamp.
func (i *Ingester) Run(ctx context.Context, p IngestParams) (IngestResult, error) {
	var res IngestResult
	if err := p.Range.Validate(); err != nil {
		return res, err
	}
	if p.Symbol == "" {
		return res, models.NewConfigError("symbol", "symbol is required")
	}
	if p.Granularity == "" {
		p.Granularity = models.Hourly
	}

	end := models.CivilDate(p.Range.End)
	for day := models.CivilDate(p.Range.Start); !day.After(end); {
		last := day.AddDate(0, 0, i.chunkDays-1)
		if last.After(end) {
			last = end
		}
		from, to := util.DayBounds(day, last, i.loc)
		bars, err := i.src.Bars(ctx, p.Symbol, from, to, p.Granularity)
		if err != nil {
			i.recordError("ingest_fetch")
			return res, fmt.Errorf("fetch %s..%s: %w", day.Format(time.DateOnly), last.Format(time.DateOnly), err)
		}
		if len(bars) > 0 {
			if err := i.sink.StoreBars(ctx, p.Symbol, p.Granularity, bars); err != nil {
				i.recordError("ingest_store")
				return res, fmt.Errorf("store %s..%s: %w", day.Format(time.DateOnly), last.Format(time.DateOnly), err)
			}
		}
		res.Bars += len(bars)
		res.Chunks++
		i.l.Debug("ingest chunk stored",
			applogger.String("symbol", p.Symbol),
			applogger.Date("from", day),
			applogger.Date("to", last),
			applogger.Int("bars", len(bars)),
		)
		day = last.AddDate(0, 0, 1)
	}
	i.l.Info("ingest done",
		applogger.String("symbol", p.Symbol),
		applogger.String("granularity", string(p.Granularity)),
		applogger.Int("bars", res.Bars),
	)
	return res, nil
}

func (i *Ingester) recordError(kind string) {
	if i.metrics != nil {
		i.metrics.RecordError(kind)
	}
}
