package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"CryptoSign/internal/domain/models"
	domrepo "CryptoSign/internal/domain/repository"
	"CryptoSign/internal/services/backtest"
	"CryptoSign/internal/services/performance"
	"CryptoSign/internal/services/signals"
	applogger "CryptoSign/pkg/logger"
	"CryptoSign/pkg/util"
)

// ErrNoBars is returned when the bar source has nothing for the requested window.
var ErrNoBars = errors.New("no price bars for the requested window")

// BacktestParams overrides the configured simulator settings for one run.
// Empty Mode or Granularity keep the configured value.
type BacktestParams struct {
	Symbol      string
	Range       models.DateRange
	Mode        models.SimulationMode
	Granularity models.Granularity
	Persist     bool
	Publish     bool
}

// Backtester loads bars, replays the signal calendar over them and reports.
type Backtester struct {
	bars    domrepo.BarSource
	gen     *signals.Generator
	base    models.BacktestConfig
	ledger  domrepo.LedgerStore
	pub     domrepo.SignalPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time
	newID   func() string
}

// BacktestOption configures Backtester.
type BacktestOption func(*Backtester)

func WithLedger(s domrepo.LedgerStore) BacktestOption {
	return func(b *Backtester) { b.ledger = s }
}

func WithReportPublisher(p domrepo.SignalPublisher) BacktestOption {
	return func(b *Backtester) { b.pub = p }
}

func WithBacktestMetrics(m domrepo.Metrics) BacktestOption {
	return func(b *Backtester) { b.metrics = m }
}

func WithBacktestLogger(l *applogger.Logger) BacktestOption {
	return func(b *Backtester) {
		if l != nil {
			b.l = l
		}
	}
}

// NewBacktester validates base before any run.
func NewBacktester(bars domrepo.BarSource, gen *signals.Generator, base models.BacktestConfig, opts ...BacktestOption) (*Backtester, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	b := &Backtester{
		bars:  bars,
		gen:   gen,
		base:  base,
		l:     applogger.Nop(),
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Backtester) Config() models.BacktestConfig { return b.base }

// Location is the timezone range dates are resolved in.
func (b *Backtester) Location() *time.Location { return b.gen.Location() }

func (b *Backtester) config(p BacktestParams) models.BacktestConfig {
	cfg := b.base
	if p.Mode != "" {
		cfg.Mode = p.Mode
	}
	if p.Granularity != "" {
		cfg.Granularity = p.Granularity
	}
	return cfg
}

// Run executes one backtest. Bars are loaded one day past the range end so the last
// in-range bar has a successor for its exit.
func (b *Backtester) Run(ctx context.Context, p BacktestParams) (models.BacktestReport, error) {
	if err := p.Range.Validate(); err != nil {
		return models.BacktestReport{}, err
	}
	if p.Symbol == "" {
		return models.BacktestReport{}, models.NewConfigError("symbol", "symbol is required")
	}
	cfg := b.config(p)
	sim, err := backtest.NewSimulator(cfg, b.gen)
	if err != nil {
		return models.BacktestReport{}, err
	}

	start := time.Now()
	from, to := util.DayBounds(p.Range.Start, p.Range.End.AddDate(0, 0, 1), b.gen.Location())
	bars, err := b.bars.Bars(ctx, p.Symbol, from, to, cfg.Granularity)
	if err != nil {
		b.recordError("bars")
		return models.BacktestReport{}, fmt.Errorf("load bars: %w", err)
	}
	if len(bars) == 0 {
		return models.BacktestReport{}, fmt.Errorf("%w: %s %s %s..%s", ErrNoBars, p.Symbol, cfg.Granularity,
			p.Range.Start.Format(time.DateOnly), p.Range.End.Format(time.DateOnly))
	}

	res, err := sim.RunSlice(p.Range, bars)
	if err != nil {
		return models.BacktestReport{}, err
	}
	report := models.BacktestReport{
		RunID:     b.newID(),
		Symbol:    p.Symbol,
		From:      models.CivilDate(p.Range.Start),
		To:        models.CivilDate(p.Range.End),
		Mode:      cfg.Mode,
		Bars:      len(bars),
		Result:    res,
		Summary:   performance.Summarize(res.Trades),
		CreatedAt: b.now().UTC(),
	}
	b.observe(cfg, report, time.Since(start))

	if p.Persist {
		if b.ledger == nil {
			return report, models.NewConfigError("persist", "ledger store is not configured")
		}
		if err := b.ledger.StoreReport(ctx, report); err != nil {
			b.recordError("ledger")
			return report, fmt.Errorf("store report: %w", err)
		}
	}
	if p.Publish && b.pub != nil {
		if err := b.pub.PublishReport(ctx, report); err != nil {
			b.recordError("publish_report")
			b.l.Warn("backtest report publish failed", applogger.String("run_id", report.RunID), applogger.Error(err))
		} else if b.metrics != nil {
			b.metrics.RecordPublished("backtests")
		}
	}
	return report, nil
}

func (b *Backtester) recordError(kind string) {
	if b.metrics != nil {
		b.metrics.RecordError(kind)
	}
}

func (b *Backtester) observe(cfg models.BacktestConfig, r models.BacktestReport, took time.Duration) {
	if b.metrics != nil {
		for _, t := range r.Result.Trades {
			b.metrics.RecordTrade(string(cfg.Mode), string(t.Direction), string(t.ExitReason))
		}
		b.metrics.RecordSkipped("missing_price_data", r.Result.MissingPriceData)
		b.metrics.RecordSkipped("incomplete_bar", r.Result.IncompleteBars)
		b.metrics.RecordLatency("backtest", took.Seconds())
	}
	b.l.Info("backtest finished",
		applogger.String("run_id", r.RunID),
		applogger.String("symbol", r.Symbol),
		applogger.String("mode", string(cfg.Mode)),
		applogger.String("granularity", string(cfg.Granularity)),
		applogger.Int("bars", r.Bars),
		applogger.Int("trades", r.Summary.TotalTrades),
		applogger.Int("open", len(r.Result.Open)),
		applogger.Int("missing_price_data", r.Result.MissingPriceData),
		applogger.Int("incomplete_bars", r.Result.IncompleteBars),
		applogger.Float64("cumulative_return", r.Summary.CumulativeReturn),
		applogger.Duration("duration_ms", took),
	)
}
