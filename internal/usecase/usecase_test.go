package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoSign/internal/domain/models"
	"CryptoSign/internal/service/cache"
	"CryptoSign/internal/services/signals"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

type fakeBars struct {
	bars     []models.PriceBar
	err      error
	from, to time.Time
	g        models.Granularity
}

func (f *fakeBars) Bars(_ context.Context, _ string, from, to time.Time, g models.Granularity) ([]models.PriceBar, error) {
	f.from, f.to, f.g = from, to, g
	return f.bars, f.err
}

type fakeLedger struct {
	reports []models.BacktestReport
	err     error
}

func (f *fakeLedger) StoreReport(_ context.Context, r models.BacktestReport) error {
	f.reports = append(f.reports, r)
	return f.err
}

type fakePublisher struct {
	calendars [][]models.SignalRecord
	reports   []models.BacktestReport
	err       error
}

func (f *fakePublisher) PublishCalendar(_ context.Context, recs []models.SignalRecord) error {
	f.calendars = append(f.calendars, recs)
	return f.err
}

func (f *fakePublisher) PublishReport(_ context.Context, r models.BacktestReport) error {
	f.reports = append(f.reports, r)
	return f.err
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{counts: map[string]int{}} }

func (m *fakeMetrics) inc(k string, n int) {
	m.mu.Lock()
	m.counts[k] += n
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordSignal(rule, class string)      { m.inc("signal:"+rule+":"+class, 1) }
func (m *fakeMetrics) RecordTrade(mode, dir, reason string) { m.inc("trade:"+mode+":"+reason, 1) }
func (m *fakeMetrics) RecordSkipped(kind string, n int)     { m.inc("skip:"+kind, n) }
func (m *fakeMetrics) RecordPublished(topic string)         { m.inc("pub:"+topic, 1) }
func (m *fakeMetrics) RecordError(kind string)              { m.inc("err:"+kind, 1) }
func (m *fakeMetrics) RecordLatency(string, float64)        {}
func (m *fakeMetrics) RecordCache(hit bool) {
	if hit {
		m.inc("cache:hit", 1)
		return
	}
	m.inc("cache:miss", 1)
}

func twoTierGen(t *testing.T) *signals.Generator {
	t.Helper()
	gen, err := signals.New(models.DefaultSignalConfig().WithRule(models.RuleTwoTier))
	require.NoError(t, err)
	return gen
}

func TestSignalCalendar_CachesByRange(t *testing.T) {
	m := newFakeMetrics()
	uc := NewSignalCalendar(twoTierGen(t),
		WithCalendarCache(cache.NewTTLCache(time.Hour), time.Hour),
		WithCalendarMetrics(m),
	)
	rng := models.DateRange{Start: day(6), End: day(8)}

	first, err := uc.Calendar(context.Background(), rng)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, models.DayHigh, first[1].Classification)

	second, err := uc.Calendar(context.Background(), rng)
	require.NoError(t, err)
	assert.Equal(t, 1, m.counts["cache:miss"])
	assert.Equal(t, 1, m.counts["cache:hit"])
	assert.Equal(t, 1, m.counts["signal:two_tier:High"], "signals are counted on generation only")
	require.Len(t, second, 3)
	for i := range first {
		assert.True(t, first[i].Date.Equal(second[i].Date))
		assert.Equal(t, first[i].Classification, second[i].Classification)
		assert.Equal(t, first[i].PeakHours, second[i].PeakHours)
	}
}

func TestSignalCalendar_InvalidRange(t *testing.T) {
	uc := NewSignalCalendar(twoTierGen(t))
	_, err := uc.Calendar(context.Background(), models.DateRange{Start: day(8), End: day(7)})
	assert.ErrorIs(t, err, models.ErrInvalidRange)
}

func TestSignalCalendar_Publish(t *testing.T) {
	pub := &fakePublisher{}
	m := newFakeMetrics()
	uc := NewSignalCalendar(twoTierGen(t), WithCalendarPublisher(pub), WithCalendarMetrics(m))

	n, err := uc.Publish(context.Background(), models.DateRange{Start: day(6), End: day(12)})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.Len(t, pub.calendars, 1)
	assert.Len(t, pub.calendars[0], 7)
	assert.Equal(t, 1, m.counts["pub:signals"])

	pub.err = errors.New("broker down")
	_, err = uc.Publish(context.Background(), models.DateRange{Start: day(6), End: day(6)})
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1, m.counts["err:publish_calendar"])

	_, err = NewSignalCalendar(twoTierGen(t)).Publish(context.Background(), models.DateRange{Start: day(6), End: day(6)})
	assert.ErrorIs(t, err, ErrPublisherDisabled)
}

func takeProfitBars() []models.PriceBar {
	return []models.PriceBar{
		{Timestamp: time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC), Open: 100, High: 101, Low: 99, Close: 100.5},
		{Timestamp: time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC), Open: 100.5, High: 100.8, Low: 99.5, Close: 99.8},
	}
}

func newBacktester(t *testing.T, bars *fakeBars, opts ...BacktestOption) *Backtester {
	t.Helper()
	b, err := NewBacktester(bars, twoTierGen(t), models.DefaultBacktestConfig(), opts...)
	require.NoError(t, err)
	b.now = func() time.Time { return day(15) }
	b.newID = func() string { return "run-1" }
	return b
}

func TestBacktester_Run(t *testing.T) {
	src := &fakeBars{bars: takeProfitBars()}
	ledger := &fakeLedger{}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	b := newBacktester(t, src, WithLedger(ledger), WithReportPublisher(pub), WithBacktestMetrics(m))

	rep, err := b.Run(context.Background(), BacktestParams{
		Symbol: "BTCUSDT", Range: models.DateRange{Start: day(7), End: day(7)}, Persist: true, Publish: true,
	})
	require.NoError(t, err)

	assert.Equal(t, day(7), src.from)
	assert.Equal(t, day(9), src.to, "one extra day is loaded for exits")
	assert.Equal(t, models.Hourly, src.g)

	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, 2, rep.Bars)
	assert.Equal(t, models.ModeBracket, rep.Mode)
	require.Len(t, rep.Result.Trades, 1)
	assert.InDelta(t, 0.0084, rep.Summary.CumulativeReturn, 1e-12)
	assert.Equal(t, 1, rep.Summary.Wins)
	assert.Equal(t, day(15), rep.CreatedAt)

	require.Len(t, ledger.reports, 1)
	require.Len(t, pub.reports, 1)
	assert.Equal(t, 1, m.counts["trade:bracket:take_profit"])
	assert.Equal(t, 8, m.counts["skip:missing_price_data"])
	assert.Equal(t, 1, m.counts["pub:backtests"])
}

func TestBacktester_Overrides(t *testing.T) {
	src := &fakeBars{bars: takeProfitBars()}
	b := newBacktester(t, src)

	rep, err := b.Run(context.Background(), BacktestParams{
		Symbol: "BTCUSDT", Range: models.DateRange{Start: day(7), End: day(7)}, Mode: models.ModeSimple,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModeSimple, rep.Mode)
	require.Len(t, rep.Result.Trades, 1)
	assert.Equal(t, models.ExitNextClose, rep.Result.Trades[0].ExitReason)
	assert.Equal(t, models.ModeBracket, b.Config().Mode, "base config is not mutated")
}

func TestBacktester_Errors(t *testing.T) {
	rng := models.DateRange{Start: day(7), End: day(7)}
	ctx := context.Background()

	_, err := newBacktester(t, &fakeBars{}).Run(ctx, BacktestParams{Symbol: "X", Range: models.DateRange{Start: day(8), End: day(7)}})
	assert.ErrorIs(t, err, models.ErrInvalidRange)

	_, err = newBacktester(t, &fakeBars{}).Run(ctx, BacktestParams{Range: rng})
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = newBacktester(t, &fakeBars{}).Run(ctx, BacktestParams{Symbol: "X", Range: rng, Mode: "martingale"})
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = newBacktester(t, &fakeBars{}).Run(ctx, BacktestParams{Symbol: "X", Range: rng})
	assert.ErrorIs(t, err, ErrNoBars)

	_, err = newBacktester(t, &fakeBars{err: errors.New("timeout")}).Run(ctx, BacktestParams{Symbol: "X", Range: rng})
	assert.ErrorContains(t, err, "timeout")

	_, err = newBacktester(t, &fakeBars{bars: takeProfitBars()}).Run(ctx, BacktestParams{Symbol: "X", Range: rng, Persist: true})
	assert.ErrorIs(t, err, models.ErrConfiguration)

	ledger := &fakeLedger{err: errors.New("disk full")}
	_, err = newBacktester(t, &fakeBars{bars: takeProfitBars()}, WithLedger(ledger)).Run(ctx, BacktestParams{Symbol: "X", Range: rng, Persist: true})
	assert.ErrorContains(t, err, "disk full")
}

func TestBacktester_PublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	m := newFakeMetrics()
	b := newBacktester(t, &fakeBars{bars: takeProfitBars()}, WithReportPublisher(pub), WithBacktestMetrics(m))
	_, err := b.Run(context.Background(), BacktestParams{Symbol: "X", Range: models.DateRange{Start: day(7), End: day(7)}, Publish: true})
	require.NoError(t, err)
	assert.Equal(t, 1, m.counts["err:publish_report"])
}

func TestNewBacktester_InvalidConfig(t *testing.T) {
	cfg := models.DefaultBacktestConfig()
	cfg.Granularity = "5m"
	_, err := NewBacktester(&fakeBars{}, twoTierGen(t), cfg)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

type windowBars struct {
	calls [][2]time.Time
	err   error
}

// Bars returns one daily bar per day of the window.
func (w *windowBars) Bars(_ context.Context, _ string, from, to time.Time, _ models.Granularity) ([]models.PriceBar, error) {
	w.calls = append(w.calls, [2]time.Time{from, to})
	if w.err != nil {
		return nil, w.err
	}
	var out []models.PriceBar
	for ts := from; ts.Before(to); ts = ts.AddDate(0, 0, 1) {
		out = append(out, models.PriceBar{Timestamp: ts, Open: 1, High: 1, Low: 1, Close: 1})
	}
	return out, nil
}

type fakeSink struct {
	stored []models.PriceBar
	err    error
}

func (f *fakeSink) StoreBars(_ context.Context, _ string, _ models.Granularity, bars []models.PriceBar) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, bars...)
	return nil
}

func TestIngester_CopiesInChunks(t *testing.T) {
	src := &windowBars{}
	sink := &fakeSink{}
	ing, err := NewIngester(src, sink, time.UTC, WithIngestChunkDays(3))
	require.NoError(t, err)

	res, err := ing.Run(context.Background(), IngestParams{
		Symbol:      "BTCUSDT",
		Range:       models.DateRange{Start: day(1), End: day(7)},
		Granularity: models.Daily,
	})
	require.NoError(t, err)
	assert.Equal(t, IngestResult{Bars: 7, Chunks: 3}, res)
	require.Len(t, src.calls, 3)
	assert.Equal(t, [2]time.Time{day(1), day(4)}, src.calls[0])
	assert.Equal(t, [2]time.Time{day(7), day(8)}, src.calls[2])
	require.Len(t, sink.stored, 7)
	assert.Equal(t, day(7), sink.stored[6].Timestamp)
}

func TestIngester_Errors(t *testing.T) {
	_, err := NewIngester(&windowBars{}, nil, time.UTC)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	m := newFakeMetrics()
	ing, err := NewIngester(&windowBars{}, &fakeSink{err: errors.New("disk full")}, time.UTC, WithIngestMetrics(m))
	require.NoError(t, err)
	_, err = ing.Run(context.Background(), IngestParams{Symbol: "BTCUSDT", Range: models.DateRange{Start: day(1), End: day(2)}})
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, m.counts["err:ingest_store"])

	_, err = ing.Run(context.Background(), IngestParams{Symbol: "BTCUSDT", Range: models.DateRange{Start: day(2), End: day(1)}})
	assert.ErrorIs(t, err, models.ErrInvalidRange)
}
