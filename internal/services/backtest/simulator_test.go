package backtest

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoSign/internal/domain/models"
	"CryptoSign/internal/services/signals"
)

func at(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }

func day(d int) time.Time { return at(d, 0) }

func bar(ts time.Time, o, h, l, c float64) models.PriceBar {
	return models.PriceBar{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: 1}
}

func newSim(t *testing.T, rule models.ClassificationRule, mutate func(*models.BacktestConfig)) *Simulator {
	t.Helper()
	gen, err := signals.New(models.DefaultSignalConfig().WithRule(rule))
	require.NoError(t, err)
	cfg := models.DefaultBacktestConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	sim, err := NewSimulator(cfg, gen)
	require.NoError(t, err)
	return sim
}

func TestBracket_ShortTakeProfit(t *testing.T) {
	sim := newSim(t, models.RuleTwoTier, nil)
	bars := []models.PriceBar{
		bar(at(7, 9), 100, 101, 99, 100.5), // peak hour on a High day
		bar(at(7, 10), 100.5, 100.8, 99.5, 99.8),
	}

	res, err := sim.RunSlice(models.DateRange{Start: day(7), End: day(7)}, bars)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, models.Short, tr.Direction)
	assert.Equal(t, models.DayHigh, tr.Classification)
	assert.Equal(t, 3, tr.HourCode)
	assert.Equal(t, models.ExitTakeProfit, tr.ExitReason)
	assert.InDelta(t, 101.0, tr.EntryPrice, 1e-12)
	assert.InDelta(t, 99.99, tr.ExitPrice, 1e-9)
	assert.InDelta(t, 0.01, tr.GrossReturn, 1e-12)
	assert.InDelta(t, 0.0084, tr.Return, 1e-12)
	assert.Equal(t, time.Hour, tr.Holding)
	assert.Empty(t, res.Open)
	assert.Zero(t, res.IncompleteBars)
	// 9 peak hours on the day, one of them has a bar
	assert.Equal(t, 8, res.MissingPriceData)
}

func TestBracket_ExitRules(t *testing.T) {
	entry := bar(at(7, 9), 100, 100, 99, 99.5) // short at 100: TP 99, SL 100.5
	tests := []struct {
		name   string
		next   models.PriceBar
		reason models.ExitReason
		ret    float64
	}{
		{"take profit", bar(at(7, 10), 99.5, 99.8, 98.9, 99.2), models.ExitTakeProfit, 0.01 - 0.0016},
		{"stop loss", bar(at(7, 10), 100, 100.6, 99.5, 100.2), models.ExitStopLoss, -0.005 - 0.0016},
		{"both touched takes profit", bar(at(7, 10), 100, 100.7, 98.8, 99.9), models.ExitTakeProfit, 0.01 - 0.0016},
		{"next close", bar(at(7, 10), 100, 100.2, 99.6, 99.8), models.ExitNextClose, 0.002 - 0.0016},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newSim(t, models.RuleTwoTier, nil)
			res, err := sim.RunSlice(models.DateRange{Start: day(7), End: day(7)}, []models.PriceBar{entry, tt.next})
			require.NoError(t, err)
			require.Len(t, res.Trades, 1)
			assert.Equal(t, tt.reason, res.Trades[0].ExitReason)
			assert.InDelta(t, tt.ret, res.Trades[0].Return, 1e-9)
		})
	}
}

func TestBracket_LongOnLowDay(t *testing.T) {
	sim := newSim(t, models.RuleMembership, nil)
	bars := []models.PriceBar{
		bar(at(11, 4), 100.5, 101, 100, 100.8), // dip hour on a Low day
		bar(at(11, 5), 100.8, 101.2, 100.4, 101.1),
	}
	res, err := sim.RunSlice(models.DateRange{Start: day(11), End: day(11)}, bars)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, models.Long, tr.Direction)
	assert.Equal(t, models.DayLow, tr.Classification)
	assert.InDelta(t, 100.0, tr.EntryPrice, 1e-12)
	assert.InDelta(t, 101.0, tr.ExitPrice, 1e-9)
	assert.InDelta(t, 0.0084, tr.Return, 1e-9)
}

func TestBracket_LastBarIsIncomplete(t *testing.T) {
	sim := newSim(t, models.RuleTwoTier, nil)
	bars := []models.PriceBar{
		bar(at(7, 8), 100, 100.5, 99.5, 100),
		bar(at(7, 9), 100, 101, 99, 100.5),
	}
	res, err := sim.RunSlice(models.DateRange{Start: day(7), End: day(7)}, bars)
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.NotNil(t, res.Trades)
	assert.Equal(t, 1, res.IncompleteBars)
}

func TestSimple_HourlyExitAtNextClose(t *testing.T) {
	sim := newSim(t, models.RuleTwoTier, func(c *models.BacktestConfig) { c.Mode = models.ModeSimple })
	bars := []models.PriceBar{
		bar(at(7, 9), 100, 101, 99, 100.5),
		bar(at(7, 10), 100.5, 100.8, 90, 99.99),
	}
	res, err := sim.RunSlice(models.DateRange{Start: day(7), End: day(7)}, bars)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, models.ExitNextClose, tr.ExitReason)
	assert.InDelta(t, 99.99, tr.ExitPrice, 1e-12)
	assert.InDelta(t, 0.01-0.0016, tr.Return, 1e-9)
}

func dailyBars(from, to int) []models.PriceBar {
	var out []models.PriceBar
	for d := from; d <= to; d++ {
		c := float64(94 + d)
		out = append(out, bar(day(d), c, c+1, c-1, c))
	}
	return out
}

func TestHeld_FlushAll(t *testing.T) {
	sim := newSim(t, models.RuleMembership, func(c *models.BacktestConfig) {
		c.Mode = models.ModeHeld
		c.Granularity = models.Daily
		c.FlushPolicy = models.FlushAll
	})
	res, err := sim.RunSlice(models.DateRange{Start: day(6), End: day(14)}, dailyBars(6, 14))
	require.NoError(t, err)

	type leg struct {
		dir         models.Direction
		entry, exit int
	}
	want := []leg{
		{models.Long, 6, 7},
		{models.Short, 7, 9},
		{models.Short, 8, 9},
		{models.Long, 9, 10},
		{models.Short, 10, 11},
		{models.Long, 11, 12},
	}
	require.Len(t, res.Trades, len(want))
	for i, w := range want {
		tr := res.Trades[i]
		assert.Equal(t, w.dir, tr.Direction, "trade %d", i)
		assert.Equal(t, day(w.entry), tr.EntryTime, "trade %d", i)
		assert.Equal(t, day(w.exit), tr.ExitTime, "trade %d", i)
		assert.Equal(t, models.ExitFlush, tr.ExitReason)
		assert.InDelta(t, tr.GrossReturn-0.0016, tr.Return, 1e-12)
	}
	assert.InDelta(t, 0.01-0.0016, res.Trades[0].Return, 1e-9)

	// the last shorts never see a Low day inside the range
	require.Len(t, res.Open, 3)
	for _, p := range res.Open {
		assert.Equal(t, models.Short, p.Direction)
		assert.True(t, p.ExitDate.IsZero())
	}
	assert.Zero(t, res.MissingPriceData)
}

func TestHeld_ScheduledOnlyDaily(t *testing.T) {
	sim := newSim(t, models.RuleMembership, func(c *models.BacktestConfig) {
		c.Mode = models.ModeHeld
		c.Granularity = models.Daily
		c.FlushPolicy = models.FlushScheduled
	})
	res, err := sim.RunSlice(models.DateRange{Start: day(6), End: day(14)}, dailyBars(6, 14))
	require.NoError(t, err)
	require.Len(t, res.Trades, 6)
	for _, tr := range res.Trades {
		assert.Equal(t, models.ExitScheduled, tr.ExitReason)
		assert.True(t, tr.ExitTime.After(tr.EntryTime))
	}
	assert.Equal(t, day(7), res.Trades[0].ExitTime)
	assert.Len(t, res.Open, 3)
}

func TestHeld_ScheduledOnlyFallbacks(t *testing.T) {
	newHeld := func() *Simulator {
		return newSim(t, models.RuleMembership, func(c *models.BacktestConfig) {
			c.Mode = models.ModeHeld
			c.FlushPolicy = models.FlushScheduled
		})
	}
	rng := models.DateRange{Start: day(6), End: day(8)}

	t.Run("last bar of the exit date", func(t *testing.T) {
		bars := []models.PriceBar{
			bar(at(6, 5), 100, 100.5, 99, 100), // long at 99, exit date 03-07
			bar(at(7, 1), 100, 101, 99.5, 100.2),
			bar(at(7, 2), 100.2, 100.9, 99.8, 100.4),
			bar(at(8, 1), 100.4, 100.6, 100, 100.5),
		}
		res, err := newHeld().RunSlice(rng, bars)
		require.NoError(t, err)
		require.Len(t, res.Trades, 1)
		tr := res.Trades[0]
		assert.Equal(t, models.Long, tr.Direction)
		assert.Equal(t, day(7), tr.ExitDate)
		assert.Equal(t, at(7, 2), tr.ExitTime)
		assert.InDelta(t, 100.4, tr.ExitPrice, 1e-12)
		assert.Equal(t, models.ExitScheduled, tr.ExitReason)
	})

	t.Run("first peak bar of the exit date", func(t *testing.T) {
		bars := []models.PriceBar{
			bar(at(6, 5), 100, 100.5, 99, 100),
			bar(at(7, 0), 100, 101, 99.5, 100.2), // peak hour
			bar(at(7, 2), 100.2, 100.9, 99.8, 100.4),
		}
		res, err := newHeld().RunSlice(rng, bars)
		require.NoError(t, err)
		require.NotEmpty(t, res.Trades)
		tr := res.Trades[0]
		assert.Equal(t, models.Long, tr.Direction)
		assert.Equal(t, at(7, 0), tr.ExitTime)
		assert.InDelta(t, 101.0, tr.ExitPrice, 1e-12)
	})

	t.Run("exit date without bars", func(t *testing.T) {
		bars := []models.PriceBar{
			bar(at(6, 5), 100, 100.5, 99, 100),
			bar(at(8, 1), 100.4, 100.6, 100, 100.5),
		}
		res, err := newHeld().RunSlice(rng, bars)
		require.NoError(t, err)
		require.Len(t, res.Trades, 1)
		assert.Equal(t, at(8, 1), res.Trades[0].ExitTime)
		assert.InDelta(t, 100.5, res.Trades[0].ExitPrice, 1e-12)
	})
}

func TestRun_MissingDailyBars(t *testing.T) {
	sim := newSim(t, models.RuleMembership, func(c *models.BacktestConfig) {
		c.Mode = models.ModeSimple
		c.Granularity = models.Daily
	})
	bars := []models.PriceBar{bar(day(6), 100, 101, 99, 100), bar(day(8), 100, 101, 99, 102)}
	res, err := sim.RunSlice(models.DateRange{Start: day(6), End: day(8)}, bars)
	require.NoError(t, err)
	assert.Equal(t, 1, res.MissingPriceData)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, models.Long, res.Trades[0].Direction)
	assert.Equal(t, 1, res.IncompleteBars)
}

func TestRun_InvalidRange(t *testing.T) {
	sim := newSim(t, models.RuleMembership, nil)
	_, err := sim.RunSlice(models.DateRange{Start: day(9), End: day(8)}, nil)
	assert.ErrorIs(t, err, models.ErrInvalidRange)
}

func TestNewSimulator_Config(t *testing.T) {
	gen, err := signals.New(models.DefaultSignalConfig())
	require.NoError(t, err)

	cfg := models.DefaultBacktestConfig()
	cfg.Mode = "martingale"
	_, err = NewSimulator(cfg, gen)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = NewSimulator(models.DefaultBacktestConfig(), nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func randomWalk(seed int64, from time.Time, n int) []models.PriceBar {
	rnd := rand.New(rand.NewSource(seed))
	price := 60000.0
	out := make([]models.PriceBar, 0, n)
	for i := 0; i < n; i++ {
		if rnd.Intn(20) == 0 {
			continue // gap
		}
		o := price
		c := o * (1 + rnd.NormFloat64()*0.006)
		h := math.Max(o, c) * (1 + rnd.Float64()*0.004)
		l := math.Min(o, c) * (1 - rnd.Float64()*0.004)
		out = append(out, bar(from.Add(time.Duration(i)*time.Hour), o, h, l, c))
		price = c
	}
	return out
}

func TestLedgerInvariants(t *testing.T) {
	bars := randomWalk(7, day(1), 31*24)
	rng := models.DateRange{Start: day(1), End: day(31)}

	for _, mode := range []models.SimulationMode{models.ModeBracket, models.ModeSimple, models.ModeHeld} {
		for _, rule := range []models.ClassificationRule{models.RuleMembership, models.RuleTwoTier} {
			t.Run(string(mode)+"/"+string(rule), func(t *testing.T) {
				sim := newSim(t, rule, func(c *models.BacktestConfig) { c.Mode = mode })
				res, err := sim.RunSlice(rng, bars)
				require.NoError(t, err)
				require.NotEmpty(t, res.Trades)
				assert.Positive(t, res.MissingPriceData)

				cfg := sim.Config()
				bound := math.Max(cfg.TakeProfitPct, cfg.StopLossPct) + 2*cfg.FeePct + 1e-9
				for i, tr := range res.Trades {
					assert.True(t, tr.ExitTime.After(tr.EntryTime), "trade %d exits before entry", i)
					if mode == models.ModeBracket {
						assert.LessOrEqual(t, math.Abs(tr.Return), bound, "trade %d", i)
					}
					if i > 0 {
						assert.False(t, tr.ExitTime.Before(res.Trades[i-1].ExitTime), "ledger out of order at %d", i)
					}
				}

				again, err := sim.RunSlice(rng, bars)
				require.NoError(t, err)
				assert.Equal(t, res, again)
			})
		}
	}
}
