// Package backtest replays the signal calendar against price bars.
package backtest

import (
	"cmp"
	"iter"
	"slices"
	"time"

	"CryptoSign/internal/domain/models"
	domsvc "CryptoSign/internal/domain/service"
)

// Simulator turns signal records and bars into a trade ledger.
// It keeps no state between runs and is safe for concurrent use.
type Simulator struct {
	cfg models.BacktestConfig
	src domsvc.SignalSource
}

// NewSimulator validates cfg and binds the signal source.
func NewSimulator(cfg models.BacktestConfig, src domsvc.SignalSource) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, models.NewConfigError("signals", "signal source is required")
	}
	return &Simulator{cfg: cfg, src: src}, nil
}

func (s *Simulator) Config() models.BacktestConfig { return s.cfg }

// Run replays bars over rng. Bars must be sorted by timestamp without duplicates.
// Entries are taken only from bars dated inside rng; later bars still serve exits.
func (s *Simulator) Run(rng models.DateRange, bars iter.Seq[models.PriceBar]) (models.BacktestResult, error) {
	if err := rng.Validate(); err != nil {
		return models.BacktestResult{}, err
	}
	r := &run{
		Simulator: s,
		rng:       rng,
		loc:       s.src.Location(),
		open:      map[models.Direction][]models.Position{},
		seen:      map[int64]struct{}{},
	}
	r.start = civilIn(rng.Start, r.loc)
	r.end = civilIn(rng.End, r.loc)

	for w := range Pairwise(bars) {
		r.step(w)
	}
	return r.finish(), nil
}

// RunSlice is Run over a slice of bars.
func (s *Simulator) RunSlice(rng models.DateRange, bars []models.PriceBar) (models.BacktestResult, error) {
	return s.Run(rng, slices.Values(bars))
}

type run struct {
	*Simulator
	rng        models.DateRange
	loc        *time.Location
	start, end time.Time

	day time.Time
	rec models.SignalRecord

	open   map[models.Direction][]models.Position
	trades []models.Trade
	seen   map[int64]struct{}

	incomplete int
}

func civilIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (r *run) slotKey(ts time.Time) int64 {
	ts = ts.In(r.loc)
	if r.cfg.Granularity == models.Daily {
		return models.CivilDate(ts).Unix()
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, r.loc).Unix()
}

func (r *run) record(date time.Time) models.SignalRecord {
	if !date.Equal(r.day) {
		r.day, r.rec = date, r.src.Record(date)
	}
	return r.rec
}

func (r *run) step(w Window[models.PriceBar]) {
	bar := w.Current
	ts := bar.Timestamp.In(r.loc)
	date := models.CivilDate(ts)
	r.seen[r.slotKey(ts)] = struct{}{}

	if r.cfg.Mode == models.ModeHeld {
		r.closeOverdue(bar, date)
	}

	if !date.Before(r.start) && !date.After(r.end) {
		if dir, code, ok := r.entrySignal(ts, r.record(date)); ok {
			switch r.cfg.Mode {
			case models.ModeSimple:
				r.exitNext(w, r.position(bar, dir, code))
			case models.ModeBracket:
				r.bracket(w, r.position(bar, dir, code))
			case models.ModeHeld:
				r.hold(bar, date, dir, code)
			}
		}
	}

	if r.cfg.Mode == models.ModeHeld {
		r.closeScheduled(w, ts, date)
	}
}

// entrySignal decides whether the bar opens a position. Hourly bars need the bar's
// hour in the bucket matching the day; daily bars need any such hour on the day.
func (r *run) entrySignal(ts time.Time, rec models.SignalRecord) (models.Direction, int, bool) {
	if r.cfg.Granularity == models.Daily {
		dir, _, ok := rec.Signal()
		return dir, 0, ok
	}
	bucket, code := r.src.HourBucket(ts)
	switch {
	case rec.Classification == models.DayHigh && bucket == models.HourPeak:
		return models.Short, code, true
	case rec.Classification == models.DayLow && bucket == models.HourDip:
		return models.Long, code, true
	default:
		return "", 0, false
	}
}

// Hourly entries buy at the low and sell at the high; daily entries use the close.
// Brackets always enter at the extreme of the signal bar.
func (r *run) entryPrice(bar models.PriceBar, dir models.Direction) float64 {
	if r.cfg.Mode == models.ModeBracket || r.cfg.Granularity == models.Hourly {
		if dir == models.Long {
			return bar.Low
		}
		return bar.High
	}
	return bar.Close
}

// exitPrice is the representative price for closing dir: a sell for longs, a buy for shorts.
func (r *run) exitPrice(bar models.PriceBar, dir models.Direction) float64 {
	if r.cfg.Granularity == models.Hourly {
		if dir == models.Long {
			return bar.High
		}
		return bar.Low
	}
	return bar.Close
}

func (r *run) position(bar models.PriceBar, dir models.Direction, code int) models.Position {
	return models.Position{
		Direction:      dir,
		Classification: r.rec.Classification,
		HourCode:       code,
		EntryTime:      bar.Timestamp,
		EntryPrice:     r.entryPrice(bar, dir),
	}
}

func (r *run) close(p models.Position, bar models.PriceBar, price float64, reason models.ExitReason) {
	gross := price/p.EntryPrice - 1
	if p.Direction == models.Short {
		gross = (p.EntryPrice - price) / p.EntryPrice
	}
	r.trades = append(r.trades, models.Trade{
		Position:    p,
		ExitTime:    bar.Timestamp,
		ExitPrice:   price,
		ExitReason:  reason,
		GrossReturn: gross,
		Return:      gross - 2*r.cfg.FeePct,
		Holding:     bar.Timestamp.Sub(p.EntryTime),
	})
}

func (r *run) exitNext(w Window[models.PriceBar], p models.Position) {
	if !w.HasNext {
		r.incomplete++
		return
	}
	r.close(p, w.Next, w.Next.Close, models.ExitNextClose)
}

// bracket evaluates take profit first, then stop loss, then the next close.
func (r *run) bracket(w Window[models.PriceBar], p models.Position) {
	if !w.HasNext {
		r.incomplete++
		return
	}
	next := w.Next
	if p.Direction == models.Long {
		p.TakeProfit = p.EntryPrice * (1 + r.cfg.TakeProfitPct)
		p.StopLoss = p.EntryPrice * (1 - r.cfg.StopLossPct)
		switch {
		case next.High >= p.TakeProfit:
			r.close(p, next, p.TakeProfit, models.ExitTakeProfit)
		case next.Low <= p.StopLoss:
			r.close(p, next, p.StopLoss, models.ExitStopLoss)
		default:
			r.close(p, next, next.Close, models.ExitNextClose)
		}
		return
	}
	p.TakeProfit = p.EntryPrice * (1 - r.cfg.TakeProfitPct)
	p.StopLoss = p.EntryPrice * (1 + r.cfg.StopLossPct)
	switch {
	case next.Low <= p.TakeProfit:
		r.close(p, next, p.TakeProfit, models.ExitTakeProfit)
	case next.High >= p.StopLoss:
		r.close(p, next, p.StopLoss, models.ExitStopLoss)
	default:
		r.close(p, next, next.Close, models.ExitNextClose)
	}
}

func oppositeClass(dir models.Direction) models.DayClassification {
	if dir == models.Long {
		return models.DayHigh
	}
	return models.DayLow
}

func oppositeBucket(dir models.Direction) models.HourBucket {
	if dir == models.Long {
		return models.HourPeak
	}
	return models.HourDip
}

// hold opens a held position. Under flush_all the entry first closes the other track.
func (r *run) hold(bar models.PriceBar, date time.Time, dir models.Direction, code int) {
	if r.cfg.FlushPolicy == models.FlushAll {
		other := dir.Opposite()
		for _, p := range r.open[other] {
			r.close(p, bar, r.exitPrice(bar, other), models.ExitFlush)
		}
		r.open[other] = nil
	}
	p := r.position(bar, dir, code)
	if exit, ok := r.src.NextDate(date, oppositeClass(dir), r.end); ok {
		p.ExitDate = exit
	}
	r.open[dir] = append(r.open[dir], p)
}

// closeOverdue closes positions whose exit date had no bars at the close of the first later bar.
func (r *run) closeOverdue(bar models.PriceBar, date time.Time) {
	for _, dir := range []models.Direction{models.Long, models.Short} {
		r.open[dir] = slices.DeleteFunc(r.open[dir], func(p models.Position) bool {
			if p.ExitDate.IsZero() || !date.After(p.ExitDate) {
				return false
			}
			r.close(p, bar, bar.Close, models.ExitScheduled)
			return true
		})
	}
}

// closeScheduled closes positions due on this bar's date. Under scheduled_only the first
// opposite-bucket bar of the date closes them; otherwise the last bar of the date does.
func (r *run) closeScheduled(w Window[models.PriceBar], ts, date time.Time) {
	bar := w.Current
	lastOfDay := !w.HasNext || models.CivilDate(w.Next.Timestamp.In(r.loc)).After(date)
	for _, dir := range []models.Direction{models.Long, models.Short} {
		r.open[dir] = slices.DeleteFunc(r.open[dir], func(p models.Position) bool {
			if p.ExitDate.IsZero() || !date.Equal(p.ExitDate) {
				return false
			}
			if r.cfg.FlushPolicy == models.FlushScheduled && r.isExitBar(ts, dir) {
				r.close(p, bar, r.exitPrice(bar, dir), models.ExitScheduled)
				return true
			}
			if lastOfDay {
				r.close(p, bar, bar.Close, models.ExitScheduled)
				return true
			}
			return false
		})
	}
}

func (r *run) isExitBar(ts time.Time, dir models.Direction) bool {
	if r.cfg.Granularity == models.Daily {
		return true
	}
	bucket, _ := r.src.HourBucket(ts)
	return bucket == oppositeBucket(dir)
}

// missing counts signal slots in the range that no bar covered.
func (r *run) missing() int {
	seq, err := r.src.Records(r.rng)
	if err != nil {
		return 0
	}
	n := 0
	for rec := range seq {
		_, hours, ok := rec.Signal()
		if !ok {
			continue
		}
		y, m, d := rec.Date.Date()
		if r.cfg.Granularity == models.Daily {
			if _, hit := r.seen[time.Date(y, m, d, 0, 0, 0, 0, r.loc).Unix()]; !hit {
				n++
			}
			continue
		}
		for _, h := range hours {
			if _, hit := r.seen[time.Date(y, m, d, h.Hour, 0, 0, 0, r.loc).Unix()]; !hit {
				n++
			}
		}
	}
	return n
}

func (r *run) finish() models.BacktestResult {
	slices.SortStableFunc(r.trades, func(a, b models.Trade) int {
		if c := a.ExitTime.Compare(b.ExitTime); c != 0 {
			return c
		}
		if c := a.EntryTime.Compare(b.EntryTime); c != 0 {
			return c
		}
		return cmp.Compare(a.Direction, b.Direction)
	})
	open := append(append([]models.Position{}, r.open[models.Long]...), r.open[models.Short]...)
	slices.SortStableFunc(open, func(a, b models.Position) int {
		return a.EntryTime.Compare(b.EntryTime)
	})
	if r.trades == nil {
		r.trades = []models.Trade{}
	}
	return models.BacktestResult{
		Trades:           r.trades,
		Open:             open,
		MissingPriceData: r.missing(),
		IncompleteBars:   r.incomplete,
	}
}
