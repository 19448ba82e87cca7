// Package performance aggregates a trade ledger into summary statistics.
package performance

import (
	"cmp"
	"slices"

	"CryptoSign/internal/domain/models"
)

type groupKey struct {
	class models.DayClassification
	dir   models.Direction
}

// Summarize computes win rate, returns, compounded equity and drawdown over trades,
// which must be in ledger (exit time) order. An empty ledger yields a zero Summary.
func Summarize(trades []models.Trade) models.Summary {
	s := models.Summary{
		TotalTrades: len(trades),
		Equity:      make([]models.EquityPoint, 0, len(trades)),
		Breakdown:   []models.GroupStats{},
	}
	if len(trades) == 0 {
		return s
	}

	groups := map[groupKey]*models.GroupStats{}
	var sum, equity, runMax float64
	for _, t := range trades {
		sum += t.Return
		if t.Win() {
			s.Wins++
		}

		equity = (1+equity)*(1+t.Return) - 1
		runMax = max(runMax, equity)
		dd := (equity - runMax) / (1 + runMax)
		s.MaxDrawdown = min(s.MaxDrawdown, dd)
		s.Equity = append(s.Equity, models.EquityPoint{Time: t.ExitTime, Equity: equity, Drawdown: dd})

		k := groupKey{t.Classification, t.Direction}
		g, ok := groups[k]
		if !ok {
			g = &models.GroupStats{Classification: k.class, Direction: k.dir}
			groups[k] = g
		}
		g.Count++
		g.TotalReturn += t.Return
		if t.Win() {
			g.Wins++
		}
	}

	n := float64(len(trades))
	s.Losses = s.TotalTrades - s.Wins
	s.WinRate = float64(s.Wins) / n
	s.MeanReturn = sum / n
	s.CumulativeReturn = equity

	for _, g := range groups {
		g.WinRate = float64(g.Wins) / float64(g.Count)
		g.MeanReturn = g.TotalReturn / float64(g.Count)
		s.Breakdown = append(s.Breakdown, *g)
	}
	slices.SortFunc(s.Breakdown, func(a, b models.GroupStats) int {
		if c := cmp.Compare(a.Classification, b.Classification); c != 0 {
			return c
		}
		return cmp.Compare(a.Direction, b.Direction)
	})
	return s
}
