package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoSign/internal/domain/models"
)

func trade(h int, class models.DayClassification, dir models.Direction, ret float64) models.Trade {
	exit := time.Date(2024, 3, 7, h, 0, 0, 0, time.UTC)
	return models.Trade{
		Position: models.Position{Direction: dir, Classification: class, EntryTime: exit.Add(-time.Hour)},
		ExitTime: exit,
		Return:   ret,
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TotalTrades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.MeanReturn)
	assert.Zero(t, s.CumulativeReturn)
	assert.Zero(t, s.MaxDrawdown)
	assert.Empty(t, s.Equity)
	assert.Empty(t, s.Breakdown)
}

func TestSummarize(t *testing.T) {
	trades := []models.Trade{
		trade(1, models.DayHigh, models.Short, 0.10),
		trade(2, models.DayHigh, models.Short, -0.20),
		trade(3, models.DayLow, models.Long, 0.05),
		trade(4, models.DayHigh, models.Short, 0.0),
	}
	s := Summarize(trades)

	assert.Equal(t, 4, s.TotalTrades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.InDelta(t, 0.5, s.WinRate, 1e-12)
	assert.InDelta(t, -0.0125, s.MeanReturn, 1e-12)

	// 1.1 * 0.8 * 1.05 = 0.924
	assert.InDelta(t, -0.076, s.CumulativeReturn, 1e-12)
	// peak 0.10, trough 0.88-1: (-0.12-0.10)/1.10
	assert.InDelta(t, -0.2, s.MaxDrawdown, 1e-12)

	require.Len(t, s.Equity, 4)
	assert.InDelta(t, 0.10, s.Equity[0].Equity, 1e-12)
	assert.InDelta(t, -0.12, s.Equity[1].Equity, 1e-12)
	assert.Equal(t, trades[3].ExitTime, s.Equity[3].Time)

	require.Len(t, s.Breakdown, 2)
	high := s.Breakdown[0]
	assert.Equal(t, models.DayHigh, high.Classification)
	assert.Equal(t, models.Short, high.Direction)
	assert.Equal(t, 3, high.Count)
	assert.Equal(t, 1, high.Wins)
	assert.InDelta(t, 1.0/3, high.WinRate, 1e-12)
	assert.InDelta(t, -0.1/3, high.MeanReturn, 1e-12)

	low := s.Breakdown[1]
	assert.Equal(t, models.DayLow, low.Classification)
	assert.Equal(t, models.Long, low.Direction)
	assert.Equal(t, 1, low.Count)
	assert.InDelta(t, 1.0, low.WinRate, 1e-12)
}

func TestSummarize_MonotoneGainsHaveNoDrawdown(t *testing.T) {
	s := Summarize([]models.Trade{
		trade(1, models.DayLow, models.Long, 0.0084),
		trade(2, models.DayLow, models.Long, 0.0084),
	})
	assert.Zero(t, s.MaxDrawdown)
	assert.InDelta(t, 1.0084*1.0084-1, s.CumulativeReturn, 1e-12)
}
