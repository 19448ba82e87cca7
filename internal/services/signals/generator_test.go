package signals

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoSign/internal/domain/models"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func hoursOf(hs []models.HourSignal) []int {
	out := make([]int, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.Hour)
	}
	return out
}

func newGenerator(t *testing.T, rule models.ClassificationRule) *Generator {
	t.Helper()
	g, err := New(models.DefaultSignalConfig().WithRule(rule))
	require.NoError(t, err)
	return g
}

func TestGenerator_ReferenceDate(t *testing.T) {
	g := newGenerator(t, models.RuleTwoTier)

	recs, err := g.Generate(models.DateRange{Start: day(7), End: day(7)})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, models.DayHigh, rec.Classification)
	assert.Equal(t, models.DateCode{DayCode: 7, FullCode: 9, AnchoredCode: 4}, rec.Codes)
	assert.Equal(t, []int{0, 3, 6, 9, 12, 15, 18, 20, 23}, hoursOf(rec.PeakHours))
	assert.Equal(t, []int{4, 8, 16, 19}, hoursOf(rec.DipHours))
	assert.Equal(t, "12am", rec.PeakHours[0].Label)
	assert.Equal(t, "8pm", rec.PeakHours[7].Label)

	dir, hours, ok := rec.Signal()
	require.True(t, ok)
	assert.Equal(t, models.Short, dir)
	assert.Len(t, hours, 9)
}

func TestGenerator_Classification(t *testing.T) {
	twoTier := newGenerator(t, models.RuleTwoTier)
	membership := newGenerator(t, models.RuleMembership)

	want := map[int][2]models.DayClassification{
		6:  {models.DayLow, models.DayLow},
		7:  {models.DayHigh, models.DayHigh},
		8:  {models.DayLow, models.DayHigh},
		9:  {models.DayHigh, models.DayLow},
		10: {models.DayHigh, models.DayHigh},
		11: {models.DayNone, models.DayLow},
		12: {models.DayHigh, models.DayHigh},
		13: {models.DayLow, models.DayHigh},
	}
	for d, w := range want {
		assert.Equalf(t, w[0], twoTier.Classify(day(d)), "two_tier 2024-03-%02d", d)
		assert.Equalf(t, w[1], membership.Classify(day(d)), "membership 2024-03-%02d", d)
	}
}

func TestGenerator_HourLists(t *testing.T) {
	g := newGenerator(t, models.RuleMembership)

	rec := g.Record(day(8))
	assert.Equal(t, []int{2, 5, 8, 11, 14, 17, 19, 22}, hoursOf(rec.PeakHours))
	assert.Equal(t, []int{0, 3, 7, 12, 15, 23}, hoursOf(rec.DipHours))

	rec = g.Record(day(11))
	assert.Equal(t, []int{4, 9, 16, 20}, hoursOf(rec.DipHours))
	dir, hours, ok := rec.Signal()
	require.True(t, ok)
	assert.Equal(t, models.Long, dir)
	assert.Equal(t, []int{4, 9, 16, 20}, hoursOf(hours))
}

func TestGenerator_RecordsOrderAndRestart(t *testing.T) {
	g := newGenerator(t, models.RuleMembership)
	rng := models.DateRange{Start: day(6), End: day(14)}

	seq, err := g.Records(rng)
	require.NoError(t, err)

	var first, second []models.SignalRecord
	for r := range seq {
		first = append(first, r)
	}
	for r := range seq {
		second = append(second, r)
	}
	require.Len(t, first, 9)
	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i].Date.After(first[i-1].Date))
	}

	again, err := g.Generate(rng)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestGenerator_EarlyBreak(t *testing.T) {
	g := newGenerator(t, models.RuleMembership)
	seq, err := g.Records(models.DateRange{Start: day(1), End: day(31)})
	require.NoError(t, err)
	n := 0
	for range seq {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestGenerator_InvalidRange(t *testing.T) {
	g := newGenerator(t, models.RuleMembership)
	seq, err := g.Records(models.DateRange{Start: day(8), End: day(7)})
	assert.ErrorIs(t, err, models.ErrInvalidRange)
	assert.Nil(t, seq)

	_, err = g.Generate(models.DateRange{Start: day(8), End: day(7)})
	assert.ErrorIs(t, err, models.ErrInvalidRange)
}

func TestGenerator_NextDate(t *testing.T) {
	g := newGenerator(t, models.RuleTwoTier)

	got, ok := g.NextDate(day(7), models.DayLow, day(20))
	require.True(t, ok)
	assert.Equal(t, day(8), got)

	got, ok = g.NextDate(day(8), models.DayHigh, day(20))
	require.True(t, ok)
	assert.Equal(t, day(9), got)

	// strictly after: the start date itself never matches
	got, ok = g.NextDate(day(6), models.DayLow, day(20))
	require.True(t, ok)
	assert.Equal(t, day(8), got)

	_, ok = g.NextDate(day(11), models.DayNone, day(11))
	assert.False(t, ok)
}

func TestGenerator_HourBucket(t *testing.T) {
	g := newGenerator(t, models.RuleMembership)

	b, code := g.HourBucket(time.Date(2024, 3, 7, 4, 30, 0, 0, time.UTC))
	assert.Equal(t, models.HourDip, b)
	assert.Equal(t, 7, code)

	b, code = g.HourBucket(time.Date(2024, 3, 7, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, models.HourPeak, b)
	assert.Equal(t, 3, code)
}

func TestGenerator_HourSignalsAcrossSpringForward(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	cfg := models.DefaultSignalConfig()
	cfg.Location = berlin
	g, err := New(cfg)
	require.NoError(t, err)

	hs := g.HourSignals(time.Date(2024, 3, 31, 0, 0, 0, 0, berlin))
	require.Len(t, hs, 24)
	for h, s := range hs {
		assert.Equal(t, h, s.Hour)
	}
	assert.Equal(t, 11, hs[2].Code)
	assert.Equal(t, models.HourDip, hs[2].Bucket)
	assert.Equal(t, 3, hs[3].Code)

	rec := g.Record(time.Date(2024, 3, 31, 0, 0, 0, 0, berlin))
	assert.Contains(t, hoursOf(rec.DipHours), 2)
}

func TestGenerator_RejectsBadConfig(t *testing.T) {
	cfg := models.DefaultSignalConfig()
	cfg.PeakHours = models.MustCodeSet(3, 7)
	_, err := New(cfg)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
