package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoSign/internal/domain/models"
	"CryptoSign/pkg/config"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	c, err := config.Default()
	require.NoError(t, err)
	return c
}

func TestProvideSignalConfig_Defaults(t *testing.T) {
	sc, err := ProvideSignalConfig(defaultConfig(t))
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSignalConfig().Fingerprint(), sc.Fingerprint())
}

func TestProvideSignalConfig_RuleDefaultsAndOverrides(t *testing.T) {
	c := defaultConfig(t)
	c.Signals.Rule = "two_tier"
	c.Signals.Timezone = "America/New_York"
	off := false
	c.Signals.PreserveMasters = &off
	c.Signals.DipHours = []int{7}

	sc, err := ProvideSignalConfig(c)
	require.NoError(t, err)
	assert.Equal(t, models.RuleTwoTier, sc.Rule)
	assert.Equal(t, models.MustCodeSet(3, 5, 7, 9), sc.HighDays)
	assert.Equal(t, models.MustCodeSet(6, 8), sc.LowDays)
	assert.Equal(t, models.MustCodeSet(7), sc.DipHours)
	assert.Equal(t, models.MustCodeSet(3, 6, 9), sc.PeakHours)
	assert.False(t, sc.PreserveMasters)
	assert.Equal(t, "America/New_York", sc.Location.String())
}

func TestProvideSignalConfig_Errors(t *testing.T) {
	c := defaultConfig(t)
	c.Signals.HighDays = []int{10}
	_, err := ProvideSignalConfig(c)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	c = defaultConfig(t)
	c.Signals.LowDays = []int{1, 2}
	_, err = ProvideSignalConfig(c)
	assert.ErrorIs(t, err, models.ErrConfiguration, "1 is also a default high day")

	c = defaultConfig(t)
	c.Signals.PeakHours = []int{7}
	_, err = ProvideSignalConfig(c)
	assert.ErrorContains(t, err, "overlap")
}

func TestProvideBacktestConfig(t *testing.T) {
	c := defaultConfig(t)
	bc, err := ProvideBacktestConfig(c)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBacktestConfig(), bc)

	c.Backtest.Mode = "bracket"
	c.Backtest.StopLossPct = 0
	_, err = ProvideBacktestConfig(c)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestProvideBarSource(t *testing.T) {
	c := defaultConfig(t)
	src, err := ProvideBarSource(c, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, src)

	c.Market.Source = "clickhouse"
	_, err = ProvideBarSource(c, nil, nil)
	assert.ErrorContains(t, err, "clickhouse is disabled")
}

func TestDisabledBackendsAreNilInterfaces(t *testing.T) {
	c := defaultConfig(t)
	assert.Nil(t, ProvideSignalPublisher(nil, c))
	assert.Nil(t, ProvideLedgerStore(nil, c))
	assert.Nil(t, ProvideBarSink(nil, c, nil))

	_, err := ProvideIngester(c, nil, models.DefaultSignalConfig(), nil, nil)
	assert.ErrorContains(t, err, "clickhouse is disabled")

	ch, cleanup, err := ProvideClickHouseClient(c)
	require.NoError(t, err)
	assert.Nil(t, ch)
	cleanup()
}
