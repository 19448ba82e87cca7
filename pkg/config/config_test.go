package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "membership", c.Signals.Rule)
	assert.Equal(t, 18, c.Signals.AnchorHour)
	assert.Equal(t, 15, c.Signals.AnchorMinute)
	assert.Equal(t, 3, c.Signals.OffsetC1)
	assert.Equal(t, 1, c.Signals.OffsetC2)
	assert.Nil(t, c.Signals.PreserveMasters)
	assert.Equal(t, "bracket", c.Backtest.Mode)
	assert.Equal(t, 0.01, c.Backtest.TakeProfitPct)
	assert.Equal(t, "binance", c.Market.Source)
	assert.Equal(t, 6*time.Hour, c.Cache.TTL)
	assert.Equal(t, time.Date(2009, 1, 4, 0, 0, 0, 0, time.UTC), c.EarliestDate())
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
signals:
  rule: two_tier
  timezone: Asia/Tokyo
  preserve_masters: false
  peak_hours: [3, 9]
backtest:
  mode: held
  flush_policy: scheduled_only
kafka:
  enabled: true
  brokers: ["localhost:9092"]
`))
	require.NoError(t, err)
	assert.Equal(t, "two_tier", c.Signals.Rule)
	assert.Equal(t, "Asia/Tokyo", c.Signals.Timezone)
	require.NotNil(t, c.Signals.PreserveMasters)
	assert.False(t, *c.Signals.PreserveMasters)
	assert.Equal(t, []int{3, 9}, c.Signals.PeakHours)
	assert.Equal(t, "scheduled_only", c.Backtest.FlushPolicy)
	assert.Equal(t, "cryptosign.signals", c.Kafka.SignalsTopic, "untouched fields keep defaults")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"rule", "signals:\n  rule: lunar\n", "Rule"},
		{"anchor", "signals:\n  anchor_hour: 24\n", "AnchorHour"},
		{"mode", "backtest:\n  mode: swing\n", "Mode"},
		{"timezone", "signals:\n  timezone: Mars/Olympus\n", "signals.timezone"},
		{"kafka brokers", "kafka:\n  enabled: true\n", "kafka.brokers"},
		{"csv path", "market:\n  source: csv\n", "csv_path"},
		{"clickhouse source", "market:\n  source: clickhouse\n", "clickhouse.enabled"},
		{"earliest date", "api:\n  earliest_date: 2009/01/04\n", "EarliestDate"},
		{"syntax", "signals: [", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o600))

	t.Setenv("SIGNALS_RULE", "two_tier")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("BACKTEST_MODE", "simple")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, "two_tier", c.Signals.Rule)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Cache.Redis.Enabled)
	assert.Equal(t, "cache:6379", c.Cache.Redis.Addr)
	assert.Equal(t, "simple", c.Backtest.Mode)

	t.Setenv("BACKTEST_MODE", "swing")
	_, err = LoadWithEnv(path)
	assert.Error(t, err)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
