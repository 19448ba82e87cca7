package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordTrade("bracket", "SHORT", "take_profit")
	r.RecordTrade("bracket", "SHORT", "take_profit")
	r.RecordSkipped("missing_price_data", 3)
	r.RecordSkipped("incomplete_bar", 0)
	r.RecordCache(true)
	r.RecordCache(false)
	r.RecordCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.trades.WithLabelValues("bracket", "SHORT", "take_profit")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.skipped.WithLabelValues("missing_price_data")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.skipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cache.WithLabelValues("miss")))
}
