package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signals   *prometheus.CounterVec
	trades    *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	published *prometheus.CounterVec
	cache     *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// New creates a recorder on the default Prometheus registry.
func New() *Recorder { return NewWithRegistry(prometheus.DefaultRegisterer) }

// NewWithRegistry creates a recorder on reg, e.g. a fresh registry in tests.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptosign_signal_records_total",
				Help: "Signal records generated, by day classification",
			},
			[]string{"rule", "classification"},
		),
		trades: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptosign_trades_total",
				Help: "Closed trades produced by backtests",
			},
			[]string{"mode", "direction", "exit_reason"},
		),
		skipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptosign_backtest_skipped_total",
				Help: "Signal slots skipped by backtests (missing_price_data, incomplete_bar)",
			},
			[]string{"kind"},
		),
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptosign_messages_published_total",
				Help: "Messages published to the broker",
			},
			[]string{"topic"},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptosign_calendar_cache_total",
				Help: "Signal calendar cache lookups",
			},
			[]string{"result"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptosign_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptosign_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal counts one generated record.
func (r *Recorder) RecordSignal(rule, classification string) {
	r.signals.WithLabelValues(rule, classification).Inc()
}

// RecordTrade counts one closed trade.
func (r *Recorder) RecordTrade(mode, direction, exitReason string) {
	r.trades.WithLabelValues(mode, direction, exitReason).Inc()
}

// RecordSkipped adds n skipped slots of a kind.
func (r *Recorder) RecordSkipped(kind string, n int) {
	if n > 0 {
		r.skipped.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordPublished counts a message sent to a topic.
func (r *Recorder) RecordPublished(topic string) {
	r.published.WithLabelValues(topic).Inc()
}

// RecordCache counts a cache hit or miss.
func (r *Recorder) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
