package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cryptosign",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of signal API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cryptosign",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by signal API endpoint and code",
		},
		[]string{"endpoint", "code"},
	)

	RangeDays = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cryptosign",
			Subsystem: "api",
			Name:      "range_days",
			Help:      "Requested calendar range length in days",
			Buckets:   []float64{1, 7, 14, 30, 90, 180, 366},
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, RangeDays)
	})
}

// ObserveSince records the latency of endpoint from start.
func ObserveSince(endpoint string, start time.Time) {
	APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
