package repository

import (
	"time"

	"github.com/sony/gobreaker"
)

// newBreaker trips after 3 consecutive failures, or when more than 5% of at least
// 20 requests in a 60s window failed. It half-opens after 60s.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.ConsecutiveFailures >= 3 {
				return true
			}
			if c.Requests < 20 {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) > 0.05
		},
	}
	return gobreaker.NewCircuitBreaker(st)
}
