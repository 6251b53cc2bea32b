package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finfuzz",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of excess-demand endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finfuzz",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by endpoint and error code",
		},
		[]string{"endpoint", "code"},
	)

	CacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finfuzz",
			Subsystem: "api",
			Name:      "cache_total",
			Help:      "Response cache lookups by result",
		},
		[]string{"endpoint", "result"},
	)
)

// Register adds the API collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, CacheResults)
	})
}
