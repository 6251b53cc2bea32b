package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	candlesIngested *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastSignal      *prometheus.GaugeVec
	signalsTotal    *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		candlesIngested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finfuzz_candles_ingested_total",
				Help: "Total number of candles routed to a backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finfuzz_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastSignal: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finfuzz_last_signal",
				Help: "Last excess-demand signal computed for a symbol",
			},
			[]string{"symbol"},
		),
		signalsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finfuzz_signals_computed_total",
				Help: "Total number of latest signals computed, by direction",
			},
			[]string{"symbol", "direction"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finfuzz_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCandlesIngested records n candles routed to a backend.
func (r *Recorder) RecordCandlesIngested(backend, symbol string, n int) {
	r.candlesIngested.WithLabelValues(backend, symbol).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastSignal records the latest signal for a symbol.
func (r *Recorder) RecordLastSignal(symbol string, signal float64) {
	r.lastSignal.WithLabelValues(symbol).Set(signal)
	r.signalsTotal.WithLabelValues(symbol, direction(signal)).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func direction(signal float64) string {
	switch {
	case signal > 0:
		return "buy"
	case signal < 0:
		return "sell"
	default:
		return "neutral"
	}
}
