package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"FinFuzz/internal/domain/models"
	drepo "FinFuzz/internal/domain/repository"
	"FinFuzz/internal/services/fuzzy"
)

// CandleProcessor validates ingested candles and routes them to the configured backend.
// With the clickhouse backend candles are stored directly and the symbol's signal is
// refreshed in-process; with kafka the consumer side does both.
type CandleProcessor struct {
	pub     drepo.CandlePublisher
	store   drepo.CandleStore
	refresh *SignalRefresher
	metrics drepo.Metrics
	backend string
}

// NewCandleProcessor creates a new CandleProcessor instance.
func NewCandleProcessor(
	pub drepo.CandlePublisher,
	store drepo.CandleStore,
	refresh *SignalRefresher,
	metrics drepo.Metrics,
	backend string,
) *CandleProcessor {
	return &CandleProcessor{
		pub:     pub,
		store:   store,
		refresh: refresh,
		metrics: metrics,
		backend: backend,
	}
}

// Backend returns the configured routing target.
func (p *CandleProcessor) Backend() string { return p.backend }

// Process normalizes the batch and routes it to the configured backend.
func (p *CandleProcessor) Process(ctx context.Context, batch models.CandleBatch) (int, error) {
	batch, err := NormalizeBatch(batch)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	period := drepo.Period(batch.Period)

	switch p.backend {
	case "kafka":
		err = p.pub.PublishCandles(ctx, batch)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, batch.Symbol, period, batch.Candles)
		if err == nil && p.refresh != nil {
			// the candles are stored; a failed refresh is retried on the next batch
			_, _ = p.refresh.Refresh(ctx, batch.Symbol, period)
		}
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return 0, fmt.Errorf("process candles: %w", err)
	}

	p.metrics.RecordCandlesIngested(p.backend, batch.Symbol, len(batch.Candles))
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return len(batch.Candles), nil
}

// NormalizeBatch checks a batch, stamps the symbol on every candle, sorts by date and
// keeps the last candle for duplicated dates.
func NormalizeBatch(batch models.CandleBatch) (models.CandleBatch, error) {
	batch.Symbol = strings.TrimSpace(batch.Symbol)
	if batch.Symbol == "" {
		return batch, fmt.Errorf("%w: symbol required", fuzzy.ErrInvalidParameter)
	}
	period := drepo.Period(strings.ToLower(batch.Period))
	if batch.Period == "" {
		period = drepo.DefaultPeriod()
	}
	if !drepo.IsValidPeriod(period) {
		return batch, fmt.Errorf("%w: unknown period %q", fuzzy.ErrInvalidParameter, batch.Period)
	}
	batch.Period = string(period)
	if len(batch.Candles) == 0 {
		return batch, fmt.Errorf("%w: empty candle batch", fuzzy.ErrInvalidParameter)
	}

	byDate := make(map[time.Time]int, len(batch.Candles))
	out := make([]models.Candle, 0, len(batch.Candles))
	for _, c := range batch.Candles {
		if c.Date.IsZero() {
			return batch, fmt.Errorf("%w: candle without date", fuzzy.ErrInvalidParameter)
		}
		c.Symbol = batch.Symbol
		c.Date = c.Date.UTC()
		if i, ok := byDate[c.Date]; ok {
			out[i] = c
			continue
		}
		byDate[c.Date] = len(out)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	batch.Candles = out
	return batch, nil
}

// Close closes underlying resources if available.
func (p *CandleProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
