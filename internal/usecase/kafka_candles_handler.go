package usecase

import (
	"context"
	"encoding/json"
	"time"

	"FinFuzz/internal/domain/models"
	domrepo "FinFuzz/internal/domain/repository"
	pkgkafka "FinFuzz/pkg/kafka"
)

// KafkaCandlesHandler consumes candle batches, stores them and refreshes the symbol's signal.
type KafkaCandlesHandler struct {
	topic   string
	store   domrepo.CandleStore
	refresh *SignalRefresher
	metrics domrepo.Metrics
}

func NewKafkaCandlesHandler(topic string, store domrepo.CandleStore, refresh *SignalRefresher, metrics domrepo.Metrics) *KafkaCandlesHandler {
	return &KafkaCandlesHandler{topic: topic, store: store, refresh: refresh, metrics: metrics}
}

func (h *KafkaCandlesHandler) Topic() string { return h.topic }

// incoming message schema: models.CandleBatch
func (h *KafkaCandlesHandler) Handle(ctx context.Context, b []byte) error {
	var batch models.CandleBatch
	if err := json.Unmarshal(b, &batch); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(err)
	}
	batch, err := NormalizeBatch(batch)
	if err != nil {
		h.metrics.RecordError("consumer_invalid")
		return pkgkafka.Permanent(err)
	}
	period := domrepo.Period(batch.Period)

	start := time.Now()
	err = h.store.StoreBatch(ctx, batch.Symbol, period, batch.Candles)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordCandlesIngested("clickhouse", batch.Symbol, len(batch.Candles))

	if h.refresh == nil {
		return nil
	}
	start = time.Now()
	_, err = h.refresh.Refresh(ctx, batch.Symbol, period)
	h.metrics.RecordLatency("signal_refresh_seconds", time.Since(start).Seconds())
	if err != nil {
		// history may still be warming up; the candles are stored either way
		h.metrics.RecordError("consumer_refresh")
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaCandlesHandler)(nil)
