package repository

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"FinFuzz/internal/domain/models"
	domrepo "FinFuzz/internal/domain/repository"
	pkgkafka "FinFuzz/pkg/kafka"
)

func TestSchemaCoversEveryPeriod(t *testing.T) {
	stmts := Schema("finfuzz")
	if len(stmts) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(stmts))
	}
	joined := strings.Join(stmts, "\n")
	for _, table := range []string{"finfuzz.candles_daily", "finfuzz.candles_weekly", "finfuzz.candles_monthly", "finfuzz.excess_demand_signals"} {
		if !strings.Contains(joined, table) {
			t.Fatalf("schema misses %s", table)
		}
	}
	if _, err := candleTable("finfuzz", domrepo.Period("hourly")); err == nil {
		t.Fatalf("expected error for unsupported period")
	}
}

type memWriter struct{ msgs []kafka.Message }

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func TestKafkaPublishersKeyBySymbol(t *testing.T) {
	w := &memWriter{}
	producer := pkgkafka.NewProducerWithWriter(w, "gzip")

	candles := NewKafkaCandlePublisher(producer, "finfuzz.candles")
	signals := NewKafkaSignalPublisher(producer, "finfuzz.signals")

	day := time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC)
	if err := candles.PublishCandles(context.Background(), models.CandleBatch{
		Symbol: "600519", Period: "daily", Candles: []models.Candle{{Date: day, Close: 2000}},
	}); err != nil {
		t.Fatalf("publish candles: %v", err)
	}
	if err := signals.PublishSignal(context.Background(), models.Signal{Symbol: "600519", Date: day, Signal: 0.28}); err != nil {
		t.Fatalf("publish signal: %v", err)
	}

	if len(w.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(w.msgs))
	}
	if w.msgs[0].Topic != "finfuzz.candles" || w.msgs[1].Topic != "finfuzz.signals" {
		t.Fatalf("unexpected topics %s, %s", w.msgs[0].Topic, w.msgs[1].Topic)
	}
	var batch models.CandleBatch
	if err := json.Unmarshal(w.msgs[0].Value, &batch); err != nil || len(batch.Candles) != 1 || !batch.Candles[0].Date.Equal(day) {
		t.Fatalf("unexpected candle payload %s: %v", w.msgs[0].Value, err)
	}
	for _, m := range w.msgs {
		if string(m.Key) != "600519" {
			t.Fatalf("expected symbol key, got %q", m.Key)
		}
	}
}
