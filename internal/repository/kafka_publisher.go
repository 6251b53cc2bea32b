package repository

import (
	"context"

	"FinFuzz/internal/domain/models"
	domrepo "FinFuzz/internal/domain/repository"
	pkgkafka "FinFuzz/pkg/kafka"
)

// KafkaCandlePublisher publishes candle batches keyed by symbol.
type KafkaCandlePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.CandlePublisher = (*KafkaCandlePublisher)(nil)

func NewKafkaCandlePublisher(producer *pkgkafka.Producer, topic string) *KafkaCandlePublisher {
	return &KafkaCandlePublisher{producer: producer, topic: topic}
}

func (p *KafkaCandlePublisher) PublishCandles(ctx context.Context, batch models.CandleBatch) error {
	return p.producer.Publish(ctx, p.topic, []byte(batch.Symbol), batch)
}

func (p *KafkaCandlePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// KafkaSignalPublisher publishes computed signals keyed by symbol.
// The producer is shared with the candle publisher and closed there.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) PublishSignal(ctx context.Context, s models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), s)
}

func (p *KafkaSignalPublisher) Close() error { return nil }
