package repository

import (
	"context"

	"FinFuzz/internal/domain/models"
)

type SignalStore interface {
	SaveSignal(ctx context.Context, s models.Signal) error
	LatestSignals(ctx context.Context, symbol string, p Period, limit int) ([]models.Signal, error)
}

type CandlePublisher interface {
	PublishCandles(ctx context.Context, batch models.CandleBatch) error
	Close() error
}

type SignalPublisher interface {
	PublishSignal(ctx context.Context, s models.Signal) error
	Close() error
}

// SignalBroadcaster fans a freshly computed signal out to live subscribers.
type SignalBroadcaster interface {
	Broadcast(s models.Signal)
}

type Metrics interface {
	RecordCandlesIngested(backend, symbol string, n int)
	RecordError(kind string)
	RecordLastSignal(symbol string, signal float64)
	RecordLatency(op string, seconds float64)
}
