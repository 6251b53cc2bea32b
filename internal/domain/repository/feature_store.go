package repository

import (
	"context"
	"time"

	"FinFuzz/internal/domain/models"
)

// CandleReader provides read-only access to candles in ascending date order.
type CandleReader interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, p Period) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, p Period) ([]models.Candle, error)
}

// CandleStore persists candles; re-storing a date replaces the previous bar.
type CandleStore interface {
	CandleReader
	StoreBatch(ctx context.Context, symbol string, p Period, candles []models.Candle) error
}
