package usecase

import (
	"context"
	"fmt"
	"time"

	"FinFuzz/internal/domain/models"
	domrepo "FinFuzz/internal/domain/repository"
	"FinFuzz/internal/services/fuzzy"
)

// CandlesUseCase provides business logic for retrieving candles.
type CandlesUseCase struct {
	store domrepo.CandleReader
}

func NewCandlesUseCase(store domrepo.CandleReader) *CandlesUseCase {
	return &CandlesUseCase{store: store}
}

type GetCandlesParams struct {
	Symbol string
	From   time.Time
	To     time.Time
	Period domrepo.Period
	Limit  int
}

type GetCandlesResult struct {
	Symbol  string          `json:"symbol"`
	Period  string          `json:"period"`
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Count   int             `json:"count"`
	Candles []models.Candle `json:"candles"`
}

func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol required", fuzzy.ErrInvalidParameter)
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("%w: from must be <= to", fuzzy.ErrInvalidParameter)
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	candles, err := uc.store.GetCandles(ctx, p.Symbol, p.From, p.To, p.Period)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	// keep the most recent bars
	if len(candles) > p.Limit {
		candles = candles[len(candles)-p.Limit:]
	}

	return &GetCandlesResult{
		Symbol:  p.Symbol,
		Period:  string(p.Period),
		From:    p.From,
		To:      p.To,
		Count:   len(candles),
		Candles: candles,
	}, nil
}
