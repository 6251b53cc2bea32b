package service

import "FinFuzz/internal/domain/models"

// ExcessDemandEvaluator turns a candle history into a per-date excess-demand trace.
type ExcessDemandEvaluator interface {
	Evaluate(candles []models.Candle, p models.FuzzyParams) ([]models.ExcessDemandPoint, error)
	Validate(p models.FuzzyParams) error
}
