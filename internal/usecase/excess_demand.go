package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"FinFuzz/internal/domain/models"
	domrepo "FinFuzz/internal/domain/repository"
	domsvc "FinFuzz/internal/domain/service"
	"FinFuzz/internal/services/fuzzy"
)

// ErrInsufficientHistory is returned when no date has both moving averages available.
var ErrInsufficientHistory = errors.New("insufficient history for excess-demand signal")

// ExcessDemandUseCase loads candle history and evaluates the excess-demand pipeline on it.
type ExcessDemandUseCase struct {
	store    domrepo.CandleReader
	eval     domsvc.ExcessDemandEvaluator
	metrics  domrepo.Metrics
	defaults models.FuzzyParams
	history  int
}

func NewExcessDemandUseCase(store domrepo.CandleReader, eval domsvc.ExcessDemandEvaluator, metrics domrepo.Metrics, defaults models.FuzzyParams, history int) *ExcessDemandUseCase {
	if history <= 0 {
		history = 250
	}
	return &ExcessDemandUseCase{store: store, eval: eval, metrics: metrics, defaults: defaults, history: history}
}

type SeriesParams struct {
	Symbol string
	Period domrepo.Period
	// N latest candles are loaded unless a From/To range is given.
	N        int
	From, To time.Time
	// Fuzzy overrides the configured parameters when non-nil.
	Fuzzy *models.FuzzyParams
}

// Defaults returns the configured fuzzy parameters.
func (uc *ExcessDemandUseCase) Defaults() models.FuzzyParams { return uc.defaults }

// params returns the configured parameters for nil. Explicit values are kept as
// given, zeros included, and rejected by the evaluator when out of domain.
func (uc *ExcessDemandUseCase) params(fp *models.FuzzyParams) models.FuzzyParams {
	if fp == nil {
		return uc.defaults
	}
	out := *fp
	if out.Column == "" {
		out.Column = uc.defaults.Column
	}
	return out
}

// Validate checks the parameters a Series or Latest call with fp would use.
func (uc *ExcessDemandUseCase) Validate(fp *models.FuzzyParams) error {
	return uc.eval.Validate(uc.params(fp))
}

// Series evaluates every date of the requested history.
func (uc *ExcessDemandUseCase) Series(ctx context.Context, p SeriesParams) (*models.ExcessDemandSeries, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol required", fuzzy.ErrInvalidParameter)
	}
	fp := uc.params(p.Fuzzy)
	if p.N <= 0 {
		p.N = uc.history
	}

	candles, err := uc.load(ctx, p)
	if err != nil {
		uc.recordError("excess_demand_load")
		return nil, err
	}

	start := time.Now()
	points, err := uc.eval.Evaluate(candles, fp)
	if err != nil {
		uc.recordError("excess_demand_eval")
		return nil, fmt.Errorf("evaluate %s: %w", p.Symbol, err)
	}
	if uc.metrics != nil {
		uc.metrics.RecordLatency("excess_demand_eval", time.Since(start).Seconds())
	}

	return &models.ExcessDemandSeries{
		Symbol:    p.Symbol,
		Period:    string(p.Period),
		Params:    fp,
		Points:    points,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Latest returns the signal of the last date with a valid evaluation.
func (uc *ExcessDemandUseCase) Latest(ctx context.Context, p SeriesParams) (models.Signal, error) {
	fp := uc.params(p.Fuzzy)
	if err := uc.eval.Validate(fp); err != nil {
		return models.Signal{}, err
	}
	// enough history for the long average to warm up
	if need := 2 * fp.LongWindow; p.N < need {
		p.N = max(need, uc.history)
	}
	p.Fuzzy = &fp
	s, err := uc.Series(ctx, p)
	if err != nil {
		return models.Signal{}, err
	}
	sig, err := LatestSignal(s)
	if err != nil {
		return models.Signal{}, err
	}
	if uc.metrics != nil {
		uc.metrics.RecordLastSignal(sig.Symbol, sig.Signal)
	}
	return sig, nil
}

// EvaluateSeries runs the pipeline over caller-supplied values without touching storage.
// The values are evaluated as closes.
func (uc *ExcessDemandUseCase) EvaluateSeries(symbol string, s models.Series, fp models.FuzzyParams) (*models.ExcessDemandSeries, error) {
	fp.Column = "close"
	candles := make([]models.Candle, len(s))
	for i, pt := range s {
		candles[i] = models.Candle{Date: pt.Date, Symbol: symbol, Close: pt.Value}
		if !pt.Valid {
			candles[i].Close = math.NaN()
		}
	}
	points, err := uc.eval.Evaluate(candles, fp)
	if err != nil {
		uc.recordError("excess_demand_eval")
		return nil, err
	}
	return &models.ExcessDemandSeries{
		Symbol:    symbol,
		Params:    fp,
		Points:    points,
		Timestamp: time.Now().UTC(),
	}, nil
}

// LatestSignal extracts the last valid point of s as a Signal.
func LatestSignal(s *models.ExcessDemandSeries) (models.Signal, error) {
	for i := len(s.Points) - 1; i >= 0; i-- {
		pt := s.Points[i]
		if !pt.Valid {
			continue
		}
		return models.Signal{
			Symbol:      s.Symbol,
			Period:      s.Period,
			Date:        pt.Date,
			X:           pt.X,
			Signal:      pt.Signal,
			Dominant:    dominant(pt.Activation),
			ShortWindow: s.Params.ShortWindow,
			LongWindow:  s.Params.LongWindow,
			Spread:      s.Params.Spread,
			ComputedAt:  s.Timestamp,
		}, nil
	}
	return models.Signal{}, fmt.Errorf("%s: %w (%d points)", s.Symbol, ErrInsufficientHistory, len(s.Points))
}

func dominant(activation map[string]float64) string {
	am := make(fuzzy.ActivationMap, len(activation))
	for k, v := range activation {
		if c, err := fuzzy.ParseConsequence(k); err == nil {
			am[c] = v
		}
	}
	if c, ok := am.Dominant(); ok {
		return c.String()
	}
	return ""
}

func (uc *ExcessDemandUseCase) load(ctx context.Context, p SeriesParams) ([]models.Candle, error) {
	if !p.From.IsZero() || !p.To.IsZero() {
		to := p.To
		if to.IsZero() {
			to = time.Now().UTC()
		}
		if p.From.After(to) {
			return nil, fmt.Errorf("%w: from must be <= to", fuzzy.ErrInvalidParameter)
		}
		cs, err := uc.store.GetCandles(ctx, p.Symbol, p.From, to, p.Period)
		if err != nil {
			return nil, fmt.Errorf("get candles: %w", err)
		}
		return cs, nil
	}
	cs, err := uc.store.GetLatestNCandles(ctx, p.Symbol, p.N, p.Period)
	if err != nil {
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	return cs, nil
}

func (uc *ExcessDemandUseCase) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}
