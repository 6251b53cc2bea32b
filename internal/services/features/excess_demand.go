package features

import (
	"fmt"
	"math"
	"sync"

	"FinFuzz/internal/domain/models"
	"FinFuzz/internal/domain/service"
	"FinFuzz/internal/services/fuzzy"
)

// Params configures ExcessDemand.
type Params struct {
	Column      string
	ShortWindow int
	LongWindow  int
	Spread      float64
	// Workers > 1 evaluates dates concurrently.
	Workers int
}

func (p Params) Validate() error {
	if _, err := ParseColumn(p.Column); err != nil {
		return err
	}
	if p.ShortWindow <= 0 || p.LongWindow <= 0 {
		return fmt.Errorf("%w: windows must be positive, got %d/%d", ErrInvalidParameter, p.ShortWindow, p.LongWindow)
	}
	if p.ShortWindow >= p.LongWindow {
		return fmt.Errorf("%w: short window %d must be below long window %d", ErrInvalidParameter, p.ShortWindow, p.LongWindow)
	}
	if math.IsNaN(p.Spread) || math.IsInf(p.Spread, 0) || p.Spread <= 0 {
		return fmt.Errorf("%w: spread must be a positive finite number, got %v", ErrInvalidParameter, p.Spread)
	}
	return nil
}

// ExcessDemand evaluates the Rule1 pipeline on every date of candles.
// Dates where either moving average is missing are returned with Valid=false.
func ExcessDemand(candles []models.Candle, p Params) ([]models.ExcessDemandPoint, error) {
	return excessDemand(fuzzy.Rule1(), candles, p)
}

func excessDemand(g *fuzzy.RuleGroup, candles []models.Candle, p Params) ([]models.ExcessDemandPoint, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	shortMA, err := MovingAverageColumn(candles, p.Column, p.ShortWindow)
	if err != nil {
		return nil, fmt.Errorf("short moving average: %w", err)
	}
	longMA, err := MovingAverageColumn(candles, p.Column, p.LongWindow)
	if err != nil {
		return nil, fmt.Errorf("long moving average: %w", err)
	}
	x, err := LogRatioSeries(shortMA, longMA)
	if err != nil {
		return nil, err
	}

	out := make([]models.ExcessDemandPoint, len(x))
	pending := make([]int, 0, len(x))
	for i, pt := range x {
		out[i] = models.ExcessDemandPoint{Date: pt.Date}
		if pt.Valid {
			out[i].ShortMA = shortMA[i].Value
			out[i].LongMA = longMA[i].Value
			out[i].X = pt.Value
			pending = append(pending, i)
		}
	}

	eval := func(i int) error {
		ev, err := g.Evaluate(out[i].X, p.Spread)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", out[i].Date.Format("2006-01-02"), err)
		}
		out[i].Membership = ev.Membership.Map()
		out[i].Activation = ev.Activation.Map()
		out[i].Signal = ev.Signal
		out[i].Valid = true
		return nil
	}

	if p.Workers <= 1 || len(pending) < 2 {
		for _, i := range pending {
			if err := eval(i); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	workers := p.Workers
	if workers > len(pending) {
		workers = len(pending)
	}
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := eval(i); err != nil {
					once.Do(func() { firstErr = err })
				}
			}
		}()
	}
	for _, i := range pending {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Evaluator implements service.ExcessDemandEvaluator with a fixed rule group and worker count.
type Evaluator struct {
	group   *fuzzy.RuleGroup
	workers int
}

var _ service.ExcessDemandEvaluator = (*Evaluator)(nil)

func NewEvaluator(workers int) *Evaluator {
	return &Evaluator{group: fuzzy.Rule1(), workers: workers}
}

// NewEvaluatorWithGroup evaluates with a custom rule group.
func NewEvaluatorWithGroup(g *fuzzy.RuleGroup, workers int) *Evaluator {
	if g == nil {
		g = fuzzy.Rule1()
	}
	return &Evaluator{group: g, workers: workers}
}

func (e *Evaluator) Evaluate(candles []models.Candle, fp models.FuzzyParams) ([]models.ExcessDemandPoint, error) {
	return excessDemand(e.group, candles, e.params(fp))
}

// Validate checks fp without evaluating anything.
func (e *Evaluator) Validate(fp models.FuzzyParams) error { return e.params(fp).Validate() }

func (e *Evaluator) params(fp models.FuzzyParams) Params {
	return Params{
		Column:      fp.Column,
		ShortWindow: fp.ShortWindow,
		LongWindow:  fp.LongWindow,
		Spread:      fp.Spread,
		Workers:     e.workers,
	}
}
