package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinFuzz/internal/domain/models"
	domrepo "FinFuzz/internal/domain/repository"
	"FinFuzz/internal/services/fuzzy"
)

// ScanUseCase evaluates the latest signal of many symbols concurrently.
type ScanUseCase struct {
	ed          *ExcessDemandUseCase
	timeout     time.Duration
	concurrency int
}

func NewScanUseCase(ed *ExcessDemandUseCase) *ScanUseCase {
	return &ScanUseCase{ed: ed, timeout: 10 * time.Second, concurrency: 8}
}

type ScanParams struct {
	Symbols []string
	Period  domrepo.Period
	Fuzzy   *models.FuzzyParams
}

func (uc *ScanUseCase) Scan(ctx context.Context, p ScanParams) (*models.ScanResult, error) {
	if len(p.Symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol required", fuzzy.ErrInvalidParameter)
	}
	if err := uc.ed.Validate(p.Fuzzy); err != nil {
		return nil, err
	}

	// Overall timeout
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	res := &models.ScanResult{
		Period:    string(p.Period),
		Timestamp: time.Now().UTC(),
		Signals:   make(map[string]models.Signal, len(p.Symbols)),
		Errors:    map[string]string{},
	}

	type item struct {
		symbol string
		val    models.Signal
		err    error
	}
	ch := make(chan item, len(p.Symbols))
	sem := make(chan struct{}, uc.concurrency)
	var wg sync.WaitGroup

	for _, sym := range p.Symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				ch <- item{sym, models.Signal{}, ctx.Err()}
				return
			}
			v, err := uc.ed.Latest(ctx, SeriesParams{Symbol: sym, Period: p.Period, Fuzzy: p.Fuzzy})
			ch <- item{sym, v, err}
		}(sym)
	}

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.symbol] = it.err.Error()
			continue
		}
		res.Signals[it.symbol] = it.val
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}
