// Package features derives the inputs of the fuzzy pipeline from candle history:
// moving averages of a price column and their log-ratio.
package features

import (
	"fmt"
	"math"
	"strings"

	"FinFuzz/internal/domain/models"
	"FinFuzz/internal/services/fuzzy"
)

var (
	ErrInvalidParameter = fuzzy.ErrInvalidParameter
	ErrNumericDomain    = fuzzy.ErrNumericDomain
	ErrMissingValue     = fuzzy.ErrMissingValue
)

// Column names a numeric field of a candle.
type Column string

const (
	ColumnOpen     Column = "open"
	ColumnHigh     Column = "high"
	ColumnLow      Column = "low"
	ColumnClose    Column = "close"
	ColumnVolume   Column = "volume"
	ColumnTurnover Column = "turnover"
)

// ParseColumn resolves a column name case-insensitively.
func ParseColumn(s string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume, ColumnTurnover:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown column %q", ErrInvalidParameter, s)
	}
}

func (c Column) value(k models.Candle) float64 {
	switch c {
	case ColumnOpen:
		return k.Open
	case ColumnHigh:
		return k.High
	case ColumnLow:
		return k.Low
	case ColumnVolume:
		return k.Volume
	case ColumnTurnover:
		return k.Turnover
	default:
		return k.Close
	}
}

// SeriesFromCandles extracts one column as a series. Non-finite values become missing points.
func SeriesFromCandles(candles []models.Candle, column string) (models.Series, error) {
	col, err := ParseColumn(column)
	if err != nil {
		return nil, err
	}
	out := make(models.Series, len(candles))
	for i, k := range candles {
		v := col.value(k)
		ok := !math.IsNaN(v) && !math.IsInf(v, 0)
		out[i] = models.Point{Date: k.Date, Valid: ok}
		if ok {
			out[i].Value = v
		}
	}
	return out, nil
}
