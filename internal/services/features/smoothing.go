package features

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"

	"FinFuzz/internal/domain/models"
)

// talib.Sma keeps a running sum, so a value far larger than the current window
// leaves rounding error behind once it drops out. A window whose error bound
// exceeds smaRelTol of its own sum is summed again from scratch.
const (
	smaRelTol = 1e-9
	ulp       = 0x1p-52
)

// MovingAverage returns the simple moving average of s over window points.
// The first window-1 points are missing, as is every point whose window touches a
// missing input. s is not modified.
func MovingAverage(s models.Series, window int) (models.Series, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", ErrInvalidParameter, window)
	}
	out := make(models.Series, len(s))
	for i, p := range s {
		out[i] = models.Point{Date: p.Date}
	}
	if len(s) < window {
		return out, nil
	}

	vals := s.Values()
	sma := talib.Sma(vals, window)

	missing := 0
	var fed float64 // magnitude pushed through the running sum so far
	for i, p := range s {
		fed += math.Abs(vals[i])
		if !p.Valid {
			missing++
		}
		if i >= window && !s[i-window].Valid {
			missing--
		}
		if i >= window-1 && missing == 0 {
			v := sma[i]
			if fed*ulp > smaRelTol*math.Abs(v*float64(window)) {
				v = talib.Sma(vals[i-window+1:i+1], window)[window-1]
			}
			out[i].Value = v
			out[i].Valid = true
		}
	}
	return out, nil
}

// MovingAverageColumn is MovingAverage over one column of candles.
func MovingAverageColumn(candles []models.Candle, column string, window int) (models.Series, error) {
	s, err := SeriesFromCandles(candles, column)
	if err != nil {
		return nil, err
	}
	return MovingAverage(s, window)
}
