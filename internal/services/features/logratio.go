package features

import (
	"fmt"
	"math"

	"FinFuzz/internal/domain/models"
	"FinFuzz/pkg/util"
)

// LogRatio returns ln(a/b). Both operands must be finite and positive.
func LogRatio(a, b float64) (float64, error) {
	if !positiveFinite(a) || !positiveFinite(b) {
		return 0, fmt.Errorf("%w: ln(%v/%v)", ErrNumericDomain, a, b)
	}
	return math.Log(a / b), nil
}

// LogRatioSeries applies LogRatio pointwise. Points missing on either side stay missing;
// a domain error on any valid point fails the whole call.
func LogRatioSeries(a, b models.Series) (models.Series, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: series length mismatch %d != %d", ErrInvalidParameter, len(a), len(b))
	}
	out := make(models.Series, len(a))
	for i := range a {
		if !a[i].Date.Equal(b[i].Date) {
			return nil, fmt.Errorf("%w: series misaligned at index %d", ErrInvalidParameter, i)
		}
		out[i] = models.Point{Date: a[i].Date}
		if !a[i].Valid || !b[i].Valid {
			continue
		}
		v, err := LogRatio(a[i].Value, b[i].Value)
		if err != nil {
			return nil, fmt.Errorf("log-ratio at %s: %w", util.FormatDate(a[i].Date), err)
		}
		out[i].Value = v
		out[i].Valid = true
	}
	return out, nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
