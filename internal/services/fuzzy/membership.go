package fuzzy

import (
	"encoding/json"
	"fmt"
	"math"
)

// MembershipVector holds the degree of x in each premise set, indexed by Premise.
// All seven entries are always present; zero means "not a member".
type MembershipVector [premiseCount]float64

// Degree returns the membership degree for p, or 0 for an unknown label.
func (mv MembershipVector) Degree(p Premise) float64 {
	if !p.Valid() {
		return 0
	}
	return mv[p]
}

// Sum adds up all degrees.
func (mv MembershipVector) Sum() float64 {
	var s float64
	for _, d := range mv {
		s += d
	}
	return s
}

// Map returns a label-keyed copy.
func (mv MembershipVector) Map() map[string]float64 {
	out := make(map[string]float64, premiseCount)
	for p, d := range mv {
		out[premiseNames[p]] = d
	}
	return out
}

func (mv MembershipVector) MarshalJSON() ([]byte, error) {
	return json.Marshal(mv.Map())
}

func (mv *MembershipVector) UnmarshalJSON(b []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out MembershipVector
	for k, v := range raw {
		p, err := ParsePremise(k)
		if err != nil {
			return err
		}
		out[p] = clamp01(v)
	}
	*mv = out
	return nil
}

type membershipFunc func(x, w float64) float64

// Breakpoints sit at multiples of w; neighbouring tents overlap by one w so that two
// adjacent sets are active between consecutive breakpoints.
var membershipFuncs = [premiseCount]membershipFunc{
	NL: func(x, w float64) float64 { return rampDown(x, -3*w, -2*w) },
	NM: func(x, w float64) float64 { return tent(x, -3*w, -2*w, -w) },
	NS: func(x, w float64) float64 { return tent(x, -2*w, -w, 0) },
	AZ: func(x, w float64) float64 { return tent(x, -w, 0, w) },
	PS: func(x, w float64) float64 { return tent(x, 0, w, 2*w) },
	PM: func(x, w float64) float64 { return tent(x, w, 2*w, 3*w) },
	PL: func(x, w float64) float64 { return rampUp(x, 2*w, 3*w) },
}

// Fuzzify maps x to its membership degrees in the seven premise sets for spread w.
func Fuzzify(x, w float64) (MembershipVector, error) {
	var mv MembershipVector
	if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
		return mv, fmt.Errorf("%w: spread w must be a positive finite number, got %v", ErrInvalidParameter, w)
	}
	if math.IsNaN(x) {
		return mv, fmt.Errorf("%w: cannot fuzzify NaN", ErrMissingValue)
	}
	for p, fn := range membershipFuncs {
		mv[p] = clamp01(fn(x, w))
	}
	return mv, nil
}

func tent(x, left, peak, right float64) float64 {
	switch {
	case x < left || x > right:
		return 0
	case x <= peak:
		return (x - left) / (peak - left)
	default:
		return (right - x) / (right - peak)
	}
}

func rampUp(x, lo, hi float64) float64 {
	switch {
	case x <= lo:
		return 0
	case x >= hi:
		return 1
	default:
		return (x - lo) / (hi - lo)
	}
}

func rampDown(x, lo, hi float64) float64 {
	switch {
	case x <= lo:
		return 1
	case x >= hi:
		return 0
	default:
		return (hi - x) / (hi - lo)
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
