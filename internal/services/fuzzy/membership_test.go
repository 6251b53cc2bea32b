package fuzzy

import (
	"errors"
	"math"
	"testing"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) <= eps }

func TestFuzzifyBetweenAZAndPS(t *testing.T) {
	mv, err := Fuzzify(0.003, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(mv.Degree(AZ), 0.7) || !approx(mv.Degree(PS), 0.3) {
		t.Fatalf("unexpected degrees AZ=%v PS=%v", mv[AZ], mv[PS])
	}
	for _, p := range []Premise{NL, NM, NS, PM, PL} {
		if mv[p] != 0 {
			t.Fatalf("expected %s to be 0, got %v", p, mv[p])
		}
	}
}

func TestFuzzifyBetweenPSAndPM(t *testing.T) {
	mv, err := Fuzzify(0.016, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(mv[PS], 0.4) || !approx(mv[PM], 0.6) {
		t.Fatalf("unexpected degrees PS=%v PM=%v", mv[PS], mv[PM])
	}
}

func TestFuzzifyCrossoverAtOneAndHalfSpread(t *testing.T) {
	w := 0.02
	mv, err := Fuzzify(1.5*w, w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(mv[PS], 0.5) || !approx(mv[PM], 0.5) {
		t.Fatalf("expected PS=PM=0.5, got PS=%v PM=%v", mv[PS], mv[PM])
	}
}

func TestFuzzifyMirrorsAroundZero(t *testing.T) {
	w := 0.01
	pairs := [][2]Premise{{PS, NS}, {PM, NM}, {PL, NL}, {AZ, AZ}}
	for _, x := range []float64{0.001, 0.004, 0.012, 0.019, 0.025, 0.05} {
		pos, _ := Fuzzify(x, w)
		neg, _ := Fuzzify(-x, w)
		for _, pr := range pairs {
			if !approx(pos[pr[0]], neg[pr[1]]) {
				t.Fatalf("x=%v: %s=%v but %s(-x)=%v", x, pr[0], pos[pr[0]], pr[1], neg[pr[1]])
			}
		}
	}
}

func TestFuzzifySaturatesBeyondThreeSpreads(t *testing.T) {
	w := 0.01
	for _, x := range []float64{0.031, 1, math.Inf(1)} {
		mv, err := Fuzzify(x, w)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mv[PL] != 1 || mv.Sum() != 1 {
			t.Fatalf("x=%v: expected only PL=1, got %v", x, mv)
		}
	}
	for _, x := range []float64{-0.031, -1, math.Inf(-1)} {
		mv, err := Fuzzify(x, w)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mv[NL] != 1 || mv.Sum() != 1 {
			t.Fatalf("x=%v: expected only NL=1, got %v", x, mv)
		}
	}
}

func TestFuzzifyContinuousAtBreakpoints(t *testing.T) {
	w := 0.01
	const h = 1e-12
	for _, b := range []float64{-3 * w, -2 * w, -w, 0, w, 2 * w, 3 * w} {
		left, _ := Fuzzify(b-h, w)
		right, _ := Fuzzify(b+h, w)
		for _, p := range Premises() {
			if math.Abs(left[p]-right[p]) > 1e-6 {
				t.Fatalf("%s jumps at %v: %v -> %v", p, b, left[p], right[p])
			}
		}
	}
}

func TestFuzzifyDegreesBoundedAndCovering(t *testing.T) {
	w := 0.015
	for x := -0.06; x <= 0.06; x += 0.0007 {
		mv, err := Fuzzify(x, w)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, p := range Premises() {
			if mv[p] < 0 || mv[p] > 1 {
				t.Fatalf("x=%v: %s out of range %v", x, p, mv[p])
			}
		}
		if mv.Sum() <= 0 {
			t.Fatalf("x=%v: no set is active", x)
		}
	}
}

func TestFuzzifyRejectsBadInput(t *testing.T) {
	for _, w := range []float64{0, -0.01, math.NaN(), math.Inf(1)} {
		if _, err := Fuzzify(0.01, w); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("w=%v: expected ErrInvalidParameter, got %v", w, err)
		}
	}
	if _, err := Fuzzify(math.NaN(), 0.01); !errors.Is(err, ErrMissingValue) {
		t.Fatalf("expected ErrMissingValue, got %v", err)
	}
}

func TestMembershipVectorJSONKeys(t *testing.T) {
	mv, _ := Fuzzify(0.003, 0.01)
	b, err := mv.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back MembershipVector
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != mv {
		t.Fatalf("expected %v, got %v", mv, back)
	}
}
