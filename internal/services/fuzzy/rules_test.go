package fuzzy

import (
	"errors"
	"testing"
)

func TestRule1IsBijective(t *testing.T) {
	g := Rule1()
	if !g.Bijective() {
		t.Fatalf("expected rule1 to be a bijection")
	}
	want := map[Premise]Consequence{PS: BS, PM: BB, PL: SM, NS: SS, NM: SB, NL: BM, AZ: N}
	for p, c := range want {
		got, ok := g.Consequence(p)
		if !ok || got != c {
			t.Fatalf("%s: expected %s, got %s", p, c, got)
		}
	}
}

func TestActivateRulesCarriesDegrees(t *testing.T) {
	mv, _ := Fuzzify(0.003, 0.01)
	am := ActivateRules(mv)
	if len(am) != 2 {
		t.Fatalf("expected 2 activations, got %v", am)
	}
	if !approx(am[N], 0.7) || !approx(am[BS], 0.3) {
		t.Fatalf("unexpected activation %v", am)
	}
}

func TestActivateRulesSkipsZeroDegrees(t *testing.T) {
	var mv MembershipVector
	mv[PM] = 1
	am := ActivateRules(mv)
	if len(am) != 1 || am[BB] != 1 {
		t.Fatalf("unexpected activation %v", am)
	}
	if len(ActivateRules(MembershipVector{})) != 0 {
		t.Fatalf("expected empty activation")
	}
}

func TestCollidingRulesUseAggregator(t *testing.T) {
	rules := map[Premise]Consequence{NL: SB, NM: SB, NS: SS, AZ: N, PS: BS, PM: BB, PL: BB}
	centers := map[Consequence]float64{BS: 0.1, BB: 0.4, SM: -0.2, SS: -0.1, SB: -0.4, BM: 0.2, N: 0}
	var mv MembershipVector
	mv[PM] = 0.3
	mv[PL] = 0.6

	g, err := NewRuleGroup("merge", rules, centers, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Bijective() {
		t.Fatalf("expected non-bijective group")
	}
	if got := g.Activate(mv)[BB]; got != 0.6 {
		t.Fatalf("max aggregation: expected 0.6, got %v", got)
	}

	g, _ = NewRuleGroup("sum", rules, centers, BoundedSumAggregator)
	if got := g.Activate(mv)[BB]; !approx(got, 0.9) {
		t.Fatalf("bounded sum: expected 0.9, got %v", got)
	}
}

func TestNewRuleGroupValidates(t *testing.T) {
	centers := map[Consequence]float64{BS: 0.1, BB: 0.4, SM: -0.2, SS: -0.1, SB: -0.4, BM: 0.2, N: 0}
	partial := map[Premise]Consequence{PS: BS}
	if _, err := NewRuleGroup("partial", partial, centers, nil); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	full := map[Premise]Consequence{PS: BS, PM: BB, PL: SM, NS: SS, NM: SB, NL: BM, AZ: N}
	if _, err := NewRuleGroup("nocenters", full, map[Consequence]float64{BS: 1}, nil); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestParseLabels(t *testing.T) {
	p, err := ParsePremise("pm")
	if err != nil || p != PM {
		t.Fatalf("expected PM, got %v %v", p, err)
	}
	c, err := ParseConsequence(" bb ")
	if err != nil || c != BB {
		t.Fatalf("expected BB, got %v %v", c, err)
	}
	if _, err := ParsePremise("XX"); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestActivateRulesSweepStaysInConsequenceSet(t *testing.T) {
	for _, w := range []float64{0.005, 0.01, 0.03} {
		for x := -5 * w; x <= 5*w; x += w / 37 {
			mv, err := Fuzzify(x, w)
			if err != nil {
				t.Fatalf("x=%v w=%v: unexpected error: %v", x, w, err)
			}
			am := ActivateRules(mv)
			if len(am) == 0 || len(am) > len(Consequences()) {
				t.Fatalf("x=%v w=%v: expected 1..7 activations, got %v", x, w, am)
			}
			for c, s := range am {
				if !c.Valid() {
					t.Fatalf("x=%v w=%v: activation key %d outside the consequence set", x, w, uint8(c))
				}
				if !(s > 0 && s <= 1) {
					t.Fatalf("x=%v w=%v: strength %v for %s out of (0,1]", x, w, s, c)
				}
			}
		}
	}
}
