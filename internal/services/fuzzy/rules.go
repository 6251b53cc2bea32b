package fuzzy

import (
	"encoding/json"
	"fmt"
	"math"
)

// ActivationMap holds the firing strength of each activated consequence.
// Only strengths strictly greater than zero are present.
type ActivationMap map[Consequence]float64

// Map returns a label-keyed copy.
func (am ActivationMap) Map() map[string]float64 {
	out := make(map[string]float64, len(am))
	for c, s := range am {
		if c.Valid() {
			out[c.String()] = s
		}
	}
	return out
}

func (am ActivationMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(am.Map())
}

// Dominant returns the consequence with the highest strength. Ties go to the
// lower label.
func (am ActivationMap) Dominant() (Consequence, bool) {
	best, found := Consequence(0), false
	for c := Consequence(0); c < consequenceCount; c++ {
		s, ok := am[c]
		if !ok || !(s > 0) {
			continue
		}
		if !found || s > am[best] {
			best, found = c, true
		}
	}
	return best, found
}

// Aggregator combines two strengths concluding the same consequence.
type Aggregator func(current, incoming float64) float64

var (
	// MaxAggregator keeps the strongest firing, the usual fuzzy OR.
	MaxAggregator Aggregator = math.Max
	// BoundedSumAggregator adds strengths, capped at 1.
	BoundedSumAggregator Aggregator = func(a, b float64) float64 { return math.Min(1, a+b) }
)

// RuleGroup maps each premise to exactly one consequence and carries the crisp centers
// used to defuzzify its consequences.
type RuleGroup struct {
	rules   [premiseCount]Consequence
	centers Centers
	agg     Aggregator
}

// NewRuleGroup builds a rule group. Every premise needs a rule and every consequence a
// center. A nil aggregator defaults to MaxAggregator.
func NewRuleGroup(name string, rules map[Premise]Consequence, centers map[Consequence]float64, agg Aggregator) (*RuleGroup, error) {
	g := &RuleGroup{agg: agg}
	if g.agg == nil {
		g.agg = MaxAggregator
	}
	for _, p := range Premises() {
		c, ok := rules[p]
		if !ok {
			return nil, fmt.Errorf("%w: rule group %s: no rule for premise %s", ErrInvalidParameter, name, p)
		}
		if !c.Valid() {
			return nil, fmt.Errorf("%w: rule group %s: premise %s concludes %s", ErrInvalidParameter, name, p, c)
		}
		g.rules[p] = c
	}
	if len(rules) != int(premiseCount) {
		return nil, fmt.Errorf("%w: rule group %s: unknown premise in rules", ErrInvalidParameter, name)
	}
	for _, c := range Consequences() {
		v, ok := centers[c]
		if !ok {
			return nil, fmt.Errorf("%w: rule group %s: no center for %s", ErrInvalidParameter, name, c)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: rule group %s: center for %s is not finite", ErrInvalidParameter, name, c)
		}
		g.centers[c] = v
	}
	return g, nil
}

// MustRuleGroup is like NewRuleGroup but panics on error. Used for package-level groups.
func MustRuleGroup(name string, rules map[Premise]Consequence, centers map[Consequence]float64, agg Aggregator) *RuleGroup {
	g, err := NewRuleGroup(name, rules, centers, agg)
	if err != nil {
		panic(err)
	}
	return g
}

// Consequence returns the conclusion of the rule whose premise is p.
func (g *RuleGroup) Consequence(p Premise) (Consequence, bool) {
	if !p.Valid() {
		return 0, false
	}
	return g.rules[p], true
}

// Centers returns a copy of the group's consequence centers.
func (g *RuleGroup) Centers() Centers { return g.centers }

// Bijective reports whether every consequence is concluded by exactly one premise.
func (g *RuleGroup) Bijective() bool {
	var seen [consequenceCount]int
	for _, c := range g.rules {
		seen[c]++
	}
	for _, n := range seen {
		if n != 1 {
			return false
		}
	}
	return true
}

// Activate fires every rule whose premise has a positive degree in mv.
func (g *RuleGroup) Activate(mv MembershipVector) ActivationMap {
	am := make(ActivationMap, premiseCount)
	for p, degree := range mv {
		if !(degree > 0) {
			continue
		}
		c := g.rules[p]
		if cur, ok := am[c]; ok {
			am[c] = g.agg(cur, degree)
			continue
		}
		am[c] = degree
	}
	return am
}

var rule1 = func() *RuleGroup {
	g := MustRuleGroup("rule1",
		map[Premise]Consequence{
			PS: BS,
			PM: BB,
			PL: SM,
			NS: SS,
			NM: SB,
			NL: BM,
			AZ: N,
		},
		map[Consequence]float64{
			BS: 0.1,
			BB: 0.4,
			SM: -0.2,
			SS: -0.1,
			SB: -0.4,
			BM: 0.2,
			N:  0.0,
		},
		MaxAggregator,
	)
	if !g.Bijective() {
		panic("fuzzy: rule1 must map premises one-to-one onto consequences")
	}
	return g
}()

// Rule1 returns the default contrarian-at-the-extremes rule group.
func Rule1() *RuleGroup { return rule1 }

// ActivateRules applies Rule1 to mv.
func ActivateRules(mv MembershipVector) ActivationMap { return rule1.Activate(mv) }
