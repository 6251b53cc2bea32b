package fuzzy

// Centers holds the crisp representative value of each consequence, indexed by Consequence.
type Centers [consequenceCount]float64

// Center returns the crisp value for c, or 0 for an unknown label.
func (cs Centers) Center(c Consequence) float64 {
	if !c.Valid() {
		return 0
	}
	return cs[c]
}

// DefuzzifyWith returns the strength-weighted average of centers over the activated
// consequences. Labels are visited in fixed order so the result is deterministic.
// An empty map or zero total strength yields 0.
func DefuzzifyWith(am ActivationMap, centers Centers) float64 {
	var num, den float64
	for c := Consequence(0); c < consequenceCount; c++ {
		s, ok := am[c]
		if !ok || !(s > 0) {
			continue
		}
		num += centers.Center(c) * s
		den += s
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Defuzzify collapses am to a crisp signal using the group's centers.
func (g *RuleGroup) Defuzzify(am ActivationMap) float64 {
	return DefuzzifyWith(am, g.centers)
}

// Defuzzify collapses am to a crisp signal using the Rule1 centers.
func Defuzzify(am ActivationMap) float64 { return rule1.Defuzzify(am) }
