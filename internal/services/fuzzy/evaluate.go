package fuzzy

// Evaluation is the full trace of a single inference.
type Evaluation struct {
	X          float64          `json:"x"`
	W          float64          `json:"w"`
	Membership MembershipVector `json:"membership"`
	Activation ActivationMap    `json:"activation"`
	Signal     float64          `json:"signal"`
}

// Evaluate runs fuzzify, activate and defuzzify for x with spread w.
func (g *RuleGroup) Evaluate(x, w float64) (Evaluation, error) {
	mv, err := Fuzzify(x, w)
	if err != nil {
		return Evaluation{}, err
	}
	am := g.Activate(mv)
	return Evaluation{
		X:          x,
		W:          w,
		Membership: mv,
		Activation: am,
		Signal:     g.Defuzzify(am),
	}, nil
}

// Evaluate runs the Rule1 pipeline for x with spread w.
func Evaluate(x, w float64) (Evaluation, error) { return rule1.Evaluate(x, w) }
