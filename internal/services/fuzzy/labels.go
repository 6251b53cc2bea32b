// Package fuzzy implements the fuzzy-inference core that maps a log-ratio of moving averages
// to an excess-demand signal: fuzzification, rule activation and defuzzification.
package fuzzy

import (
	"fmt"
	"strings"
)

// Premise labels an input fuzzy set derived from the log-ratio signal.
type Premise uint8

const (
	NL Premise = iota // negative large
	NM                // negative medium
	NS                // negative small
	AZ                // around zero
	PS                // positive small
	PM                // positive medium
	PL                // positive large
	premiseCount
)

var premiseNames = [premiseCount]string{"NL", "NM", "NS", "AZ", "PS", "PM", "PL"}

// Premises returns every premise label in ascending order.
func Premises() []Premise {
	out := make([]Premise, 0, premiseCount)
	for p := Premise(0); p < premiseCount; p++ {
		out = append(out, p)
	}
	return out
}

func (p Premise) Valid() bool { return p < premiseCount }

func (p Premise) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Premise(%d)", uint8(p))
	}
	return premiseNames[p]
}

// MarshalText lets premises serve as JSON object keys.
func (p Premise) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: premise %d", ErrInvalidParameter, uint8(p))
	}
	return []byte(premiseNames[p]), nil
}

// ParsePremise resolves a label such as "PS" (case-insensitive).
func ParsePremise(s string) (Premise, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range premiseNames {
		if name == s {
			return Premise(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown premise %q", ErrInvalidParameter, s)
}

// Consequence labels an output fuzzy set carrying a trading-signal direction and magnitude.
type Consequence uint8

const (
	BS Consequence = iota // buy small
	BB                    // buy big
	SM                    // sell medium
	SS                    // sell small
	SB                    // sell big
	BM                    // buy medium
	N                     // neutral
	consequenceCount
)

var consequenceNames = [consequenceCount]string{"BS", "BB", "SM", "SS", "SB", "BM", "N"}

// Consequences returns every consequence label in ascending order.
func Consequences() []Consequence {
	out := make([]Consequence, 0, consequenceCount)
	for c := Consequence(0); c < consequenceCount; c++ {
		out = append(out, c)
	}
	return out
}

func (c Consequence) Valid() bool { return c < consequenceCount }

func (c Consequence) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Consequence(%d)", uint8(c))
	}
	return consequenceNames[c]
}

func (c Consequence) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: consequence %d", ErrInvalidParameter, uint8(c))
	}
	return []byte(consequenceNames[c]), nil
}

// ParseConsequence resolves a label such as "BB" (case-insensitive).
func ParseConsequence(s string) (Consequence, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range consequenceNames {
		if name == s {
			return Consequence(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown consequence %q", ErrInvalidParameter, s)
}
