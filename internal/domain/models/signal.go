package models

import "time"

// FuzzyParams configures an excess-demand evaluation.
type FuzzyParams struct {
	Column      string  `json:"column"`
	ShortWindow int     `json:"short_window"`
	LongWindow  int     `json:"long_window"`
	Spread      float64 `json:"spread"`
}

// ExcessDemandPoint is the per-date trace of the inference: smoothed inputs,
// log-ratio, membership degrees, fired consequences and the crisp signal.
// When Valid is false the inputs could not be computed and only Date is set.
type ExcessDemandPoint struct {
	Date       time.Time          `json:"date"`
	ShortMA    float64            `json:"short_ma"`
	LongMA     float64            `json:"long_ma"`
	X          float64            `json:"x"`
	Membership map[string]float64 `json:"membership,omitempty"`
	Activation map[string]float64 `json:"activation,omitempty"`
	Signal     float64            `json:"signal"`
	Valid      bool               `json:"valid"`
}

// ExcessDemandSeries is an evaluated series for one symbol.
type ExcessDemandSeries struct {
	Symbol    string              `json:"symbol"`
	Period    string              `json:"period"`
	Params    FuzzyParams         `json:"params"`
	Points    []ExcessDemandPoint `json:"points"`
	Timestamp time.Time           `json:"timestamp"`
}

// Signal is the latest crisp excess-demand signal of a symbol, as persisted and published.
type Signal struct {
	Symbol      string    `json:"symbol"`
	Period      string    `json:"period"`
	Date        time.Time `json:"date"`
	X           float64   `json:"x"`
	Signal      float64   `json:"signal"`
	Dominant    string    `json:"dominant"`
	ShortWindow int       `json:"short_window"`
	LongWindow  int       `json:"long_window"`
	Spread      float64   `json:"spread"`
	ComputedAt  time.Time `json:"computed_at"`
}

// ScanResult collects the latest signal of several symbols. Per-symbol failures
// are reported in Errors and do not fail the scan.
type ScanResult struct {
	Period    string            `json:"period"`
	Timestamp time.Time         `json:"timestamp"`
	Signals   map[string]Signal `json:"signals"`
	Errors    map[string]string `json:"errors,omitempty"`
}
