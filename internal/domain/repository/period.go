package repository

import "strings"

// Period represents the candle resolution.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// IsValidPeriod returns true if p is a supported period.
func IsValidPeriod(p Period) bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	default:
		return false
	}
}

// DefaultPeriod returns the default period.
func DefaultPeriod() Period { return PeriodDaily }

// NormalizePeriod converts a raw string to a valid period (or default).
func NormalizePeriod(s string) Period {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if IsValidPeriod(p) {
		return p
	}
	return DefaultPeriod()
}
