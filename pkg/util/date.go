package util

import (
	"strconv"
	"time"
)

// Dates without a zone are read as UTC midnight.
var dateLayouts = []string{
	"20060102",
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseTime tries YYYYMMDD, YYYY-MM-DD, RFC3339, RFC3339Nano and unix seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// eight digits are taken as a date above, so unix seconds need more
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// FormatDate renders t as YYYYMMDD.
func FormatDate(t time.Time) string { return t.UTC().Format("20060102") }

// AlignFromTo rounds the range down to period boundaries (day, ISO week starting
// Monday, or month) in UTC.
func AlignFromTo(from, to time.Time, period string) (time.Time, time.Time) {
	return periodStart(from, period), periodStart(to, period)
}

func periodStart(t time.Time, period string) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case "weekly":
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case "monthly":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}
