package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeCompactDate(t *testing.T) {
	got, ok := ParseTime("20210630")
	if !ok {
		t.Fatalf("expected ok")
	}
	want := time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if FormatDate(got) != "20210630" {
		t.Fatalf("unexpected format %s", FormatDate(got))
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
	got = ParseTimeDefault("not-a-date", def)
	if !got.Equal(def) {
		t.Fatalf("expected default for garbage input")
	}
}

func TestAlignFromTo(t *testing.T) {
	// Thursday
	ts := time.Date(2024, 10, 10, 15, 4, 5, 0, time.UTC)
	from, _ := AlignFromTo(ts, ts, "weekly")
	if !from.Equal(time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week start %v", from)
	}
	from, _ = AlignFromTo(ts, ts, "monthly")
	if !from.Equal(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected month start %v", from)
	}
	from, _ = AlignFromTo(ts, ts, "daily")
	if !from.Equal(time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day start %v", from)
	}
}

func TestSplitSymbols(t *testing.T) {
	got := SplitSymbols(" 600519, 000001,,600519 ")
	if len(got) != 2 || got[0] != "600519" || got[1] != "000001" {
		t.Fatalf("unexpected symbols %v", got)
	}
}
