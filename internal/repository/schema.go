package repository

import (
	"fmt"

	domrepo "FinFuzz/internal/domain/repository"
)

// Schema returns idempotent DDL for the candle and signal tables of database.
func Schema(database string) []string {
	stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)}
	for _, p := range []domrepo.Period{domrepo.PeriodDaily, domrepo.PeriodWeekly, domrepo.PeriodMonthly} {
		table, _ := candleTable(database, p)
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    date      Date,
    symbol    LowCardinality(String),
    open      Float64,
    high      Float64,
    low       Float64,
    close     Float64,
    volume    Float64,
    turnover  Float64,
    ingested  DateTime64(3) DEFAULT now64(3)
) ENGINE = ReplacingMergeTree(ingested)
ORDER BY (symbol, date)`, table))
	}
	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    symbol       LowCardinality(String),
    period       LowCardinality(String),
    date         Date,
    x            Float64,
    signal       Float64,
    dominant     LowCardinality(String),
    short_window UInt16,
    long_window  UInt16,
    spread       Float64,
    computed_at  DateTime64(3)
) ENGINE = ReplacingMergeTree(computed_at)
ORDER BY (symbol, period, date)`, signalTable(database)))
	return stmts
}

func candleTable(database string, p domrepo.Period) (string, error) {
	switch p {
	case domrepo.PeriodDaily:
		return database + ".candles_daily", nil
	case domrepo.PeriodWeekly:
		return database + ".candles_weekly", nil
	case domrepo.PeriodMonthly:
		return database + ".candles_monthly", nil
	default:
		return "", fmt.Errorf("unsupported period: %s", p)
	}
}

func signalTable(database string) string { return database + ".excess_demand_signals" }
