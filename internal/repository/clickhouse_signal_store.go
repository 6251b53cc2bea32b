package repository

import (
	"context"
	"database/sql"
	"fmt"

	"FinFuzz/internal/domain/models"
	domrepo "FinFuzz/internal/domain/repository"
	pkgch "FinFuzz/pkg/clickhouse"
)

// CHSignalStore persists computed signals in ClickHouse.
type CHSignalStore struct {
	db    *sql.DB
	table string
}

var _ domrepo.SignalStore = (*CHSignalStore)(nil)

func NewCHSignalStore(ch *pkgch.Client) *CHSignalStore {
	return &CHSignalStore{db: ch.DB(), table: signalTable(ch.Database())}
}

func (s *CHSignalStore) SaveSignal(ctx context.Context, sig models.Signal) error {
	q := fmt.Sprintf(`INSERT INTO %s
        (symbol, period, date, x, signal, dominant, short_window, long_window, spread, computed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err := s.db.ExecContext(ctx, q,
		sig.Symbol, sig.Period, sig.Date, sig.X, sig.Signal, sig.Dominant,
		uint16(sig.ShortWindow), uint16(sig.LongWindow), sig.Spread, sig.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// LatestSignals returns up to limit signals for symbol, newest date first.
func (s *CHSignalStore) LatestSignals(ctx context.Context, symbol string, p domrepo.Period, limit int) ([]models.Signal, error) {
	q := fmt.Sprintf(`
        SELECT symbol, period, date, x, signal, dominant, short_window, long_window, spread, computed_at
        FROM %s FINAL
        WHERE symbol = ? AND period = ?
        ORDER BY date DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(p), limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		var (
			sig         models.Signal
			short, long uint16
		)
		if err := rows.Scan(&sig.Symbol, &sig.Period, &sig.Date, &sig.X, &sig.Signal, &sig.Dominant,
			&short, &long, &sig.Spread, &sig.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.ShortWindow, sig.LongWindow = int(short), int(long)
		out = append(out, sig)
	}
	return out, rows.Err()
}
