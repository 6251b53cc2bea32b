package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinFuzz/internal/domain/models"
	domrepo "FinFuzz/internal/domain/repository"
	pkgch "FinFuzz/pkg/clickhouse"
	applogger "FinFuzz/pkg/logger"
)

const candleColumns = "date, symbol, open, high, low, close, volume, turnover"

// CHCandleStore implements CandleStore backed by ClickHouse.
type CHCandleStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)

func NewCHCandleStore(ch *pkgch.Client) *CHCandleStore {
	return &CHCandleStore{db: ch.DB(), database: ch.Database()}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, p domrepo.Period) ([]models.Candle, error) {
	start := time.Now()
	table, err := candleTable(s.database, p)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s FINAL
        WHERE symbol = ? AND date >= toDate(?) AND date <= toDate(?)
        ORDER BY date ASC
    `, candleColumns, table)
	out, err := s.query(ctx, q, symbol, from, to)
	if err != nil {
		s.logError("get_candles", table, symbol, err)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_candles ok",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, p domrepo.Period) ([]models.Candle, error) {
	start := time.Now()
	table, err := candleTable(s.database, p)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY date DESC
        LIMIT ?
    `, candleColumns, table)
	out, err := s.query(ctx, q, symbol, n)
	if err != nil {
		s.logError("latest_candles", table, symbol, err)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse latest_candles ok",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Int("limit", n),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// StoreBatch inserts candles in chunks. The table keeps the latest row per (symbol, date).
func (s *CHCandleStore) StoreBatch(ctx context.Context, symbol string, p domrepo.Period, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	table, err := candleTable(s.database, p)
	if err != nil {
		return err
	}
	const chunkSize = 2000
	for start := 0; start < len(candles); start += chunkSize {
		end := min(start+chunkSize, len(candles))
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, c := range candles[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, c.Date, symbol, c.Open, c.High, c.Low, c.Close, c.Volume, c.Turnover)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, candleColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.logError("store_batch", table, symbol, err)
			return fmt.Errorf("insert candles: %w", err)
		}
	}
	return nil
}

func (s *CHCandleStore) query(ctx context.Context, q string, args ...interface{}) ([]models.Candle, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 256)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Date, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Turnover); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Date = c.Date.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHCandleStore) logError(op, table, symbol string, err error) {
	if s.l != nil {
		s.l.Error("clickhouse "+op+" error",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
}
