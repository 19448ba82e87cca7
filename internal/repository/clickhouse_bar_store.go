package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"CryptoSign/internal/domain/models"
	domrepo "CryptoSign/internal/domain/repository"
	pkgch "CryptoSign/pkg/clickhouse"
	applogger "CryptoSign/pkg/logger"
)

// CHBarStore implements BarSource backed by ClickHouse.
type CHBarStore struct {
	db       *sql.DB
	database string
	cb       *gobreaker.CircuitBreaker
	l        *applogger.Logger
}

var (
	_ domrepo.BarSource = (*CHBarStore)(nil)
	_ domrepo.BarSink   = (*CHBarStore)(nil)
)

func NewCHBarStore(ch *pkgch.Client, database string) *CHBarStore {
	return &CHBarStore{db: ch.DB(), database: database, cb: newBreaker("clickhouse_bars"), l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHBarStore) table(g models.Granularity) (string, error) {
	switch g {
	case models.Hourly:
		return s.database + ".bars_1h", nil
	case models.Daily:
		return s.database + ".bars_1d", nil
	default:
		return "", fmt.Errorf("unsupported granularity: %s", g)
	}
}

// Bars returns bars with from <= ts < to in ascending order. Calls go through a
// circuit breaker; an open breaker fails fast with gobreaker.ErrOpenState.
func (s *CHBarStore) Bars(ctx context.Context, symbol string, from, to time.Time, g models.Granularity) ([]models.PriceBar, error) {
	start := time.Now()
	table, err := s.table(g)
	if err != nil {
		return nil, err
	}
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.query(ctx, table, symbol, from, to)
	})
	if err != nil {
		s.l.Error("clickhouse bars query failed",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.String("breaker", s.cb.State().String()),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get bars: %w", err)
	}
	bars := out.([]models.PriceBar)
	s.l.Debug("clickhouse bars ok",
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return bars, nil
}

func (s *CHBarStore) query(ctx context.Context, table, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	const qtpl = `
        SELECT ts, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND ts >= ? AND ts < ?
        ORDER BY ts ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, table), symbol, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.PriceBar, 0, 1024)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// StoreBars upserts bars; duplicates collapse in the ReplacingMergeTree.
func (s *CHBarStore) StoreBars(ctx context.Context, symbol string, g models.Granularity, bars []models.PriceBar) error {
	table, err := s.table(g)
	if err != nil {
		return err
	}
	return insertChunked(ctx, s.db, table, "ts, symbol, open, high, low, close, volume", 7, len(bars), func(i int) []interface{} {
		b := bars[i]
		return []interface{}{b.Timestamp.UTC(), symbol, b.Open, b.High, b.Low, b.Close, b.Volume}
	})
}
