package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"CryptoSign/internal/domain/models"
	domrepo "CryptoSign/internal/domain/repository"
	pkgch "CryptoSign/pkg/clickhouse"
)

// insertChunkSize bounds rows per multi-row INSERT.
const insertChunkSize = 2000

// insertChunked writes n rows as multi-row VALUES inserts to reduce round-trips.
func insertChunked(ctx context.Context, db *sql.DB, table, columns string, width, n int, row func(i int) []interface{}) error {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"
	for start := 0; start < n; start += insertChunkSize {
		end := min(start+insertChunkSize, n)
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*width)
		for i := start; i < end; i++ {
			values = append(values, placeholder)
			args = append(args, row(i)...)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, columns, strings.Join(values, ","))
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

// CHLedgerStore implements LedgerStore for ClickHouse.
type CHLedgerStore struct {
	db       *sql.DB
	database string
}

var _ domrepo.LedgerStore = (*CHLedgerStore)(nil)

func NewCHLedgerStore(ch *pkgch.Client, database string) *CHLedgerStore {
	return &CHLedgerStore{db: ch.DB(), database: database}
}

// StoreReport writes the run summary row and then its closed trades.
func (s *CHLedgerStore) StoreReport(ctx context.Context, r models.BacktestReport) error {
	const q = `INSERT INTO %s.backtest_runs
        (run_id, symbol, mode, from_date, to_date, bars, total_trades, win_rate, cumulative_return, max_drawdown, missing_slots, incomplete_bars, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(q, s.database),
		r.RunID,
		r.Symbol,
		string(r.Mode),
		r.From,
		r.To,
		r.Bars,
		r.Summary.TotalTrades,
		r.Summary.WinRate,
		r.Summary.CumulativeReturn,
		r.Summary.MaxDrawdown,
		r.Result.MissingPriceData,
		r.Result.IncompleteBars,
		r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("store run %s: %w", r.RunID, err)
	}

	trades := r.Result.Trades
	return insertChunked(ctx, s.db, s.database+".backtest_trades",
		"run_id, seq, direction, classification, hour_code, entry_time, entry_price, exit_time, exit_price, exit_reason, gross_return, net_return",
		12, len(trades), func(i int) []interface{} {
			t := trades[i]
			return []interface{}{
				r.RunID, i,
				string(t.Direction), string(t.Classification), t.HourCode,
				t.EntryTime.UTC(), t.EntryPrice,
				t.ExitTime.UTC(), t.ExitPrice, string(t.ExitReason),
				t.GrossReturn, t.Return,
			}
		})
}
