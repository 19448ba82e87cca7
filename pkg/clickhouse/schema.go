package clickhouse

import "fmt"

// Schema returns idempotent DDL for the bar and ledger tables of database db.
// Bars use ReplacingMergeTree so re-imported candles collapse on (symbol, ts).
func Schema(db string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.bars_1h (
    ts     DateTime('UTC'),
    symbol LowCardinality(String),
    open   Float64,
    high   Float64,
    low    Float64,
    close  Float64,
    volume Float64
) ENGINE = ReplacingMergeTree
ORDER BY (symbol, ts)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.bars_1d (
    ts     DateTime('UTC'),
    symbol LowCardinality(String),
    open   Float64,
    high   Float64,
    low    Float64,
    close  Float64,
    volume Float64
) ENGINE = ReplacingMergeTree
ORDER BY (symbol, ts)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.backtest_runs (
    run_id            String,
    symbol            LowCardinality(String),
    mode              LowCardinality(String),
    from_date         Date,
    to_date           Date,
    bars              UInt32,
    total_trades      UInt32,
    win_rate          Float64,
    cumulative_return Float64,
    max_drawdown      Float64,
    missing_slots     UInt32,
    incomplete_bars   UInt32,
    created_at        DateTime('UTC')
) ENGINE = MergeTree
ORDER BY (symbol, created_at)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.backtest_trades (
    run_id         String,
    seq            UInt32,
    direction      LowCardinality(String),
    classification LowCardinality(String),
    hour_code      UInt8,
    entry_time     DateTime('UTC'),
    entry_price    Float64,
    exit_time      DateTime('UTC'),
    exit_price     Float64,
    exit_reason    LowCardinality(String),
    gross_return   Float64,
    net_return     Float64
) ENGINE = MergeTree
ORDER BY (run_id, seq)`, db),
	}
}
