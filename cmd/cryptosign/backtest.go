package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"CryptoSign/internal/di"
	"CryptoSign/internal/usecase"
	"CryptoSign/pkg/config"
	applogger "CryptoSign/pkg/logger"
)

var (
	btSymbol      string
	btStart       string
	btEnd         string
	btMode        string
	btGranularity string
	btFlush       string
	btSource      string
	btCSV         string
	btPersist     bool
	btPublish     bool
	btTrades      bool
	btJSON        bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay the signal calendar over historical price bars",
	Example: `  cryptosign backtest --symbol BTCUSDT --start 2024-01-01 --end 2024-03-31
  cryptosign backtest --source csv --csv bars.csv --mode held --flush scheduled_only
  cryptosign backtest --granularity 1d --mode simple --trades`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyBacktestFlags(cfg); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		bt, cleanup, err := buildBacktester(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		rng, err := parseRange(btStart, btEnd, bt.Location(), time.Now())
		if err != nil {
			return err
		}
		log.Debug().Str("symbol", cfg.Backtest.Symbol).Str("source", cfg.Market.Source).
			Time("start", rng.Start).Time("end", rng.End).Msg("running backtest")

		report, err := bt.Run(ctx, usecase.BacktestParams{
			Symbol:  strings.ToUpper(cfg.Backtest.Symbol),
			Range:   rng,
			Persist: cfg.Backtest.Persist,
			Publish: cfg.Backtest.Publish,
		})
		if err != nil {
			return err
		}
		if btJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		renderReport(cmd.OutOrStdout(), report, btTrades)
		return nil
	},
}

func init() {
	f := backtestCmd.Flags()
	f.StringVarP(&btSymbol, "symbol", "s", "", "trading pair, e.g. BTCUSDT (default from config)")
	f.StringVar(&btStart, "start", "today-30", "first date, YYYY-MM-DD or today±N")
	f.StringVar(&btEnd, "end", "today-1", "last date, inclusive")
	f.StringVarP(&btMode, "mode", "m", "", "simulation mode: simple, held or bracket")
	f.StringVarP(&btGranularity, "granularity", "g", "", "bar size: 1h or 1d")
	f.StringVar(&btFlush, "flush", "", "held mode flush policy: flush_all or scheduled_only")
	f.StringVar(&btSource, "source", "", "bar source: binance, clickhouse or csv")
	f.StringVar(&btCSV, "csv", "", "CSV file of bars; implies --source csv")
	f.BoolVar(&btPersist, "persist", false, "store the ledger in ClickHouse")
	f.BoolVar(&btPublish, "publish", false, "publish the report to Kafka")
	f.BoolVar(&btTrades, "trades", false, "list every closed trade")
	f.BoolVar(&btJSON, "json", false, "print the full report as JSON")
}

// applyBacktestFlags overlays non-empty flags on the backtest and market sections.
func applyBacktestFlags(cfg *config.Config) error {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Backtest.Symbol, btSymbol)
	set(&cfg.Backtest.Mode, btMode)
	set(&cfg.Backtest.Granularity, btGranularity)
	set(&cfg.Backtest.FlushPolicy, btFlush)
	set(&cfg.Market.Source, btSource)
	if btCSV != "" {
		cfg.Market.Source, cfg.Market.CSVPath = "csv", btCSV
	}
	cfg.Backtest.Persist = cfg.Backtest.Persist || btPersist
	cfg.Backtest.Publish = cfg.Backtest.Publish || btPublish
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate flags: %w", err)
	}
	if cfg.Backtest.Persist && !cfg.ClickHouse.Enabled {
		return fmt.Errorf("--persist requires clickhouse.enabled")
	}
	if cfg.Backtest.Publish && !cfg.Kafka.Enabled {
		return fmt.Errorf("--publish requires kafka.enabled")
	}
	return nil
}

// appLogger builds the application logger on stderr so stdout stays parseable.
func appLogger(cfg *config.Config) (*applogger.Logger, error) {
	cfg.Log.Output = "stderr"
	cfg.Log.Level = "warn"
	if verbose {
		cfg.Log.Level = "debug"
	}
	return di.ProvideLogger(cfg)
}

// cleanups runs registered teardown funcs in reverse order.
type cleanups []func()

func (c *cleanups) add(f func()) { *c = append(*c, f) }

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// buildBacktester wires the backtest use case from the same providers the server uses.
func buildBacktester(cfg *config.Config) (*usecase.Backtester, func(), error) {
	l, err := appLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	sc, err := di.ProvideSignalConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	gen, err := di.ProvideGenerator(sc)
	if err != nil {
		return nil, nil, err
	}
	bc, err := di.ProvideBacktestConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	var cs cleanups
	fail := func(err error) (*usecase.Backtester, func(), error) {
		cs.run()
		return nil, nil, err
	}

	ch, chCleanup, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		return fail(err)
	}
	cs.add(chCleanup)
	producer, kCleanup, err := di.ProvideKafkaProducer(cfg)
	if err != nil {
		return fail(err)
	}
	cs.add(kCleanup)

	bars, err := di.ProvideBarSource(cfg, ch, l)
	if err != nil {
		return fail(err)
	}
	bt, err := di.ProvideBacktester(bars, gen, bc,
		di.ProvideLedgerStore(ch, cfg),
		di.ProvideSignalPublisher(producer, cfg),
		nil, l)
	if err != nil {
		return fail(err)
	}
	return bt, cs.run, nil
}
