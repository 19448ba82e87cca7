package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"CryptoSign/internal/di"
	"CryptoSign/internal/domain/models"
	"CryptoSign/internal/usecase"
	"CryptoSign/pkg/config"
)

var (
	ingSymbol      string
	ingStart       string
	ingEnd         string
	ingGranularity string
	ingChunkDays   int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Copy Binance klines into the ClickHouse bar tables",
	Example: `  cryptosign ingest --symbol BTCUSDT --start 2024-01-01 --end 2024-06-30
  cryptosign ingest --granularity 1d --start today-365`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.ClickHouse.Enabled {
			return fmt.Errorf("ingest requires clickhouse.enabled")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ing, loc, cleanup, err := buildIngester(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		rng, err := parseRange(ingStart, ingEnd, loc, time.Now())
		if err != nil {
			return err
		}
		symbol := ingSymbol
		if symbol == "" {
			symbol = cfg.Backtest.Symbol
		}
		g := models.Granularity(cfg.Backtest.Granularity)
		if ingGranularity != "" {
			g = models.Granularity(ingGranularity)
		}
		res, err := ing.Run(ctx, usecase.IngestParams{Symbol: strings.ToUpper(symbol), Range: rng, Granularity: g})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %d %s bars for %s in %d chunks\n", res.Bars, g, strings.ToUpper(symbol), res.Chunks)
		return nil
	},
}

func init() {
	f := ingestCmd.Flags()
	f.StringVarP(&ingSymbol, "symbol", "s", "", "trading pair (default from config)")
	f.StringVar(&ingStart, "start", "today-30", "first date, YYYY-MM-DD or today±N")
	f.StringVar(&ingEnd, "end", "today-1", "last date, inclusive")
	f.StringVarP(&ingGranularity, "granularity", "g", "", "bar size: 1h or 1d (default from config)")
	f.IntVar(&ingChunkDays, "chunk-days", 31, "days fetched and stored per batch")
}

// buildIngester wires Binance klines to the ClickHouse bar tables.
func buildIngester(cfg *config.Config) (*usecase.Ingester, *time.Location, func(), error) {
	if ingGranularity != "" && ingGranularity != string(models.Hourly) && ingGranularity != string(models.Daily) {
		return nil, nil, nil, fmt.Errorf("--granularity must be 1h or 1d")
	}
	l, err := appLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	sc, err := di.ProvideSignalConfig(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	ch, cleanup, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	ing, err := di.ProvideIngester(cfg, di.ProvideBarSink(ch, cfg, l), sc, nil, l,
		usecase.WithIngestChunkDays(ingChunkDays))
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return ing, sc.Location, cleanup, nil
}
