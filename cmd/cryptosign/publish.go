package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"CryptoSign/internal/di"
	"CryptoSign/internal/usecase"
	"CryptoSign/pkg/config"
)

var (
	pubStart string
	pubEnd   string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the signal calendar of a range to Kafka",
	Example: `  cryptosign publish --start today --end today+7
  cryptosign publish --start 2024-03-01 --end 2024-03-31 --rule two_tier`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Kafka.Enabled {
			return fmt.Errorf("publish requires kafka.enabled")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cal, cleanup, err := buildPublisher(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		rng, err := parseRange(pubStart, pubEnd, cal.Generator().Location(), time.Now())
		if err != nil {
			return err
		}
		n, err := cal.Publish(ctx, rng)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %d records (%s to %s) to %s\n", n,
			rng.Start.Format(time.DateOnly), rng.End.Format(time.DateOnly), cfg.Kafka.SignalsTopic)
		return nil
	},
}

func init() {
	f := publishCmd.Flags()
	f.StringVar(&pubStart, "start", "today", "first date, YYYY-MM-DD or today±N")
	f.StringVar(&pubEnd, "end", "today+7", "last date, inclusive")
}

// buildPublisher wires the calendar use case to the Kafka signals topic.
func buildPublisher(cfg *config.Config) (*usecase.SignalCalendar, func(), error) {
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
	producer, cleanup, err := di.ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, nil, err
	}
	cal := usecase.NewSignalCalendar(gen,
		usecase.WithCalendarPublisher(di.ProvideSignalPublisher(producer, cfg)),
		usecase.WithCalendarLogger(l),
	)
	return cal, cleanup, nil
}
