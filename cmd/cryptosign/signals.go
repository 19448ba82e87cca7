package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"CryptoSign/internal/domain/models"
	"CryptoSign/internal/services/signals"
	"CryptoSign/pkg/util"
)

var (
	startFlag  string
	endFlag    string
	formatFlag string
	dateFlag   string
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Print the signal calendar for a date range",
	Example: `  cryptosign signals
  cryptosign signals --start 2024-03-01 --end 2024-03-31 --format json
  cryptosign signals --start today --end today+7 --rule two_tier`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gen, err := newGenerator(cfg)
		if err != nil {
			return err
		}
		rng, err := parseRange(startFlag, endFlag, gen.Location(), time.Now())
		if err != nil {
			return err
		}
		recs, err := gen.Generate(rng)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch formatFlag {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		case "plain":
			_, err := fmt.Fprintln(out, signals.Format(recs))
			return err
		default:
			renderCalendar(out, recs)
			return nil
		}
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a single date and show its codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		gen, date, err := dateCommand()
		if err != nil {
			return err
		}
		rec := gen.Record(date)
		if formatFlag == "json" {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(rec)
		}
		renderCalendar(cmd.OutOrStdout(), []models.SignalRecord{rec})
		return nil
	},
}

var hoursCmd = &cobra.Command{
	Use:   "hours",
	Short: "List the hour codes and buckets of a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		gen, date, err := dateCommand()
		if err != nil {
			return err
		}
		hours := gen.HourSignals(date)
		if formatFlag == "json" {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(hours)
		}
		renderHours(cmd.OutOrStdout(), gen.Record(date), hours)
		return nil
	},
}

func init() {
	signalsCmd.Flags().StringVar(&startFlag, "start", "today-7", "first date, YYYY-MM-DD or today±N")
	signalsCmd.Flags().StringVar(&endFlag, "end", "today+21", "last date, inclusive")
	for _, c := range []*cobra.Command{signalsCmd, classifyCmd, hoursCmd} {
		c.Flags().StringVarP(&formatFlag, "format", "f", "text", "output format: text, plain or json")
	}
	for _, c := range []*cobra.Command{classifyCmd, hoursCmd} {
		c.Flags().StringVarP(&dateFlag, "date", "d", "today", "date, YYYY-MM-DD or today±N")
	}
}

func parseRange(start, end string, loc *time.Location, now time.Time) (models.DateRange, error) {
	s, err := util.ParseDate(start, loc, now)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("--start: %w", err)
	}
	e, err := util.ParseDate(end, loc, now)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("--end: %w", err)
	}
	rng := models.DateRange{Start: s, End: e}
	return rng, rng.Validate()
}

func dateCommand() (*signals.Generator, time.Time, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, time.Time{}, err
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		return nil, time.Time{}, err
	}
	date, err := util.ParseDate(dateFlag, gen.Location(), time.Now())
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("--date: %w", err)
	}
	return gen, date, nil
}
