package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"CryptoSign/internal/di"
	"CryptoSign/internal/services/signals"
	"CryptoSign/pkg/config"
)

var (
	configPath string
	ruleFlag   string
	tzFlag     string
	verbose    bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "cryptosign",
	Short: "Numerology-driven crypto signal calendar and backtester",
	Long: `cryptosign derives day and hour codes from calendar dates, classifies days
as High or Low, and emits SHORT signals at peak hours of High days and LONG
signals at dip hours of Low days. It can replay those signals over price bars.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).With().Timestamp().Logger()
		if noColor || os.Getenv("NO_COLOR") != "" {
			plain()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file; defaults apply when it does not exist")
	rootCmd.PersistentFlags().StringVar(&ruleFlag, "rule", "", "classification rule: membership or two_tier")
	rootCmd.PersistentFlags().StringVar(&tzFlag, "tz", "", "IANA timezone dates and hours are evaluated in")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable styled output")

	rootCmd.AddCommand(signalsCmd, classifyCmd, hoursCmd, backtestCmd, publishCmd, ingestCmd)
}

// loadConfig reads the config file when present and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", configPath).Msg("config file not found, using defaults")
		if cfg, err = config.Default(); err == nil {
			cfg.ApplyEnv()
		}
	}
	if err != nil {
		return nil, err
	}
	if ruleFlag != "" {
		cfg.Signals.Rule = ruleFlag
	}
	if tzFlag != "" {
		cfg.Signals.Timezone = tzFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func newGenerator(cfg *config.Config) (*signals.Generator, error) {
	sc, err := di.ProvideSignalConfig(cfg)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("rule", string(sc.Rule)).Str("tz", sc.Location.String()).Msg("signal tuning loaded")
	return di.ProvideGenerator(sc)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
