package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format     string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format" default:"2006-01-02T15:04:05Z07:00"`
		Collector  struct {
			Enabled       bool          `yaml:"enabled"`
			Topic         string        `yaml:"topic" default:"cryptosign.errors"`
			FlushInterval time.Duration `yaml:"flush_interval" default:"30s"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Signals struct {
		Timezone        string `yaml:"timezone" default:"UTC"`
		AnchorHour      int    `yaml:"anchor_hour" default:"18" validate:"min=0,max=23"`
		AnchorMinute    int    `yaml:"anchor_minute" default:"15" validate:"min=0,max=59"`
		OffsetC1        int    `yaml:"offset_c1" default:"3" validate:"min=0"`
		OffsetC2        int    `yaml:"offset_c2" default:"1" validate:"min=0"`
		PreserveMasters *bool  `yaml:"preserve_masters"`
		Rule            string `yaml:"rule" default:"membership" validate:"oneof=membership two_tier"`
		HighDays        []int  `yaml:"high_days"`
		LowDays         []int  `yaml:"low_days"`
		PeakHours       []int  `yaml:"peak_hours"`
		DipHours        []int  `yaml:"dip_hours"`
	} `yaml:"signals"`
	Backtest struct {
		Mode          string  `yaml:"mode" default:"bracket" validate:"oneof=simple held bracket"`
		Granularity   string  `yaml:"granularity" default:"1h" validate:"oneof=1h 1d"`
		FlushPolicy   string  `yaml:"flush_policy" default:"flush_all" validate:"oneof=flush_all scheduled_only"`
		TakeProfitPct float64 `yaml:"take_profit_pct" default:"0.01" validate:"gte=0"`
		StopLossPct   float64 `yaml:"stop_loss_pct" default:"0.005" validate:"gte=0"`
		FeePct        float64 `yaml:"fee_pct" default:"0.0008" validate:"gte=0"`
		Symbol        string  `yaml:"symbol" default:"BTCUSDT"`
		Persist       bool    `yaml:"persist"`
		Publish       bool    `yaml:"publish"`
	} `yaml:"backtest"`
	Market struct {
		Source  string        `yaml:"source" default:"binance" validate:"oneof=binance clickhouse csv"`
		BaseURL string        `yaml:"base_url" default:"https://api.binance.com" validate:"url"`
		Timeout time.Duration `yaml:"timeout" default:"15s"`
		RPS     float64       `yaml:"rps" default:"5" validate:"gte=0"`
		CSVPath string        `yaml:"csv_path"`
	} `yaml:"market"`
	API struct {
		EarliestDate string `yaml:"earliest_date" default:"2009-01-04" validate:"datetime=2006-01-02"`
		MaxRangeDays int    `yaml:"max_range_days" default:"366" validate:"min=1"`
		RateLimit    struct {
			RPS   float64 `yaml:"rps" default:"2"`
			Burst int     `yaml:"burst" default:"4"`
		} `yaml:"rate_limit"`
	} `yaml:"api"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		SignalsTopic string   `yaml:"signals_topic" default:"cryptosign.signals"`
		ReportsTopic string   `yaml:"reports_topic" default:"cryptosign.backtests"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"cryptosign"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		BatchSize        int           `yaml:"batch_size" default:"1000"`
	} `yaml:"clickhouse"`
	Cache struct {
		TTL   time.Duration `yaml:"ttl" default:"6h"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

var validate = validator.New()

// Default returns a configuration built only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file in the working directory is read first when present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CRYPTOSIGN_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("SIGNALS_RULE"); v != "" {
		c.Signals.Rule = v
	}
	if v := os.Getenv("MARKET_SOURCE"); v != "" {
		c.Market.Source = v
	}
	if v := os.Getenv("BACKTEST_MODE"); v != "" {
		c.Backtest.Mode = v
	}
}

// Validate checks if the configuration is valid. Numerology set rules (overlaps,
// unknown codes) are checked when the signal tuning is built.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Market.Source == "clickhouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("market.source clickhouse requires clickhouse.enabled")
	}
	if c.Market.Source == "csv" && c.Market.CSVPath == "" {
		return fmt.Errorf("market.csv_path is required for the csv source")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if _, err := time.LoadLocation(c.Signals.Timezone); err != nil {
		return fmt.Errorf("signals.timezone: %w", err)
	}
	return nil
}

// EarliestDate parses API.EarliestDate. Validate guarantees the layout.
func (c *Config) EarliestDate() time.Time {
	t, _ := time.Parse(time.DateOnly, c.API.EarliestDate)
	return t
}
