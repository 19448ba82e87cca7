package di

import (
	"context"
	"fmt"
	"time"

	"CryptoSign/internal/domain/models"
	"CryptoSign/internal/domain/repository"
	"CryptoSign/internal/handler/api"
	internalrepo "CryptoSign/internal/repository"
	"CryptoSign/internal/service/binance"
	"CryptoSign/internal/service/cache"
	apimetrics "CryptoSign/internal/service/metrics"
	"CryptoSign/internal/service/ratelimit"
	"CryptoSign/internal/services/signals"
	"CryptoSign/internal/usecase"
	pkgch "CryptoSign/pkg/clickhouse"
	"CryptoSign/pkg/config"
	pkgkafka "CryptoSign/pkg/kafka"
	applogger "CryptoSign/pkg/logger"
	"CryptoSign/pkg/metrics"
	"CryptoSign/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
}

func codeSet(field string, codes []int, def models.CodeSet) (models.CodeSet, error) {
	if len(codes) == 0 {
		return def, nil
	}
	s, err := models.NewCodeSet(codes...)
	if err != nil {
		return 0, models.NewConfigError(field, "%v", err)
	}
	return s, nil
}

// ProvideSignalConfig translates the signals section into the immutable tuning.
// Empty sets fall back to the defaults of the selected rule.
func ProvideSignalConfig(cfg *config.Config) (models.SignalConfig, error) {
	sc := models.DefaultSignalConfig().WithRule(models.ClassificationRule(cfg.Signals.Rule))
	loc, err := time.LoadLocation(cfg.Signals.Timezone)
	if err != nil {
		return sc, models.NewConfigError("timezone", "%v", err)
	}
	sc.Location = loc
	sc.AnchorHour = cfg.Signals.AnchorHour
	sc.AnchorMinute = cfg.Signals.AnchorMinute
	sc.OffsetC1 = cfg.Signals.OffsetC1
	sc.OffsetC2 = cfg.Signals.OffsetC2
	if cfg.Signals.PreserveMasters != nil {
		sc.PreserveMasters = *cfg.Signals.PreserveMasters
	}
	if sc.HighDays, err = codeSet("high_days", cfg.Signals.HighDays, sc.HighDays); err != nil {
		return sc, err
	}
	if sc.LowDays, err = codeSet("low_days", cfg.Signals.LowDays, sc.LowDays); err != nil {
		return sc, err
	}
	if sc.PeakHours, err = codeSet("peak_hours", cfg.Signals.PeakHours, sc.PeakHours); err != nil {
		return sc, err
	}
	if sc.DipHours, err = codeSet("dip_hours", cfg.Signals.DipHours, sc.DipHours); err != nil {
		return sc, err
	}
	return sc, sc.Validate()
}

// ProvideBacktestConfig translates the backtest section.
func ProvideBacktestConfig(cfg *config.Config) (models.BacktestConfig, error) {
	bc := models.BacktestConfig{
		Mode:          models.SimulationMode(cfg.Backtest.Mode),
		Granularity:   models.Granularity(cfg.Backtest.Granularity),
		FlushPolicy:   models.FlushPolicy(cfg.Backtest.FlushPolicy),
		TakeProfitPct: cfg.Backtest.TakeProfitPct,
		StopLossPct:   cfg.Backtest.StopLossPct,
		FeePct:        cfg.Backtest.FeePct,
	}
	return bc, bc.Validate()
}

// ProvideGenerator builds the signal generator.
func ProvideGenerator(sc models.SignalConfig) (*signals.Generator, error) {
	return signals.New(sc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	apimetrics.Register()
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
// It returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithBatchSize(cfg.ClickHouse.BatchSize),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideCache returns the in-process calendar cache, layered over Redis when enabled.
func ProvideCache(cfg *config.Config) cache.BytesCache {
	local := cache.NewTTLCache(cfg.Cache.TTL)
	if !cfg.Cache.Redis.Enabled {
		return cache.Layered{Local: local}
	}
	return cache.Layered{Local: local, Shared: cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})}
}

// ProvideSignalPublisher returns a Kafka publisher, or a nil interface without a producer.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic, cfg.Kafka.ReportsTopic)
}

// ProvideLedgerStore returns the ClickHouse ledger, or a nil interface without ClickHouse.
func ProvideLedgerStore(ch *pkgch.Client, cfg *config.Config) repository.LedgerStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHLedgerStore(ch, cfg.ClickHouse.Database)
}

// ProvideBarSource selects the bar source named by market.source.
func ProvideBarSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.BarSource, error) {
	switch cfg.Market.Source {
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("market source clickhouse: clickhouse is disabled")
		}
		s := internalrepo.NewCHBarStore(ch, cfg.ClickHouse.Database)
		s.SetLogger(l)
		return s, nil
	case "csv":
		return internalrepo.NewCSVBarSource(cfg.Market.CSVPath), nil
	default:
		return ProvideBinanceClient(cfg, l), nil
	}
}

// ProvideBinanceClient creates the klines client paced at market.rps.
func ProvideBinanceClient(cfg *config.Config, l *applogger.Logger) *binance.Client {
	c := binance.New(cfg.Market.BaseURL, cfg.Market.Timeout)
	c.SetLogger(l)
	c.SetLimiter(ratelimit.New(cfg.Market.RPS, 1))
	return c
}

// ProvideBarSink returns the ClickHouse bar tables, or a nil interface without ClickHouse.
func ProvideBarSink(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.BarSink {
	if ch == nil {
		return nil
	}
	s := internalrepo.NewCHBarStore(ch, cfg.ClickHouse.Database)
	s.SetLogger(l)
	return s
}

// ProvideIngester creates the use case that fills the bar tables from Binance.
func ProvideIngester(
	cfg *config.Config,
	sink repository.BarSink,
	sc models.SignalConfig,
	m repository.Metrics,
	l *applogger.Logger,
	extra ...usecase.IngestOption,
) (*usecase.Ingester, error) {
	if sink == nil {
		return nil, fmt.Errorf("ingest: clickhouse is disabled")
	}
	opts := append([]usecase.IngestOption{
		usecase.WithIngestMetrics(m),
		usecase.WithIngestLogger(l),
	}, extra...)
	return usecase.NewIngester(ProvideBinanceClient(cfg, l), sink, sc.Location, opts...)
}

// ProvideSignalCalendar creates the calendar use case.
func ProvideSignalCalendar(
	gen *signals.Generator,
	c cache.BytesCache,
	pub repository.SignalPublisher,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.SignalCalendar {
	opts := []usecase.CalendarOption{
		usecase.WithCalendarCache(c, cfg.Cache.TTL),
		usecase.WithCalendarMetrics(m),
		usecase.WithCalendarLogger(l),
	}
	if pub != nil {
		opts = append(opts, usecase.WithCalendarPublisher(pub))
	}
	return usecase.NewSignalCalendar(gen, opts...)
}

// ProvideBacktester creates the backtest use case.
func ProvideBacktester(
	bars repository.BarSource,
	gen *signals.Generator,
	bc models.BacktestConfig,
	ledger repository.LedgerStore,
	pub repository.SignalPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.Backtester, error) {
	opts := []usecase.BacktestOption{
		usecase.WithBacktestMetrics(m),
		usecase.WithBacktestLogger(l),
	}
	if ledger != nil {
		opts = append(opts, usecase.WithLedger(ledger))
	}
	if pub != nil {
		opts = append(opts, usecase.WithReportPublisher(pub))
	}
	return usecase.NewBacktester(bars, gen, bc, opts...)
}

// ProvideLimiter creates the per-client backtest limiter.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.API.RateLimit.RPS, cfg.API.RateLimit.Burst)
}

// ProvideHandler creates the Echo handler and registers health checks for enabled backends.
func ProvideHandler(
	cfg *config.Config,
	l *applogger.Logger,
	cal *usecase.SignalCalendar,
	bt *usecase.Backtester,
	limiter *ratelimit.Limiter,
	ch *pkgch.Client,
) *api.SignalsEchoHandler {
	h := api.NewSignalsEchoHandler(l, cal, bt, limiter, api.Limits{
		Earliest:     cfg.EarliestDate(),
		MaxRangeDays: cfg.API.MaxRangeDays,
	})
	if ch != nil {
		h.AddHealthCheck("clickhouse", ch.Health)
	}
	return h
}

// ProvideApp creates the application server. The error-log collector is attached
// here because it needs both the logger and the producer.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	h *api.SignalsEchoHandler,
	producer *pkgkafka.Producer,
) *server.App {
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval: cfg.Log.Collector.FlushInterval,
			Topic:        cfg.Log.Collector.Topic,
			Publisher:    producer,
			Service:      "cryptosign",
		})
	}
	return server.New(cfg, l, h)
}
