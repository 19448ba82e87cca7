//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"CryptoSign/internal/domain/repository"
	"CryptoSign/pkg/config"
	"CryptoSign/pkg/metrics"
	"CryptoSign/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),

		// Tuning
		ProvideSignalConfig,
		ProvideBacktestConfig,
		ProvideGenerator,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,

		// Repositories
		ProvideSignalPublisher,
		ProvideLedgerStore,
		ProvideBarSource,

		// Use cases
		ProvideSignalCalendar,
		ProvideBacktester,

		// Transport
		ProvideLimiter,
		ProvideHandler,
		ProvideApp,
	)
	return nil, nil, nil
}
