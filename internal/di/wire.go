//go:build wireinject
// +build wireinject

package di

import (
	"FinFuzz/internal/usecase"
	"FinFuzz/pkg/config"
	"FinFuzz/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideCandleStore,
		ProvideSignalStore,
		ProvideCandlePublisher,
		ProvideSignalPublisher,

		// Use cases
		ProvideEvaluator,
		ProvideExcessDemandUseCase,
		usecase.NewScanUseCase,
		ProvideCandlesUseCase,
		ProvideSignalRefresher,
		ProvideCandleProcessor,
		ProvideKafkaCandlesHandler,

		// Delivery
		ProvideHub,
		ProvideAPIHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
