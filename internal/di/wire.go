//go:build wireinject
// +build wireinject

package di

import (
	"OddsEdge/pkg/config"
	"OddsEdge/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvidePostgres,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideArchiver,
		ProvidePublisher,
		ProvidePrefs,
		ProvideEntitlements,

		// Detection
		ProvideQuoteBook,
		ProvideDetector,
		ProvideRanker,
		ProvideEngine,

		// Ingest
		ProvideFeedStream,
		ProvideQuoteProcessor,
		ProvideQuoteCollector,
		ProvideKafkaQuotesHandler,

		// Delivery
		ProvideHub,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
