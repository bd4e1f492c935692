//go:build wireinject
// +build wireinject

package di

import (
	"VolTune/pkg/config"
	"VolTune/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvidePanelStore,
		ProvideLearner,
		ProvideReportSink,
		ProvideReportCache,

		// Use cases
		ProvideRunRegistry,
		ProvideProgressPipeline,
		ProvideTuneRunner,
		ProvideJobsHandler,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
