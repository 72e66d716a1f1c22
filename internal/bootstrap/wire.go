//go:build wireinject

package bootstrap

import (
	"context"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
)

var apiSet = wire.NewSet(
	infraSet,
	ProvideStore,
	ProvideRedisClient,
	ProvideCache,
	ProvidePublisher,
	ProvideUpstream,
	ProvidePipeline,
	ProvideMarketService,
	ProvideServer,
	ProvideAPI,
)

// API injector: builds *API + Cleanup
func InitAPI(ctx context.Context) (*API, func(), error) {
	wire.Build(apiSet)
	return nil, nil, nil
}

// Worker injector: builds *WorkerApp + Cleanup
func InitWorker(ctx context.Context) (*WorkerApp, func(), error) {
	wire.Build(
		infraSet,
		ProvideStreamClient,
		ProvideHealthReporter,
		ProvideWorker,
		ProvideWorkerApp,
	)
	return nil, nil, nil
}
