package bootstrap

import "context"

// BuildAPI composes the API process in the order the injectors in wire.go
// declare. Cleanups run in reverse on error and on shutdown.
func BuildAPI(ctx context.Context) (*API, func(), error) {
	cfg, err := ProvideConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := ProvideStore(ctx, log, cfg)
	if err != nil {
		return nil, nil, err
	}
	client, closeRedis, err := ProvideRedisClient(ctx, log, cfg)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	cleanup := func() {
		closeRedis()
		closeStore()
	}
	upstream, err := ProvideUpstream(log, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	pipeline := ProvidePipeline(cfg, upstream, ProvideCache(client, cfg), store, ProvidePublisher(client, cfg))
	srv := ProvideServer(ProvideMarketService(pipeline, cfg), store)
	return ProvideAPI(cfg, log, srv), cleanup, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, func(), error) {
	cfg, err := ProvideConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	client, cleanup, err := ProvideStreamClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	health := ProvideHealthReporter(cfg)
	return ProvideWorkerApp(cfg, log, ProvideWorker(client, log, cfg, health), health), cleanup, nil
}
