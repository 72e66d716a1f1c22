package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"marketdata-service/internal/application"
	"marketdata-service/internal/config"
	"marketdata-service/internal/domain"
	"marketdata-service/internal/infrastructure/grpc/healthserver"
	httpserver "marketdata-service/internal/infrastructure/http"
	"marketdata-service/internal/infrastructure/httpx"
	"marketdata-service/internal/infrastructure/logx"
	"marketdata-service/internal/infrastructure/pg"
	"marketdata-service/internal/infrastructure/provider"
	redisstore "marketdata-service/internal/infrastructure/redis"
	"marketdata-service/internal/infrastructure/sqlite"
	"marketdata-service/internal/infrastructure/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrMissingAPIKey = errors.New("FINNHUB_API_KEY is required for PROVIDER=finnhub")

// Store bundles the relational store with its transaction boundary and
// readiness probe.
type Store struct {
	Records application.RecordStore
	UoW     application.UnitOfWork
	Ping    func(ctx context.Context) error
}

// API is everything cmd/api needs to serve.
type API struct {
	Config  config.Config
	Log     *zap.Logger
	Handler http.Handler
}

// WorkerApp is everything cmd/worker needs to run. Health is nil unless
// WORKER_HEALTH_ADDR is set.
type WorkerApp struct {
	Config config.Config
	Log    *zap.Logger
	Worker application.Worker
	Health *healthserver.Reporter
}

func ProvideConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func ProvideLogger(cfg config.Config) (*zap.Logger, error) {
	if err := logx.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, err
	}
	return logx.L().With(zap.String("env", cfg.Env)), nil
}

func ProvideStore(ctx context.Context, log *zap.Logger, cfg config.Config) (Store, func(), error) {
	switch cfg.Storage {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return Store{}, func() {}, err
		}
		cleanup := func() {
			log.Info("closing sqlite")
			_ = db.Close()
		}
		return Store{
			Records: sqlite.NewRecordStore(db),
			UoW:     &sqlite.UnitOfWork{DB: db.SQL},
			Ping:    db.Ping,
		}, cleanup, nil
	default:
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return Store{}, func() {}, err
		}
		if err := pg.RunMigrations(ctx, db); err != nil {
			db.Close()
			return Store{}, func() {}, err
		}
		cleanup := func() {
			log.Info("closing pg")
			db.Close()
		}
		return Store{
			Records: pg.NewRecordStore(db),
			UoW:     &pg.UnitOfWork{Pool: db.Pool},
			Ping:    db.Ping,
		}, cleanup, nil
	}
}

// ProvideRedisClient does not fail on an unreachable server: cache misses
// and publish failures are tolerated per request.
func ProvideRedisClient(ctx context.Context, log *zap.Logger, cfg config.Config) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis.unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return client, func() { _ = client.Close() }, nil
}

func ProvideCache(client *redis.Client, cfg config.Config) application.Cache {
	if cfg.CacheBackend == "none" {
		return redisstore.NoopCache{}
	}
	return redisstore.NewCache(client)
}

func ProvidePublisher(client *redis.Client, cfg config.Config) application.Publisher {
	return redisstore.NewStreamPublisher(client, cfg.PublishRetryMaxElapsed)
}

func ProvideUpstream(log *zap.Logger, cfg config.Config) (application.Upstream, error) {
	switch cfg.Provider {
	case "fake":
		log.Warn("provider.fake_enabled")
		return provider.NewFake(), nil
	default:
		if cfg.FinnhubAPIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return &provider.Finnhub{
			BaseURL: cfg.FinnhubURL,
			APIKey:  cfg.FinnhubAPIKey,
			Client: &httpx.Client{
				HTTP:       &http.Client{Timeout: cfg.UpstreamTimeout},
				MaxElapsed: cfg.UpstreamRetryMaxElapsed,
			},
		}, nil
	}
}

func ProvidePipeline(cfg config.Config, up application.Upstream, cache application.Cache, st Store, pub application.Publisher) *application.Pipeline {
	return application.NewPipeline(up, cache, st.Records, pub,
		application.WithUnitOfWork(st.UoW),
		application.WithCacheTTL(cfg.CacheTTL),
		application.WithPublishFailFatal(cfg.PublishFailFatal),
		application.WithSingleflight(cfg.UpstreamSingleflight),
		application.WithLogger(logx.WithFields),
	)
}

func ProvideMarketService(p *application.Pipeline, cfg config.Config) *application.MarketService {
	ph := domain.DefaultCountryPlaceholders
	if !cfg.CountryPlaceholders {
		ph = domain.CountryPlaceholders{}
	}
	return application.NewMarketService(p, ph)
}

func ProvideServer(svc *application.MarketService, st Store) *httpserver.Server {
	srv := httpserver.NewServer(svc)
	srv.SetReadyCheck(st.Ping)
	return srv
}

func ProvideAPI(cfg config.Config, log *zap.Logger, srv *httpserver.Server) *API {
	return &API{Config: cfg, Log: log, Handler: httpserver.NewRouter(srv, cfg.CORSAllowedOrigins)}
}

// ProvideStreamClient requires a reachable Redis; the consumer has nothing
// to do without one.
func ProvideStreamClient(ctx context.Context, cfg config.Config) (*redis.Client, func(), error) {
	client, err := redisstore.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, func() {}, err
	}
	return client, func() { _ = client.Close() }, nil
}

func ProvideHealthReporter(cfg config.Config) *healthserver.Reporter {
	if cfg.WorkerHealthAddr == "" {
		return nil
	}
	return healthserver.NewReporter()
}

func ProvideWorker(client *redis.Client, log *zap.Logger, cfg config.Config, health *healthserver.Reporter) application.Worker {
	streams := cfg.WorkerStreams
	if len(streams) == 0 {
		streams = application.Streams
	}
	wlog := log.With(zap.String("worker", "stream"))
	var onPoll func(error)
	if health != nil {
		onPoll = health.Observe
	}
	return &worker.StreamWorker{
		Client:     client,
		Streams:    streams,
		Handle:     worker.LogHandler(wlog),
		PollEvery:  cfg.WorkerPoll,
		BatchLimit: cfg.WorkerBatchSize,
		StartID:    cfg.WorkerStartID,
		Log:        wlog,
		OnPoll:     onPoll,
	}
}

func ProvideWorkerApp(cfg config.Config, log *zap.Logger, w application.Worker, health *healthserver.Reporter) *WorkerApp {
	return &WorkerApp{Config: cfg, Log: log, Worker: w, Health: health}
}
