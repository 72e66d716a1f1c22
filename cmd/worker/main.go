package main

import (
	"context"
	"os/signal"
	"syscall"

	"marketdata-service/internal/bootstrap"
	"marketdata-service/internal/infrastructure/grpc/healthserver"
	"marketdata-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, cleanup, err := bootstrap.BuildWorker(ctx)
	if err != nil {
		logx.L().Fatal("init worker", zap.Error(err))
	}
	defer cleanup()

	if app.Health != nil {
		go func() {
			if err := healthserver.RunServer(ctx, app.Config.WorkerHealthAddr, app.Health, app.Log); err != nil {
				app.Log.Error("grpc health server exited", zap.Error(err))
			}
		}()
	}

	app.Worker.Start(ctx)
	app.Log.Info("worker exited")
}
