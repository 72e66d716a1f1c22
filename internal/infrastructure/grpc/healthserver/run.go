package healthserver

import (
	"context"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// WorkerService is the service name the stream consumer reports under.
const WorkerService = "marketdata.worker"

// Reporter flips the serving status of the worker after each poll.
type Reporter struct {
	hs *health.Server
}

func NewReporter() *Reporter {
	hs := health.NewServer()
	hs.SetServingStatus(WorkerService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Reporter{hs: hs}
}

// Observe records the outcome of one poll: SERVING after a successful read,
// NOT_SERVING while Redis reads fail.
func (r *Reporter) Observe(err error) {
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	r.hs.SetServingStatus(WorkerService, status)
	r.hs.SetServingStatus("", status)
}

// Shutdown reports NOT_SERVING for every service and rejects later updates.
func (r *Reporter) Shutdown() { r.hs.Shutdown() }

// Register attaches the grpc.health.v1 service to gs.
func (r *Reporter) Register(gs *grpc.Server) { healthpb.RegisterHealthServer(gs, r.hs) }

// RunServer serves grpc.health.v1 on addr and blocks until ctx is done.
func RunServer(ctx context.Context, addr string, r *Reporter, log *zap.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, lis, r, log)
}

func Serve(ctx context.Context, lis net.Listener, r *Reporter, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	gs := grpc.NewServer(grpc.Creds(insecure.NewCredentials()))
	r.Register(gs)
	errCh := make(chan error, 1)
	go func() {
		log.Info("grpc_health_started", zap.String("addr", lis.Addr().String()))
		errCh <- gs.Serve(lis)
	}()
	select {
	case <-ctx.Done():
		log.Info("grpc_health_stopping")
		r.Shutdown()
		gs.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
