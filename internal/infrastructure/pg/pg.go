package pg

import (
	"context"
	"fmt"
	"time"

	infraconfig "marketdata-service/internal/infrastructure/config"
	"marketdata-service/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
)

type DB struct{ Pool *pgxpool.Pool }

func Connect(ctx context.Context, url string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("pg: parse url: %w", err)
	}
	cfg.MaxConns, cfg.MinConns = infraconfig.DefaultPGMaxConns, infraconfig.DefaultPGMinConns
	cfg.MaxConnIdleTime = 2 * time.Minute
	cfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   tracelog.LoggerFunc(zapTraceLog),
		LogLevel: tracelog.LogLevelDebug,
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close()                         { d.Pool.Close() }
func (d *DB) Ping(ctx context.Context) error { return d.Pool.Ping(ctx) }

// zapTraceLog forwards pgx driver events to the request-scoped zap logger.
func zapTraceLog(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	log := logx.WithFields(ctx)
	fields := make([]zap.Field, 0, len(data))
	for k, v := range data {
		if k == "args" {
			continue
		}
		fields = append(fields, zap.Any(k, v))
	}
	event := "pgx." + msg
	switch level {
	case tracelog.LogLevelError:
		log.Error(event, fields...)
	case tracelog.LogLevelWarn:
		log.Warn(event, fields...)
	case tracelog.LogLevelInfo:
		log.Info(event, fields...)
	default:
		log.Debug(event, fields...)
	}
}
