package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketdata-service/internal/application"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// DataField is the stream entry field holding the JSON-encoded notification.
const DataField = "data"

// StreamPublisher appends notifications to Redis streams.
type StreamPublisher struct {
	Client *redis.Client
	// MaxElapsed bounds retries of a failed XADD. Zero tries once.
	MaxElapsed time.Duration
}

var _ application.Publisher = (*StreamPublisher)(nil)

func NewStreamPublisher(client *redis.Client, maxElapsed time.Duration) *StreamPublisher {
	return &StreamPublisher{Client: client, MaxElapsed: maxElapsed}
}

func (p *StreamPublisher) Publish(ctx context.Context, stream string, msg map[string]any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis: publish %s: encode: %w", stream, err)
	}
	op := func() error {
		return p.Client.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			ID:     "*",
			Values: map[string]any{DataField: string(data)},
		}).Err()
	}

	if p.MaxElapsed <= 0 {
		err = op()
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = 100 * time.Millisecond
		exp.MaxInterval = time.Second
		exp.MaxElapsedTime = p.MaxElapsed
		err = backoff.Retry(op, backoff.WithContext(exp, ctx))
	}
	if err != nil {
		return fmt.Errorf("redis: publish %s: %w", stream, err)
	}
	return nil
}
