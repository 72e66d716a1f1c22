package application

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"marketdata-service/internal/domain"
)

// Upstream performs one GET against the market data provider and returns
// the decoded body untouched.
type Upstream interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error)
}

// Cache stores JSON payloads with a TTL. ok is false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (value json.RawMessage, ok bool, err error)
	Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error
}

// RecordStore appends normalized rows. Implementations join the transaction
// carried by ctx when there is one.
type RecordStore interface {
	Insert(ctx context.Context, rec domain.Record) error
}

// Publisher appends a notification to a named stream.
type Publisher interface {
	Publish(ctx context.Context, stream string, msg map[string]any) error
}
