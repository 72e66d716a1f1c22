package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"marketdata-service/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a fetched payload is served from cache.
const DefaultCacheTTL = time.Hour

// Param is one named request parameter. Order matters: it drives the cache
// key and the published summary.
type Param struct {
	Name  string
	Value string
}

type Params []Param

func (p Params) Values() url.Values {
	v := make(url.Values, len(p))
	for _, kv := range p {
		v.Set(kv.Name, kv.Value)
	}
	return v
}

func (p Params) Get(name string) string {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value
		}
	}
	return ""
}

// Endpoint configures one instantiation of the pipeline.
type Endpoint struct {
	// Name prefixes the cache key.
	Name string
	// Path is the upstream endpoint, relative to the provider base URL.
	Path string
	// Stream receives the notification after a successful fill.
	Stream string
	// ListField selects the list inside an object response. The selected
	// list (or [] when absent) is what gets cached and returned.
	ListField string
	// Normalize maps the payload to zero or more rows.
	Normalize func(params Params, payload json.RawMessage) ([]domain.Record, error)
}

// CacheKey is the endpoint name followed by the parameter values, joined by "_".
func (e Endpoint) CacheKey(params Params) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, e.Name)
	for _, p := range params {
		parts = append(parts, p.Value)
	}
	return strings.Join(parts, "_")
}

func (e Endpoint) payload(raw json.RawMessage) (json.RawMessage, error) {
	if e.ListField == "" {
		return raw, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: expected object with %q: %v", domain.ErrMalformed, e.ListField, err)
	}
	list, ok := obj[e.ListField]
	if !ok || bytes.Equal(bytes.TrimSpace(list), []byte("null")) {
		return json.RawMessage(`[]`), nil
	}
	return list, nil
}

func (e Endpoint) summary(params Params, count int) map[string]any {
	msg := make(map[string]any, len(params)+1)
	for _, p := range params {
		msg[p.Name] = p.Value
	}
	msg["count"] = count
	return msg
}

// Pipeline runs check cache -> fetch upstream -> persist -> cache -> publish.
type Pipeline struct {
	upstream     Upstream
	cache        Cache
	store        RecordStore
	publisher    Publisher
	uow          UnitOfWork
	ttl          time.Duration
	publishFatal bool
	flight       *singleflight.Group
	logger       func(ctx context.Context) *zap.Logger
}

type Option func(*Pipeline)

// WithUnitOfWork sets the transaction boundary used around the inserts of one request.
func WithUnitOfWork(u UnitOfWork) Option { return func(p *Pipeline) { p.uow = u } }

func WithCacheTTL(ttl time.Duration) Option { return func(p *Pipeline) { p.ttl = ttl } }

// WithPublishFailFatal makes a failed publish fail the request. Rows and
// cache entry written before the publish stay in place.
func WithPublishFailFatal(fatal bool) Option { return func(p *Pipeline) { p.publishFatal = fatal } }

// WithSingleflight collapses concurrent misses on the same cache key into
// one upstream call. The shared fill runs detached from the cancellation of
// the caller that started it.
func WithSingleflight(enabled bool) Option {
	return func(p *Pipeline) {
		if enabled {
			p.flight = &singleflight.Group{}
		} else {
			p.flight = nil
		}
	}
}

// WithLogger sets the per-request logger source.
func WithLogger(fn func(ctx context.Context) *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = fn }
}

func NewPipeline(upstream Upstream, cache Cache, store RecordStore, publisher Publisher, opts ...Option) *Pipeline {
	p := &Pipeline{
		upstream:  upstream,
		cache:     cache,
		store:     store,
		publisher: publisher,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.uow == nil {
		p.uow = NoopUoW{}
	}
	if p.ttl <= 0 {
		p.ttl = DefaultCacheTTL
	}
	if p.logger == nil {
		nop := zap.NewNop()
		p.logger = func(context.Context) *zap.Logger { return nop }
	}
	return p
}

// Run serves ep for params. A cache hit returns immediately without any
// side effect. On a miss the payload is fetched, persisted, cached and
// announced, in that order; an upstream or persistence failure stops the
// run before the cache is written.
func (p *Pipeline) Run(ctx context.Context, ep Endpoint, params Params) (json.RawMessage, error) {
	key := ep.CacheKey(params)
	log := p.logger(ctx).With(zap.String("endpoint", ep.Name), zap.String("cache_key", key))

	if cached, ok := p.lookup(ctx, log, key); ok {
		log.Debug("pipeline.cache_hit")
		return cached, nil
	}

	if p.flight == nil {
		return p.fill(ctx, log, ep, params, key)
	}
	// The shared fill outlives any single caller; each caller still stops
	// waiting when its own ctx is done.
	ch := p.flight.DoChan(key, func() (any, error) {
		return p.fill(context.WithoutCancel(ctx), log, ep, params, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debug("pipeline.fill_shared")
		}
		return res.Val.(json.RawMessage), nil
	}
}

func (p *Pipeline) lookup(ctx context.Context, log *zap.Logger, key string) (json.RawMessage, bool) {
	b, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		log.Warn("pipeline.cache_read_failed", zap.Error(fmt.Errorf("%w: %w", ErrCache, err)))
		return nil, false
	}
	if !ok || len(b) == 0 {
		return nil, false
	}
	return b, true
}

func (p *Pipeline) fill(ctx context.Context, log *zap.Logger, ep Endpoint, params Params, key string) (json.RawMessage, error) {
	raw, err := p.upstream.Fetch(ctx, ep.Path, params.Values())
	if err != nil {
		log.Warn("pipeline.upstream_failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, ep.Path, err)
	}
	payload, err := ep.payload(raw)
	if err != nil {
		log.Warn("pipeline.payload_invalid", zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, ep.Path, err)
	}
	records, err := ep.Normalize(params, payload)
	if err != nil {
		log.Warn("pipeline.normalize_failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, ep.Path, err)
	}

	if err := p.persist(ctx, records); err != nil {
		log.Error("pipeline.persist_failed", zap.Int("records", len(records)), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrPersistence, ep.Name, err)
	}

	if err := p.cache.Set(ctx, key, payload, p.ttl); err != nil {
		log.Warn("pipeline.cache_write_failed", zap.Error(fmt.Errorf("%w: %w", ErrCache, err)))
	}

	if err := p.publisher.Publish(ctx, ep.Stream, ep.summary(params, len(records))); err != nil {
		if p.publishFatal {
			log.Error("pipeline.publish_failed", zap.String("stream", ep.Stream), zap.Error(err))
			return nil, fmt.Errorf("%w: %s: %w", ErrPublish, ep.Stream, err)
		}
		log.Warn("pipeline.publish_failed", zap.String("stream", ep.Stream), zap.Error(err))
	}

	log.Info("pipeline.filled", zap.Int("records", len(records)))
	return payload, nil
}

func (p *Pipeline) persist(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	return p.uow.Do(ctx, func(ctx context.Context) error {
		for _, rec := range records {
			if err := p.store.Insert(ctx, rec); err != nil {
				return fmt.Errorf("insert %s: %w", rec.Table(), err)
			}
		}
		return nil
	})
}
