package application

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"marketdata-service/internal/domain"
)

var (
	errBoom = errors.New("boom")
)

type fakeUpstream struct {
	mu    sync.Mutex
	body  string
	err   error
	calls int
	last  struct {
		endpoint string
		params   url.Values
	}
	gate chan struct{}
}

func (f *fakeUpstream) Fetch(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last.endpoint, f.last.params = endpoint, params
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.body), nil
}

func (f *fakeUpstream) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type cacheSet struct {
	key   string
	value string
	ttl   time.Duration
}

type fakeCache struct {
	mu     sync.Mutex
	data   map[string]string
	sets   []cacheSet
	getErr error
	setErr error
}

func (f *fakeCache) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	return json.RawMessage(v), true, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, cacheSet{key: key, value: string(value), ttl: ttl})
	if f.setErr != nil {
		return f.setErr
	}
	if f.data == nil {
		f.data = map[string]string{}
	}
	f.data[key] = string(value)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	rows    []domain.Record
	err     error
	failAt  int // 1-based insert that fails; 0 never
	inserts int
}

func (f *fakeStore) Insert(ctx context.Context, rec domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.err != nil && (f.failAt == 0 || f.failAt == f.inserts) {
		return f.err
	}
	if txs, ok := ctx.Value(fakeTxKey{}).(*fakeTx); ok {
		txs.pending = append(txs.pending, rec)
		return nil
	}
	f.rows = append(f.rows, rec)
	return nil
}

type fakeTxKey struct{}

type fakeTx struct{ pending []domain.Record }

// fakeUoW buffers inserts and only hands them to the store on success.
type fakeUoW struct {
	store     *fakeStore
	commits   int
	rollbacks int
}

func (u *fakeUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := &fakeTx{}
	if err := fn(context.WithValue(ctx, fakeTxKey{}, tx)); err != nil {
		u.rollbacks++
		return err
	}
	u.store.mu.Lock()
	u.store.rows = append(u.store.rows, tx.pending...)
	u.store.mu.Unlock()
	u.commits++
	return nil
}

type publishCall struct {
	stream string
	msg    map[string]any
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, stream string, msg map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, publishCall{stream: stream, msg: msg})
	return f.err
}

type harness struct {
	up    *fakeUpstream
	cache *fakeCache
	store *fakeStore
	uow   *fakeUoW
	pub   *fakePublisher
}

func newHarness(body string) *harness {
	store := &fakeStore{}
	return &harness{
		up:    &fakeUpstream{body: body},
		cache: &fakeCache{data: map[string]string{}},
		store: store,
		uow:   &fakeUoW{store: store},
		pub:   &fakePublisher{},
	}
}

func (h *harness) pipeline(opts ...Option) *Pipeline {
	opts = append([]Option{WithUnitOfWork(h.uow)}, opts...)
	return NewPipeline(h.up, h.cache, h.store, h.pub, opts...)
}
