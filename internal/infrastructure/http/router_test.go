package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"marketdata-service/internal/application"
	"marketdata-service/internal/domain"
	"marketdata-service/internal/infrastructure/httpx"
	"marketdata-service/internal/infrastructure/provider"
	redisstore "marketdata-service/internal/infrastructure/redis"
	"marketdata-service/internal/infrastructure/sqlite"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const quoteBody = `{"c":189.84,"h":191.05,"l":187.45,"o":188.15,"pc":187.44}`

type stack struct {
	handler       http.Handler
	server        *Server
	db            *sqlite.DB
	redis         *redis.Client
	upstreamCalls *atomic.Int32
}

// newStack wires the real adapters: a fake Finnhub over httptest, miniredis
// for cache and streams, in-memory sqlite for rows.
func newStack(t *testing.T, upstream http.HandlerFunc) *stack {
	t.Helper()
	calls := &atomic.Int32{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		upstream(w, r)
	}))
	t.Cleanup(ts.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	up := &provider.Finnhub{BaseURL: ts.URL, APIKey: "test", Client: &httpx.Client{HTTP: ts.Client()}}
	p := application.NewPipeline(up, redisstore.NewCache(rc), sqlite.NewRecordStore(db), redisstore.NewStreamPublisher(rc, 0),
		application.WithUnitOfWork(&sqlite.UnitOfWork{DB: db.SQL}))
	srv := NewServer(application.NewMarketService(p, domain.DefaultCountryPlaceholders))
	srv.SetReadyCheck(db.Ping)
	return &stack{handler: NewRouter(srv, []string{"http://localhost:3000"}), server: srv, db: db, redis: rc, upstreamCalls: calls}
}

func (s *stack) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func finnhubMux(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/quote":
			_, _ = w.Write([]byte(quoteBody))
		case "/calendar/earnings":
			_, _ = w.Write([]byte(`{"earningsCalendar":[{"symbol":"AAPL","date":"2025-01-30","epsEstimate":2.35},{"symbol":"MSFT","date":"2025-01-29"}]}`))
		case "/calendar/ipo":
			_, _ = w.Write([]byte(`{"ipoCalendar":[{"name":"Unpriced Co","date":"2025-03-01"},{"symbol":"NEWC","name":"New Co","date":"2025-03-02","exchange":"NASDAQ"}]}`))
		case "/country":
			_, _ = w.Write([]byte(`[{"code2":"US","country":"United States","currency":"US Dollar"}]`))
		default:
			http.NotFound(w, r)
		}
	}
}

func TestHealthz(t *testing.T) {
	s := newStack(t, finnhubMux(t))
	rec := s.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestReadyz(t *testing.T) {
	s := newStack(t, finnhubMux(t))
	require.Equal(t, http.StatusOK, s.get(t, "/readyz").Code)

	s.server.SetReadyCheck(func(context.Context) error { return errors.New("db down") })
	rec := s.get(t, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"detail":"store not ready"}`, rec.Body.String())
}

func TestQuote_MissThenHit(t *testing.T) {
	s := newStack(t, finnhubMux(t))
	ctx := context.Background()

	rec := s.get(t, "/market/quote?symbol=AAPL")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, quoteBody, rec.Body.String())

	var n int
	require.NoError(t, s.db.SQL.QueryRowContext(ctx, `SELECT count(*) FROM stock_quotes WHERE symbol='AAPL'`).Scan(&n))
	require.Equal(t, 1, n)

	cached, err := s.redis.Get(ctx, "stock_quote_AAPL").Result()
	require.NoError(t, err)
	require.JSONEq(t, quoteBody, cached)

	entries, err := s.redis.XRange(ctx, application.StreamStockQuotes, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.JSONEq(t, `{"symbol":"AAPL","count":1}`, entries[0].Values[redisstore.DataField].(string))

	rec = s.get(t, "/market/quote?symbol=AAPL")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, quoteBody, rec.Body.String())
	require.Equal(t, int32(1), s.upstreamCalls.Load())
	require.NoError(t, s.db.SQL.QueryRowContext(ctx, `SELECT count(*) FROM stock_quotes`).Scan(&n))
	require.Equal(t, 1, n)
}

func TestEarningsCalendar_ReturnsList(t *testing.T) {
	s := newStack(t, finnhubMux(t))
	rec := s.get(t, "/calendar/earnings?from=2025-01-01&to=2025-01-31")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)

	var n int
	require.NoError(t, s.db.SQL.QueryRow(`SELECT count(*) FROM earnings_calendar`).Scan(&n))
	require.Equal(t, 2, n)

	entries, err := s.redis.XRange(context.Background(), application.StreamEarningsCalendar, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.JSONEq(t, `{"from":"2025-01-01","to":"2025-01-31","count":2}`, entries[0].Values[redisstore.DataField].(string))
}

func TestIPOCalendar_ItemWithoutSymbol(t *testing.T) {
	s := newStack(t, finnhubMux(t))
	rec := s.get(t, "/calendar/ipos?from=2025-03-01&to=2025-03-31")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)

	var n int
	require.NoError(t, s.db.SQL.QueryRow(`SELECT count(*) FROM ipo_calendar WHERE symbol IS NULL`).Scan(&n))
	require.Equal(t, 1, n)
	require.NoError(t, s.db.SQL.QueryRow(`SELECT count(*) FROM ipo_calendar`).Scan(&n))
	require.Equal(t, 2, n)
}

func TestCountries(t *testing.T) {
	s := newStack(t, finnhubMux(t))
	rec := s.get(t, "/economic/countries")
	require.Equal(t, http.StatusOK, rec.Code)

	var code string
	require.NoError(t, s.db.SQL.QueryRow(`SELECT code FROM countries`).Scan(&code))
	require.Equal(t, "US", code)
}

func TestBadRequests(t *testing.T) {
	s := newStack(t, finnhubMux(t))
	for _, target := range []string{
		"/market/quote",
		"/market/quote?symbol=",
		"/market/company",
		"/market/news?symbol=AAPL&from=01-01-2025",
		"/calendar/ipos?from=2025-12-31&to=2025-01-01",
	} {
		rec := s.get(t, target)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), target)
		require.NotEmpty(t, body.Detail, target)
	}
	require.Zero(t, s.upstreamCalls.Load())
}

func TestUpstreamFailure_500(t *testing.T) {
	s := newStack(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"API limit reached"}`))
	})
	rec := s.get(t, "/market/company?symbol=AAPL")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body.Detail, "upstream")

	var n int
	require.NoError(t, s.db.SQL.QueryRow(`SELECT count(*) FROM company_profiles`).Scan(&n))
	require.Zero(t, n)
	require.Zero(t, s.redis.Exists(context.Background(), "company_profile_AAPL").Val())
}

func TestCORSPreflight(t *testing.T) {
	s := newStack(t, finnhubMux(t))
	req := httptest.NewRequest(http.MethodOptions, "/market/quote?symbol=AAPL", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenAPIAndSwagger(t *testing.T) {
	s := newStack(t, finnhubMux(t))
	rec := s.get(t, "/openapi.yaml")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/market/quote")
	rec = s.get(t, "/swagger")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "swagger-ui")
}

type panicService struct{ MarketService }

func (panicService) Countries(context.Context) (json.RawMessage, error) { panic("boom") }

func TestRecoverer_JSON500(t *testing.T) {
	h := NewRouter(NewServer(panicService{}), nil)
	req := httptest.NewRequest(http.MethodGet, "/economic/countries", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"detail":"Internal Server Error"}`, rec.Body.String())
}
