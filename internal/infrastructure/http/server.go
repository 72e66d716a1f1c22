package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"marketdata-service/internal/application"
	"marketdata-service/internal/infrastructure/logx"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"
)

// MarketService is the application surface served over HTTP.
type MarketService interface {
	Quote(ctx context.Context, symbol string) (json.RawMessage, error)
	CompanyProfile(ctx context.Context, symbol string) (json.RawMessage, error)
	News(ctx context.Context, symbol, from, to string) (json.RawMessage, error)
	EarningsCalendar(ctx context.Context, from, to string) (json.RawMessage, error)
	IPOCalendar(ctx context.Context, from, to string) (json.RawMessage, error)
	EconomicCalendar(ctx context.Context, from, to string) (json.RawMessage, error)
	Countries(ctx context.Context) (json.RawMessage, error)
	InsiderTransactions(ctx context.Context, symbol, from, to string) (json.RawMessage, error)
}

var _ MarketService = (*application.MarketService)(nil)

type Server struct {
	svc  MarketService
	ping func(ctx context.Context) error
}

func NewServer(svc MarketService) *Server { return &Server{svc: svc} }

// SetReadyCheck installs the probe behind /readyz.
func (s *Server) SetReadyCheck(fn func(ctx context.Context) error) { s.ping = fn }

func (s *Server) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol, ok := bindSymbol(w, r)
	if !ok {
		return
	}
	s.respond(w, r, func(ctx context.Context) (json.RawMessage, error) { return s.svc.Quote(ctx, symbol) })
}

func (s *Server) GetCompanyProfile(w http.ResponseWriter, r *http.Request) {
	symbol, ok := bindSymbol(w, r)
	if !ok {
		return
	}
	s.respond(w, r, func(ctx context.Context) (json.RawMessage, error) { return s.svc.CompanyProfile(ctx, symbol) })
}

func (s *Server) GetNews(w http.ResponseWriter, r *http.Request) {
	symbol, ok := bindSymbol(w, r)
	if !ok {
		return
	}
	from, to, ok := bindRange(w, r)
	if !ok {
		return
	}
	s.respond(w, r, func(ctx context.Context) (json.RawMessage, error) { return s.svc.News(ctx, symbol, from, to) })
}

func (s *Server) GetInsiderTransactions(w http.ResponseWriter, r *http.Request) {
	symbol, ok := bindSymbol(w, r)
	if !ok {
		return
	}
	from, to, ok := bindRange(w, r)
	if !ok {
		return
	}
	s.respond(w, r, func(ctx context.Context) (json.RawMessage, error) {
		return s.svc.InsiderTransactions(ctx, symbol, from, to)
	})
}

func (s *Server) GetEarningsCalendar(w http.ResponseWriter, r *http.Request) {
	from, to, ok := bindRange(w, r)
	if !ok {
		return
	}
	s.respond(w, r, func(ctx context.Context) (json.RawMessage, error) { return s.svc.EarningsCalendar(ctx, from, to) })
}

func (s *Server) GetIPOCalendar(w http.ResponseWriter, r *http.Request) {
	from, to, ok := bindRange(w, r)
	if !ok {
		return
	}
	s.respond(w, r, func(ctx context.Context) (json.RawMessage, error) { return s.svc.IPOCalendar(ctx, from, to) })
}

func (s *Server) GetEconomicCalendar(w http.ResponseWriter, r *http.Request) {
	from, to, ok := bindRange(w, r)
	if !ok {
		return
	}
	s.respond(w, r, func(ctx context.Context) (json.RawMessage, error) { return s.svc.EconomicCalendar(ctx, from, to) })
}

func (s *Server) GetCountries(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.svc.Countries)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, call func(ctx context.Context) (json.RawMessage, error)) {
	payload, err := call(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrBadRequest) {
			badRequest(w, err.Error())
			return
		}
		logx.WithFields(r.Context()).Error("http.pipeline_failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func bindSymbol(w http.ResponseWriter, r *http.Request) (string, bool) {
	var symbol string
	if err := runtime.BindQueryParameter("form", true, true, "symbol", r.URL.Query(), &symbol); err != nil {
		badRequest(w, err.Error())
		return "", false
	}
	return symbol, true
}

// bindRange reads the optional from/to bounds; empty values take the
// service defaults.
func bindRange(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	var from, to string
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "from", q, &from); err != nil {
		badRequest(w, err.Error())
		return "", "", false
	}
	if err := runtime.BindQueryParameter("form", true, false, "to", q, &to); err != nil {
		badRequest(w, err.Error())
		return "", "", false
	}
	return from, to, true
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}
