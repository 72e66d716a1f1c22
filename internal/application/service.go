package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"marketdata-service/internal/domain"
)

// Date range used when a calendar request leaves from/to empty.
const (
	DefaultFrom = "2025-01-01"
	DefaultTo   = "2025-12-31"
)

// MarketService exposes one method per data domain, each a thin
// configuration of the shared pipeline.
type MarketService struct {
	pipeline  *Pipeline
	countries Endpoint
}

func NewMarketService(p *Pipeline, placeholders domain.CountryPlaceholders) *MarketService {
	return &MarketService{
		pipeline:  p,
		countries: CountriesEndpoint(placeholders),
	}
}

func (s *MarketService) Quote(ctx context.Context, symbol string) (json.RawMessage, error) {
	if err := requireSymbol(symbol); err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, QuoteEndpoint, Params{{"symbol", symbol}})
}

func (s *MarketService) CompanyProfile(ctx context.Context, symbol string) (json.RawMessage, error) {
	if err := requireSymbol(symbol); err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, CompanyProfileEndpoint, Params{{"symbol", symbol}})
}

func (s *MarketService) News(ctx context.Context, symbol, from, to string) (json.RawMessage, error) {
	if err := requireSymbol(symbol); err != nil {
		return nil, err
	}
	from, to, err := dateRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, NewsEndpoint, Params{{"symbol", symbol}, {"from", from}, {"to", to}})
}

func (s *MarketService) EarningsCalendar(ctx context.Context, from, to string) (json.RawMessage, error) {
	from, to, err := dateRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, EarningsCalendarEndpoint, Params{{"from", from}, {"to", to}})
}

func (s *MarketService) IPOCalendar(ctx context.Context, from, to string) (json.RawMessage, error) {
	from, to, err := dateRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, IPOCalendarEndpoint, Params{{"from", from}, {"to", to}})
}

func (s *MarketService) EconomicCalendar(ctx context.Context, from, to string) (json.RawMessage, error) {
	from, to, err := dateRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, EconomicCalendarEndpoint, Params{{"from", from}, {"to", to}})
}

func (s *MarketService) Countries(ctx context.Context) (json.RawMessage, error) {
	return s.pipeline.Run(ctx, s.countries, nil)
}

func (s *MarketService) InsiderTransactions(ctx context.Context, symbol, from, to string) (json.RawMessage, error) {
	if err := requireSymbol(symbol); err != nil {
		return nil, err
	}
	from, to, err := dateRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, InsiderTransactionsEndpoint, Params{{"symbol", symbol}, {"from", from}, {"to", to}})
}

func requireSymbol(symbol string) error {
	if strings.TrimSpace(symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrBadRequest)
	}
	return nil
}

// dateRange fills in the defaults and checks both bounds are YYYY-MM-DD
// with from <= to.
func dateRange(from, to string) (string, string, error) {
	if from == "" {
		from = DefaultFrom
	}
	if to == "" {
		to = DefaultTo
	}
	f, err := time.Parse(domain.DateLayout, from)
	if err != nil {
		return "", "", fmt.Errorf("%w: from must be YYYY-MM-DD", ErrBadRequest)
	}
	t, err := time.Parse(domain.DateLayout, to)
	if err != nil {
		return "", "", fmt.Errorf("%w: to must be YYYY-MM-DD", ErrBadRequest)
	}
	if f.After(t) {
		return "", "", fmt.Errorf("%w: from is after to", ErrBadRequest)
	}
	return from, to, nil
}
