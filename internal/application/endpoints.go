package application

import (
	"encoding/json"
	"fmt"

	"marketdata-service/internal/domain"
)

// Stream names notifications are published to.
const (
	StreamStockQuotes         = "stock_quotes"
	StreamCompanyProfiles     = "company_profiles"
	StreamMarketNews          = "market_news"
	StreamEarningsCalendar    = "earnings_calendar"
	StreamIPOCalendar         = "ipo_calendar"
	StreamEconomicCalendar    = "economic_calendar"
	StreamCountries           = "countries"
	StreamInsiderTransactions = "insider_transactions"
)

// Streams lists every stream the service publishes to.
var Streams = []string{
	StreamStockQuotes,
	StreamCompanyProfiles,
	StreamMarketNews,
	StreamEarningsCalendar,
	StreamIPOCalendar,
	StreamEconomicCalendar,
	StreamCountries,
	StreamInsiderTransactions,
}

var QuoteEndpoint = Endpoint{
	Name:   "stock_quote",
	Path:   "quote",
	Stream: StreamStockQuotes,
	Normalize: func(params Params, payload json.RawMessage) ([]domain.Record, error) {
		it, err := domain.DecodeObject(payload)
		if err != nil {
			return nil, err
		}
		return []domain.Record{domain.NewStockQuote(params.Get("symbol"), it)}, nil
	},
}

var CompanyProfileEndpoint = Endpoint{
	Name:   "company_profile",
	Path:   "stock/profile2",
	Stream: StreamCompanyProfiles,
	Normalize: func(params Params, payload json.RawMessage) ([]domain.Record, error) {
		it, err := domain.DecodeObject(payload)
		if err != nil {
			return nil, err
		}
		return []domain.Record{domain.NewCompanyProfile(params.Get("symbol"), it)}, nil
	},
}

var NewsEndpoint = Endpoint{
	Name:   "market_news",
	Path:   "company-news",
	Stream: StreamMarketNews,
	Normalize: func(params Params, payload json.RawMessage) ([]domain.Record, error) {
		return eachItem(payload, func(it domain.Item) (domain.Record, error) {
			return domain.NewMarketNews(params.Get("symbol"), it), nil
		})
	},
}

var EarningsCalendarEndpoint = Endpoint{
	Name:      "earnings_calendar",
	Path:      "calendar/earnings",
	Stream:    StreamEarningsCalendar,
	ListField: "earningsCalendar",
	Normalize: func(_ Params, payload json.RawMessage) ([]domain.Record, error) {
		return eachItem(payload, func(it domain.Item) (domain.Record, error) {
			return domain.NewEarningsEvent(it)
		})
	},
}

var IPOCalendarEndpoint = Endpoint{
	Name:      "ipo_calendar",
	Path:      "calendar/ipo",
	Stream:    StreamIPOCalendar,
	ListField: "ipoCalendar",
	Normalize: func(_ Params, payload json.RawMessage) ([]domain.Record, error) {
		return eachItem(payload, func(it domain.Item) (domain.Record, error) {
			return domain.NewIPOEvent(it)
		})
	},
}

var EconomicCalendarEndpoint = Endpoint{
	Name:      "economic_calendar",
	Path:      "calendar/economic",
	Stream:    StreamEconomicCalendar,
	ListField: "economicCalendar",
	Normalize: func(_ Params, payload json.RawMessage) ([]domain.Record, error) {
		return eachItem(payload, func(it domain.Item) (domain.Record, error) {
			return domain.NewEconomicEvent(it)
		})
	},
}

var InsiderTransactionsEndpoint = Endpoint{
	Name:      "stock_insider_transactions",
	Path:      "stock/insider-transactions",
	Stream:    StreamInsiderTransactions,
	ListField: "data",
	Normalize: func(params Params, payload json.RawMessage) ([]domain.Record, error) {
		return eachItem(payload, func(it domain.Item) (domain.Record, error) {
			return domain.NewInsiderTransaction(params.Get("symbol"), it)
		})
	},
}

// CountriesEndpoint builds the country endpoint with the given placeholder policy.
func CountriesEndpoint(ph domain.CountryPlaceholders) Endpoint {
	return Endpoint{
		Name:   "countries",
		Path:   "country",
		Stream: StreamCountries,
		Normalize: func(_ Params, payload json.RawMessage) ([]domain.Record, error) {
			return eachItem(payload, func(it domain.Item) (domain.Record, error) {
				return domain.NewCountry(it, ph), nil
			})
		},
	}
}

func eachItem(payload json.RawMessage, fn func(domain.Item) (domain.Record, error)) ([]domain.Record, error) {
	items, err := domain.DecodeList(payload)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Record, 0, len(items))
	for i, it := range items {
		rec, err := fn(it)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
