package domain

import (
	"encoding/json"

	"github.com/guregu/null/v5"
)

type MarketNews struct {
	Symbol      string
	Headline    null.String
	Source      null.String
	URL         null.String
	PublishedAt null.Int // unix seconds
	Data        json.RawMessage
}

func NewMarketNews(symbol string, it Item) MarketNews {
	return MarketNews{
		Symbol:      Truncate(symbol, symbolMax),
		Headline:    it.String("headline", 255),
		Source:      it.String("source", 255),
		URL:         it.String("url", 255),
		PublishedAt: it.Int("datetime"),
		Data:        it.Raw(),
	}
}

func (MarketNews) Table() string { return "market_news" }

func (MarketNews) Columns() []string {
	return []string{"symbol", "headline", "source", "url", "published_at", "data"}
}

func (n MarketNews) Values() []any {
	return []any{n.Symbol, n.Headline, n.Source, n.URL, n.PublishedAt, string(n.Data)}
}
