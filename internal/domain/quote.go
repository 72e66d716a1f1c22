package domain

import (
	"encoding/json"

	"github.com/guregu/null/v5"
)

const symbolMax = 20

type StockQuote struct {
	Symbol         string
	CurrentPrice   null.Float
	HighPrice      null.Float
	LowPrice       null.Float
	OpenPrice      null.Float
	PrevClosePrice null.Float
	Data           json.RawMessage
}

// NewStockQuote maps a /quote response ({c,h,l,o,pc,...}).
func NewStockQuote(symbol string, it Item) StockQuote {
	return StockQuote{
		Symbol:         Truncate(symbol, symbolMax),
		CurrentPrice:   it.Float("c"),
		HighPrice:      it.Float("h"),
		LowPrice:       it.Float("l"),
		OpenPrice:      it.Float("o"),
		PrevClosePrice: it.Float("pc"),
		Data:           it.Raw(),
	}
}

func (StockQuote) Table() string { return "stock_quotes" }

func (StockQuote) Columns() []string {
	return []string{"symbol", "current_price", "high_price", "low_price", "open_price", "prev_close_price", "data"}
}

func (q StockQuote) Values() []any {
	return []any{q.Symbol, q.CurrentPrice, q.HighPrice, q.LowPrice, q.OpenPrice, q.PrevClosePrice, string(q.Data)}
}
