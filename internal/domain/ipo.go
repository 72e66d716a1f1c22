package domain

import (
	"encoding/json"

	"github.com/guregu/null/v5"
)

type IPOEvent struct {
	Symbol         null.String
	Company        null.String
	Date           null.Time
	Exchange       null.String
	PriceRange     null.String
	Shares         null.Int
	ExpectedAmount null.Float
	Data           json.RawMessage
}

func NewIPOEvent(it Item) (IPOEvent, error) {
	date, err := it.Date("date")
	if err != nil {
		return IPOEvent{}, err
	}
	return IPOEvent{
		Symbol:         it.String("symbol", symbolMax),
		Company:        it.String("name", 255),
		Date:           date,
		Exchange:       it.String("exchange", 50),
		PriceRange:     it.String("price", 50),
		Shares:         it.Int("numberOfShares"),
		ExpectedAmount: it.Float("totalSharesValue"),
		Data:           it.Raw(),
	}, nil
}

func (IPOEvent) Table() string { return "ipo_calendar" }

func (IPOEvent) Columns() []string {
	return []string{"symbol", "company", "date", "exchange", "price_range", "shares", "expected_amount", "data"}
}

func (e IPOEvent) Values() []any {
	return []any{e.Symbol, e.Company, e.Date, e.Exchange, e.PriceRange, e.Shares, e.ExpectedAmount, string(e.Data)}
}
