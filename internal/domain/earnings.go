package domain

import (
	"encoding/json"

	"github.com/guregu/null/v5"
)

type EarningsEvent struct {
	Symbol          null.String
	Date            null.Time
	EPSEstimate     null.Float
	EPSActual       null.Float
	RevenueEstimate null.Float
	RevenueActual   null.Float
	Data            json.RawMessage
}

func NewEarningsEvent(it Item) (EarningsEvent, error) {
	date, err := it.Date("date")
	if err != nil {
		return EarningsEvent{}, err
	}
	return EarningsEvent{
		Symbol:          it.String("symbol", symbolMax),
		Date:            date,
		EPSEstimate:     it.Float("epsEstimate"),
		EPSActual:       it.Float("epsActual"),
		RevenueEstimate: it.Float("revenueEstimate"),
		RevenueActual:   it.Float("revenueActual"),
		Data:            it.Raw(),
	}, nil
}

func (EarningsEvent) Table() string { return "earnings_calendar" }

func (EarningsEvent) Columns() []string {
	return []string{"symbol", "date", "eps_estimate", "eps_actual", "revenue_estimate", "revenue_actual", "data"}
}

func (e EarningsEvent) Values() []any {
	return []any{e.Symbol, e.Date, e.EPSEstimate, e.EPSActual, e.RevenueEstimate, e.RevenueActual, string(e.Data)}
}
