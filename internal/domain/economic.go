package domain

import (
	"encoding/json"

	"github.com/guregu/null/v5"
)

// EconomicEvent is one row of the economic calendar (CPI prints, rate
// decisions, ...). actual/forecast/previous are kept as text since the
// upstream mixes units.
type EconomicEvent struct {
	Country  null.String
	Event    null.String
	Impact   null.String
	Actual   null.String
	Forecast null.String
	Previous null.String
	Date     null.Time
	Data     json.RawMessage
}

func NewEconomicEvent(it Item) (EconomicEvent, error) {
	date, err := it.Date("time")
	if err != nil {
		return EconomicEvent{}, err
	}
	return EconomicEvent{
		Country:  it.String("country", 100),
		Event:    it.String("event", 255),
		Impact:   it.String("impact", 50),
		Actual:   it.String("actual", 50),
		Forecast: it.String("estimate", 50),
		Previous: it.String("prev", 50),
		Date:     date,
		Data:     it.Raw(),
	}, nil
}

func (EconomicEvent) Table() string { return "economic_events" }

func (EconomicEvent) Columns() []string {
	return []string{"country", "event", "impact", "actual", "forecast", "previous", "date", "data"}
}

func (e EconomicEvent) Values() []any {
	return []any{e.Country, e.Event, e.Impact, e.Actual, e.Forecast, e.Previous, e.Date, string(e.Data)}
}
