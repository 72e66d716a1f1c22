package domain

import (
	"encoding/json"

	"github.com/guregu/null/v5"
)

type CompanyProfile struct {
	Symbol   string
	Name     null.String
	Exchange null.String
	Industry null.String
	Logo     null.String
	Data     json.RawMessage
}

func NewCompanyProfile(symbol string, it Item) CompanyProfile {
	return CompanyProfile{
		Symbol:   Truncate(symbol, symbolMax),
		Name:     it.String("name", 255),
		Exchange: it.String("exchange", 50),
		Industry: it.String("finnhubIndustry", 100),
		Logo:     it.String("logo", 255),
		Data:     it.Raw(),
	}
}

func (CompanyProfile) Table() string { return "company_profiles" }

func (CompanyProfile) Columns() []string {
	return []string{"symbol", "name", "exchange", "industry", "logo", "data"}
}

func (c CompanyProfile) Values() []any {
	return []any{c.Symbol, c.Name, c.Exchange, c.Industry, c.Logo, string(c.Data)}
}
