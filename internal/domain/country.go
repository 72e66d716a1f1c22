package domain

import (
	"encoding/json"

	"github.com/guregu/null/v5"
)

const (
	countryCodeMax     = 10
	countryNameMax     = 100
	countryCurrencyMax = 100
	countryTimezoneMax = 50
)

// CountryPlaceholders are stored instead of NULL when the upstream leaves a
// country field empty. An empty placeholder keeps the column NULL.
type CountryPlaceholders struct {
	Code     string
	Name     string
	Currency string
}

var DefaultCountryPlaceholders = CountryPlaceholders{
	Code:     "N/A",
	Name:     "Unknown",
	Currency: "Unknown",
}

type Country struct {
	Code     null.String
	Name     null.String
	Currency null.String
	Timezone null.String
	Data     json.RawMessage
}

func NewCountry(it Item, ph CountryPlaceholders) Country {
	return Country{
		Code:     it.StringOr("code2", countryCodeMax, ph.Code),
		Name:     it.StringOr("country", countryNameMax, ph.Name),
		Currency: it.StringOr("currency", countryCurrencyMax, ph.Currency),
		Timezone: it.String("timezone", countryTimezoneMax),
		Data:     it.Raw(),
	}
}

func (Country) Table() string { return "countries" }

func (Country) Columns() []string {
	return []string{"code", "name", "currency", "timezone", "data"}
}

func (c Country) Values() []any {
	return []any{c.Code, c.Name, c.Currency, c.Timezone, string(c.Data)}
}
