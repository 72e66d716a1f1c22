package domain

import (
	"encoding/json"

	"github.com/guregu/null/v5"
)

type InsiderTransaction struct {
	Symbol           string
	Name             null.String
	Share            null.Int
	Change           null.Int
	FilingDate       null.Time
	TransactionDate  null.Time
	TransactionCode  null.String
	TransactionPrice null.Float
	Data             json.RawMessage
}

// NewInsiderTransaction maps one element of the insider-transactions "data"
// list. The item's own symbol wins over the requested one.
func NewInsiderTransaction(symbol string, it Item) (InsiderTransaction, error) {
	filed, err := it.Date("filingDate")
	if err != nil {
		return InsiderTransaction{}, err
	}
	traded, err := it.Date("transactionDate")
	if err != nil {
		return InsiderTransaction{}, err
	}
	if s := it.String("symbol", symbolMax); s.Valid && s.String != "" {
		symbol = s.String
	}
	return InsiderTransaction{
		Symbol:           Truncate(symbol, symbolMax),
		Name:             it.String("name", 255),
		Share:            it.Int("share"),
		Change:           it.Int("change"),
		FilingDate:       filed,
		TransactionDate:  traded,
		TransactionCode:  it.String("transactionCode", 10),
		TransactionPrice: it.Float("transactionPrice"),
		Data:             it.Raw(),
	}, nil
}

func (InsiderTransaction) Table() string { return "insider_transactions" }

func (InsiderTransaction) Columns() []string {
	return []string{"symbol", "name", "share", "change", "filing_date", "transaction_date", "transaction_code", "transaction_price", "data"}
}

func (t InsiderTransaction) Values() []any {
	return []any{t.Symbol, t.Name, t.Share, t.Change, t.FilingDate, t.TransactionDate, t.TransactionCode, t.TransactionPrice, string(t.Data)}
}
