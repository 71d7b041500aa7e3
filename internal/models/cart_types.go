package models

import "github.com/shopspring/decimal"

// CartEntry is one line of a visitor's session cart. Price is captured when the
// product is added and is not refreshed afterwards.
type CartEntry struct {
	ProductID int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (e CartEntry) LineTotal() decimal.Decimal {
	return e.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}
