package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// Stock is the maximum quantity of a product a cart may hold.
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Valid reports whether p carries the fields a line item needs.
func (p Product) Valid() bool {
	return p.ID > 0 && p.Title != "" && !p.Price.IsNegative()
}
