package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusPersisted OrderStatus = "persisted"
)

// Order is the snapshot of a finalized cart.
type Order struct {
	ID        string
	Items     Cart
	Total     decimal.Decimal
	Status    OrderStatus
	CreatedAt time.Time
}
