package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// CatalogRepository is the database behind the catalog backend.
type CatalogRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// GetProduct returns nil when the product does not exist
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	ListStock(ctx context.Context) ([]domain.Stock, error)
}

// StockCache mirrors stock levels for fast reads by the catalog backend.
type StockCache interface {
	SetStock(ctx context.Context, productID int64, amount int) error

	// GetStock returns nil when no stock is recorded for productID
	GetStock(ctx context.Context, productID int64) (*domain.Stock, error)

	ListStock(ctx context.Context) ([]domain.Stock, error)
}

// OrderRepository persists finalized orders.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order domain.Order) error
}
