package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Catalog is the remote product and stock source the cart validates against.
type Catalog interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (domain.Product, error)
	Stocks(ctx context.Context) ([]domain.Stock, error)
	Stock(ctx context.Context, id int64) (domain.Stock, error)
}
