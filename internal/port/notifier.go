package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// OrderPublisher receives finalized orders. Publish must not block.
type OrderPublisher interface {
	Publish(order domain.Order)
}
