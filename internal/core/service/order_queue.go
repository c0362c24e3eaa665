package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const orderWriteTimeout = 5 * time.Second

// OrderQueue buffers finalized orders for asynchronous persistence.
type OrderQueue struct {
	mu     sync.RWMutex
	closed bool
	queue  chan domain.Order
	logger *zap.Logger
}

func NewOrderQueue(size int, logger *zap.Logger) *OrderQueue {
	if size < 0 {
		size = 0
	}
	return &OrderQueue{
		queue:  make(chan domain.Order, size),
		logger: logger,
	}
}

// Publish enqueues order, dropping it when the queue is full or closed.
func (q *OrderQueue) Publish(order domain.Order) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("order queue closed, dropping order", zap.String("order_id", order.ID))
		return
	}
	select {
	case q.queue <- order:
	default:
		q.logger.Warn("order queue full, dropping order", zap.String("order_id", order.ID))
	}
}

func (q *OrderQueue) Orders() <-chan domain.Order {
	return q.queue
}

// Close stops accepting orders. Calling it again is a no-op.
func (q *OrderQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.queue)
}

// Work persists queued orders until the queue is closed.
func (q *OrderQueue) Work(id int, repo port.OrderRepository) {
	for order := range q.queue {
		ctx, cancel := context.WithTimeout(context.Background(), orderWriteTimeout)

		if err := repo.CreateOrder(ctx, order); err != nil {
			q.logger.Error("failed to save order",
				zap.Int("worker", id), zap.String("order_id", order.ID), zap.Error(err))
		} else {
			q.logger.Info("saved order", zap.Int("worker", id), zap.String("order_id", order.ID))
		}

		cancel()
	}
}
