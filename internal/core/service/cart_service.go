package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const DefaultStorageKey = "@RocketShoes:cart"

// CartService owns the in-memory cart. Every mutation is validated against
// catalog stock, written to the store and only then made visible to readers.
type CartService struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[domain.Cart]

	store    port.CartStore
	catalog  port.Catalog
	notifier port.Notifier
	orders   port.OrderPublisher
	messages *Messages
	logger   *zap.Logger
	key      string
	now      func() time.Time
}

type Option func(*CartService)

func WithStorageKey(key string) Option {
	return func(s *CartService) { s.key = key }
}

func WithMessages(m *Messages) Option {
	return func(s *CartService) { s.messages = m }
}

func WithOrderPublisher(p port.OrderPublisher) Option {
	return func(s *CartService) { s.orders = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *CartService) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *CartService) { s.now = now }
}

func NewCartService(store port.CartStore, catalog port.Catalog, notifier port.Notifier, opts ...Option) *CartService {
	s := &CartService{
		store:    store,
		catalog:  catalog,
		notifier: notifier,
		logger:   zap.NewNop(),
		key:      DefaultStorageKey,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.messages == nil {
		s.messages = MustMessages(DefaultLocale, DefaultCurrency)
	}
	s.snapshot.Store(&domain.Cart{})
	return s
}

// Load hydrates the cart from the store. A missing key yields an empty cart;
// an unreadable blob is discarded and malformed entries are dropped.
func (s *CartService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("%w: load: %w", ErrPersistenceFailure, err)
	}
	if !ok {
		s.set(domain.Cart{})
		return nil
	}

	cart, dropped, err := domain.DecodeCart([]byte(value))
	if err != nil {
		s.logger.Warn("discarding unreadable stored cart", zap.String("key", s.key), zap.Error(err))
		s.set(domain.Cart{})
		return nil
	}
	if dropped > 0 {
		s.logger.Warn("dropped malformed cart entries", zap.String("key", s.key), zap.Int("dropped", dropped))
	}

	s.set(cart)
	s.logger.Debug("cart loaded", zap.Int("items", len(cart)))
	return nil
}

// Cart returns a copy of the current cart.
func (s *CartService) Cart() domain.Cart {
	return s.snapshot.Load().Clone()
}

func (s *CartService) Messages() *Messages {
	return s.messages
}

func (s *CartService) AddProduct(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.addProduct(ctx, productID)
	s.report(ctx, err, productID, domain.KindProductAdded, domain.KindAddFailed)
	return err
}

func (s *CartService) addProduct(ctx context.Context, productID int64) error {
	cart := s.current()

	stock, err := s.stock(ctx, productID)
	if err != nil {
		return err
	}

	item, exists := cart.Find(productID)
	if exists {
		if item.Amount+1 > stock.Amount {
			return fmt.Errorf("%w: product %d has %d in stock", ErrStockExceeded, productID, stock.Amount)
		}
		item.Amount++
		return s.commit(ctx, cart.With(item))
	}

	if stock.Amount < 1 {
		return fmt.Errorf("%w: product %d has no stock", ErrStockExceeded, productID)
	}

	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return fmt.Errorf("%w: product %d: %w", ErrLookupFailure, productID, err)
	}
	if product.ID != productID || !product.Valid() {
		return fmt.Errorf("%w: product %d: malformed product", ErrLookupFailure, productID)
	}

	return s.commit(ctx, cart.With(domain.LineItem{Product: product, Amount: 1}))
}

func (s *CartService) RemoveProduct(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.removeProduct(ctx, productID)
	s.report(ctx, err, productID, domain.KindProductRemoved, domain.KindRemoveFailed)
	return err
}

func (s *CartService) removeProduct(ctx context.Context, productID int64) error {
	cart := s.current()
	if cart.Index(productID) < 0 {
		return fmt.Errorf("%w: product %d", ErrItemNotFound, productID)
	}
	return s.commit(ctx, cart.Without(productID))
}

// UpdateProductAmount sets the line item for productID to amount. A
// non-positive amount is ignored.
func (s *CartService) UpdateProductAmount(ctx context.Context, productID int64, amount int) error {
	if amount <= 0 {
		s.logger.Debug("ignoring non-positive amount", zap.Int64("product_id", productID), zap.Int("amount", amount))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.updateProductAmount(ctx, productID, amount)
	s.report(ctx, err, productID, domain.KindAmountUpdated, domain.KindUpdateFailed)
	return err
}

func (s *CartService) updateProductAmount(ctx context.Context, productID int64, amount int) error {
	cart := s.current()

	item, ok := cart.Find(productID)
	if !ok {
		return fmt.Errorf("%w: product %d", ErrItemNotFound, productID)
	}

	stock, err := s.stock(ctx, productID)
	if err != nil {
		return err
	}
	if amount > stock.Amount {
		return fmt.Errorf("%w: product %d has %d in stock", ErrStockExceeded, productID, stock.Amount)
	}

	item.Amount = amount
	return s.commit(ctx, cart.With(item))
}

// FinalizeOrder clears the cart and its stored copy. The cleared items are
// published as an order when an OrderPublisher is configured.
func (s *CartService) FinalizeOrder(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Remove(ctx, s.key); err != nil {
		err = fmt.Errorf("%w: finalize: %w", ErrPersistenceFailure, err)
		s.logger.Error("finalize order failed", zap.Error(err))
		s.notify(ctx, domain.LevelError, domain.KindFinalizeFailed, 0)
		return err
	}

	placed := s.current()
	s.set(domain.Cart{})
	s.notify(ctx, domain.LevelSuccess, domain.KindOrderPlaced, 0)

	if len(placed) > 0 && s.orders != nil {
		order := domain.Order{
			ID:        uuid.NewString(),
			Items:     placed,
			Total:     placed.Total(),
			Status:    domain.OrderStatusPlaced,
			CreatedAt: s.now(),
		}
		s.orders.Publish(order)
		s.logger.Info("order placed", zap.String("order_id", order.ID), zap.Int("items", len(placed)))
	}
	return nil
}

func (s *CartService) stock(ctx context.Context, productID int64) (domain.Stock, error) {
	stock, err := s.catalog.Stock(ctx, productID)
	if err != nil {
		return domain.Stock{}, fmt.Errorf("%w: stock %d: %w", ErrLookupFailure, productID, err)
	}
	if stock.ID != productID || stock.Amount < 0 {
		return domain.Stock{}, fmt.Errorf("%w: stock %d: malformed entry", ErrLookupFailure, productID)
	}
	return stock, nil
}

// commit persists next and then publishes it to readers.
func (s *CartService) commit(ctx context.Context, next domain.Cart) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersistenceFailure, err)
	}
	if err := s.store.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
	s.set(next)
	return nil
}

func (s *CartService) current() domain.Cart {
	return *s.snapshot.Load()
}

func (s *CartService) set(cart domain.Cart) {
	s.snapshot.Store(&cart)
}

func (s *CartService) report(ctx context.Context, err error, productID int64, success, failure domain.NotificationKind) {
	switch {
	case err == nil:
		s.notify(ctx, domain.LevelSuccess, success, productID)
	case errors.Is(err, ErrStockExceeded):
		s.logger.Info("stock exceeded", zap.Int64("product_id", productID), zap.Error(err))
		s.notify(ctx, domain.LevelError, domain.KindStockExceeded, productID)
	default:
		s.logger.Error("cart operation failed", zap.String("operation", string(failure)), zap.Int64("product_id", productID), zap.Error(err))
		s.notify(ctx, domain.LevelError, failure, productID)
	}
}

func (s *CartService) notify(ctx context.Context, level domain.Level, kind domain.NotificationKind, productID int64) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, domain.Notification{
		Level:     level,
		Kind:      kind,
		Message:   s.messages.Text(kind),
		ProductID: productID,
		At:        s.now(),
	})
}
