package service

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

var errBoom = errors.New("boom")

// Mock CartStore
type mockStore struct {
	mu     sync.Mutex
	values map[string]string
	writes int
	setErr error
	getErr error
	delErr error
}

func newMockStore() *mockStore {
	return &mockStore{values: make(map[string]string)}
}

func (m *mockStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	m.writes++
	return nil
}

func (m *mockStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.values, key)
	return nil
}

func (m *mockStore) value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// Mock Catalog
type mockCatalog struct {
	mu           sync.Mutex
	products     map[int64]domain.Product
	stock        map[int64]int
	productErr   error
	stockErr     error
	productCalls int
	stockCalls   int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		products: make(map[int64]domain.Product),
		stock:    make(map[int64]int),
	}
}

func (m *mockCatalog) with(id int64, title, price string, stock int) *mockCatalog {
	m.products[id] = domain.Product{
		ID:    id,
		Title: title,
		Price: decimal.RequireFromString(price),
		Image: "https://example.com/" + title + ".jpg",
	}
	m.stock[id] = stock
	return m
}

func (m *mockCatalog) Products(context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.productErr != nil {
		return nil, m.productErr
	}
	out := make([]domain.Product, 0, len(m.products))
	for id := int64(1); len(out) < len(m.products); id++ {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) Product(_ context.Context, id int64) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.productCalls++
	if m.productErr != nil {
		return domain.Product{}, m.productErr
	}
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, errors.New("not found")
	}
	return p, nil
}

func (m *mockCatalog) Stocks(context.Context) ([]domain.Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Stock, 0, len(m.stock))
	for id, amount := range m.stock {
		out = append(out, domain.Stock{ID: id, Amount: amount})
	}
	return out, nil
}

func (m *mockCatalog) Stock(_ context.Context, id int64) (domain.Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stockCalls++
	if m.stockErr != nil {
		return domain.Stock{}, m.stockErr
	}
	amount, ok := m.stock[id]
	if !ok {
		return domain.Stock{}, errors.New("not found")
	}
	return domain.Stock{ID: id, Amount: amount}, nil
}

// Mock Notifier
type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) kinds() []domain.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Kind)
	}
	return out
}

func (r *recordingNotifier) last() domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return domain.Notification{}
	}
	return r.sent[len(r.sent)-1]
}

// Mock OrderPublisher / OrderRepository
type mockOrders struct {
	mu     sync.Mutex
	orders []domain.Order
	err    error
}

func (m *mockOrders) Publish(order domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, order)
}

func (m *mockOrders) CreateOrder(_ context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.orders = append(m.orders, order)
	return nil
}

func (m *mockOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}
