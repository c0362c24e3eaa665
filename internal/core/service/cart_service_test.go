package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

type fixture struct {
	store    *mockStore
	catalog  *mockCatalog
	notifier *recordingNotifier
	orders   *mockOrders
	svc      *CartService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: newMockStore(),
		catalog: newMockCatalog().
			with(1, "sneaker", "179.90", 5).
			with(2, "runner", "139.90", 3).
			with(3, "trail", "219.90", 2).
			with(4, "sold-out", "99.90", 0),
		notifier: &recordingNotifier{},
		orders:   &mockOrders{},
	}
	f.svc = NewCartService(f.store, f.catalog, f.notifier, WithOrderPublisher(f.orders))
	return f
}

// seed stores cart and reloads the service from it.
func (f *fixture) seed(t *testing.T, items ...domain.LineItem) {
	t.Helper()
	var cart domain.Cart
	for _, item := range items {
		cart = append(cart, item)
	}
	data, err := json.Marshal(cart)
	require.NoError(t, err)
	f.store.values[DefaultStorageKey] = string(data)
	f.store.writes = 0
	require.NoError(t, f.svc.Load(context.Background()))
}

func (f *fixture) item(id int64, amount int) domain.LineItem {
	return domain.LineItem{Product: f.catalog.products[id], Amount: amount}
}

func (f *fixture) stored(t *testing.T) domain.Cart {
	t.Helper()
	v, ok := f.store.value(DefaultStorageKey)
	require.True(t, ok, "expected a stored cart")
	cart, dropped, err := domain.DecodeCart([]byte(v))
	require.NoError(t, err)
	require.Zero(t, dropped)
	return cart
}

func TestAddProduct_NewProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.AddProduct(ctx, 1)
	require.NoError(t, err)

	cart := f.svc.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, int64(1), cart[0].ID)
	assert.Equal(t, 1, cart[0].Amount)
	assert.Equal(t, "sneaker", cart[0].Title)

	stored := f.stored(t)
	require.Len(t, stored, 1)
	assert.Equal(t, 1, stored[0].Amount)

	assert.Equal(t, 1, f.catalog.stockCalls)
	assert.Equal(t, 1, f.catalog.productCalls)
	assert.Equal(t, []domain.NotificationKind{domain.KindProductAdded}, f.notifier.kinds())
}

func TestAddProduct_ExistingIncrements(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.item(1, 2))

	require.NoError(t, f.svc.AddProduct(context.Background(), 1))

	item, ok := f.svc.Cart().Find(1)
	require.True(t, ok)
	assert.Equal(t, 3, item.Amount)
	assert.Equal(t, 3, f.stored(t)[0].Amount)
	assert.Equal(t, 0, f.catalog.productCalls, "existing items need no product lookup")
}

func TestAddProduct_StockExceeded(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.item(1, 5))
	before, _ := f.store.value(DefaultStorageKey)

	err := f.svc.AddProduct(context.Background(), 1)
	assert.ErrorIs(t, err, ErrStockExceeded)

	item, _ := f.svc.Cart().Find(1)
	assert.Equal(t, 5, item.Amount)

	after, _ := f.store.value(DefaultStorageKey)
	assert.Equal(t, before, after)
	assert.Zero(t, f.store.writes)

	last := f.notifier.last()
	assert.Equal(t, domain.KindStockExceeded, last.Kind)
	assert.Equal(t, domain.LevelError, last.Level)
	assert.Equal(t, "Quantidade solicitada fora de estoque", last.Message)
}

func TestAddProduct_NewProductWithoutStock(t *testing.T) {
	f := newFixture(t)

	err := f.svc.AddProduct(context.Background(), 4)
	assert.ErrorIs(t, err, ErrStockExceeded)
	assert.Empty(t, f.svc.Cart())
	assert.Zero(t, f.store.writes)
	assert.Equal(t, 0, f.catalog.productCalls)
}

func TestAddProduct_LookupFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.item(2, 1))
	f.catalog.stockErr = errBoom

	err := f.svc.AddProduct(context.Background(), 1)
	assert.ErrorIs(t, err, ErrLookupFailure)
	assert.ErrorIs(t, err, errBoom)

	assert.Equal(t, map[int64]int{2: 1}, f.svc.Cart().Amounts())
	assert.Zero(t, f.store.writes)
	assert.Equal(t, domain.KindAddFailed, f.notifier.last().Kind)
	assert.Equal(t, "Erro na adição do produto", f.notifier.last().Message)
}

func TestAddProduct_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	f.catalog.stock[99] = 10

	err := f.svc.AddProduct(context.Background(), 99)
	assert.ErrorIs(t, err, ErrLookupFailure)
	assert.Empty(t, f.svc.Cart())
}

func TestAddProduct_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.store.setErr = errBoom

	err := f.svc.AddProduct(context.Background(), 1)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Empty(t, f.svc.Cart(), "in-memory cart must not change when the write fails")
	assert.Equal(t, domain.KindAddFailed, f.notifier.last().Kind)
}

func TestRemoveProduct(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.item(3, 2))

	require.NoError(t, f.svc.RemoveProduct(context.Background(), 3))

	assert.Empty(t, f.svc.Cart())
	v, ok := f.store.value(DefaultStorageKey)
	require.True(t, ok)
	assert.Equal(t, "[]", v)
	assert.Equal(t, domain.KindProductRemoved, f.notifier.last().Kind)
}

func TestRemoveProduct_AbsentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.item(1, 1))
	before, _ := f.store.value(DefaultStorageKey)

	for i := 0; i < 2; i++ {
		err := f.svc.RemoveProduct(context.Background(), 42)
		assert.ErrorIs(t, err, ErrItemNotFound)
	}

	assert.Equal(t, map[int64]int{1: 1}, f.svc.Cart().Amounts())
	after, _ := f.store.value(DefaultStorageKey)
	assert.Equal(t, before, after)
	assert.Zero(t, f.store.writes)
	assert.Equal(t, []domain.NotificationKind{domain.KindRemoveFailed, domain.KindRemoveFailed}, f.notifier.kinds())
}

func TestRemoveProduct_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.item(1, 1))
	f.store.setErr = errBoom

	err := f.svc.RemoveProduct(context.Background(), 1)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Len(t, f.svc.Cart(), 1)
}

func TestUpdateProductAmount_AbsoluteTarget(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.item(1, 2), f.item(2, 1))

	require.NoError(t, f.svc.UpdateProductAmount(context.Background(), 1, 4))

	cart := f.svc.Cart()
	assert.Equal(t, 4, cart[0].Amount)
	assert.Equal(t, 1, cart[1].Amount)
	assert.Equal(t, 4, f.stored(t)[0].Amount)
	assert.Equal(t, domain.KindAmountUpdated, f.notifier.last().Kind)

	require.NoError(t, f.svc.UpdateProductAmount(context.Background(), 1, 1))
	assert.Equal(t, 1, f.svc.Cart()[0].Amount)
}

func TestUpdateProductAmount_StockExceeded(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.item(2, 2))

	err := f.svc.UpdateProductAmount(context.Background(), 2, 4)
	assert.ErrorIs(t, err, ErrStockExceeded)
	assert.Equal(t, 2, f.svc.Cart()[0].Amount)
	assert.Zero(t, f.store.writes)
	assert.Equal(t, domain.KindStockExceeded, f.notifier.last().Kind)
}

func TestUpdateProductAmount_NonPositiveIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.item(2, 3))

	for _, amount := range []int{0, -1} {
		require.NoError(t, f.svc.UpdateProductAmount(context.Background(), 2, amount))
	}

	assert.Equal(t, 3, f.svc.Cart()[0].Amount)
	assert.Zero(t, f.store.writes)
	assert.Zero(t, f.catalog.stockCalls)
	assert.Empty(t, f.notifier.kinds())
}

func TestUpdateProductAmount_NotInCart(t *testing.T) {
	f := newFixture(t)

	err := f.svc.UpdateProductAmount(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, domain.KindUpdateFailed, f.notifier.last().Kind)
	assert.Zero(t, f.catalog.stockCalls)
}

func TestUpdateProductAmount_LookupFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.item(1, 1))
	f.catalog.stockErr = errBoom

	err := f.svc.UpdateProductAmount(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrLookupFailure)
	assert.Equal(t, 1, f.svc.Cart()[0].Amount)
	assert.Equal(t, domain.KindUpdateFailed, f.notifier.last().Kind)
}

func TestFinalizeOrder(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.item(1, 2), f.item(3, 1))

	require.NoError(t, f.svc.FinalizeOrder(context.Background()))

	assert.Empty(t, f.svc.Cart())
	_, ok := f.store.value(DefaultStorageKey)
	assert.False(t, ok, "stored cart must be deleted")

	last := f.notifier.last()
	assert.Equal(t, domain.KindOrderPlaced, last.Kind)
	assert.Equal(t, domain.LevelSuccess, last.Level)
	assert.Equal(t, "Pedido realizado!", last.Message)

	require.Equal(t, 1, f.orders.count())
	order := f.orders.orders[0]
	assert.NotEmpty(t, order.ID)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, "579.7", order.Total.String())
	assert.Equal(t, domain.OrderStatusPlaced, order.Status)
}

func TestFinalizeOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.FinalizeOrder(context.Background()))
	assert.Equal(t, domain.KindOrderPlaced, f.notifier.last().Kind)
	assert.Zero(t, f.orders.count(), "empty carts are not published")
}

func TestFinalizeOrder_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.item(1, 1))
	f.store.delErr = errBoom

	err := f.svc.FinalizeOrder(context.Background())
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Len(t, f.svc.Cart(), 1)
	assert.Equal(t, domain.KindFinalizeFailed, f.notifier.last().Kind)
	assert.Zero(t, f.orders.count())
}

func TestLoad_MissingKey(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Load(context.Background()))
	assert.Empty(t, f.svc.Cart())
}

func TestLoad_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.AddProduct(ctx, 1))
	require.NoError(t, f.svc.AddProduct(ctx, 2))
	require.NoError(t, f.svc.AddProduct(ctx, 1))
	want := f.svc.Cart()

	reloaded := NewCartService(f.store, f.catalog, nil)
	require.NoError(t, reloaded.Load(ctx))

	got := reloaded.Cart()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Amount, got[i].Amount)
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.True(t, want[i].Price.Equal(got[i].Price))
	}
}

func TestLoad_RepairsMalformedEntries(t *testing.T) {
	f := newFixture(t)
	f.store.values[DefaultStorageKey] = `[
		{"id": 1, "title": "sneaker", "price": 179.9, "image": "a.jpg", "amount": 2},
		{"id": 1, "title": "dup", "price": 1, "image": "b.jpg", "amount": 9},
		{"id": 2, "title": "zero", "price": 1, "image": "c.jpg", "amount": 0},
		{"id": -3, "title": "neg", "price": 1, "image": "d.jpg", "amount": 1},
		"garbage"
	]`

	require.NoError(t, f.svc.Load(context.Background()))

	cart := f.svc.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, "sneaker", cart[0].Title)
	assert.Equal(t, 2, cart[0].Amount)
}

func TestLoad_UnreadableBlob(t *testing.T) {
	f := newFixture(t)
	f.store.values[DefaultStorageKey] = `{"not": "an array"}`

	require.NoError(t, f.svc.Load(context.Background()))
	assert.Empty(t, f.svc.Cart())
}

func TestLoad_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.getErr = errBoom

	err := f.svc.Load(context.Background())
	assert.ErrorIs(t, err, ErrPersistenceFailure)
}

func TestCart_ReturnsCopy(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.AddProduct(context.Background(), 1))

	cart := f.svc.Cart()
	cart[0].Amount = 99

	assert.Equal(t, 1, f.svc.Cart()[0].Amount)
}

func TestInvariants_RandomOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		id := int64(rng.Intn(5) + 1)
		switch rng.Intn(4) {
		case 0, 1:
			_ = f.svc.AddProduct(ctx, id)
		case 2:
			_ = f.svc.UpdateProductAmount(ctx, id, rng.Intn(8)-1)
		case 3:
			_ = f.svc.RemoveProduct(ctx, id)
		}

		cart := f.svc.Cart()
		seen := make(map[int64]bool)
		for _, item := range cart {
			require.False(t, seen[item.ID], "duplicate id %d", item.ID)
			seen[item.ID] = true
			require.GreaterOrEqual(t, item.Amount, 1)
			require.LessOrEqual(t, item.Amount, f.catalog.stock[item.ID])
		}
		if f.store.writes > 0 {
			require.Equal(t, cart.Amounts(), f.stored(t).Amounts())
		}
	}
}
