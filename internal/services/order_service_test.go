package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	args := m.Called(ctx, routingKey, body)
	return args.Error(0)
}

type orderFixture struct {
	*testDB
	carts  *services.CartService
	orders *services.OrderService
}

func newOrderFixture(t *testing.T, publisher services.EventPublisher) *orderFixture {
	d := newTestDB(t)
	return &orderFixture{
		testDB: d,
		carts:  services.NewCartService(d.store, services.DefaultCartOptions(), zap.NewNop()),
		orders: services.NewOrderService(d.store, publisher, zap.NewNop()),
	}
}

func TestOrderService_PlaceOrder(t *testing.T) {
	f := newOrderFixture(t, nil)
	user := f.seedUser(t, "alice")
	product := f.seedProduct(t, "Headphones", "80", 5)

	cart, err := f.carts.AddItem(bg, user.ID, product.ID, 2)
	require.NoError(t, err)

	order, err := f.orders.PlaceOrder(bg, user.ID, cart.ID)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, user.ID, order.UserID)
	assert.Equal(t, cart.ID, order.CartID)
	assert.Equal(t, models.OrderStatusOrdered, order.Status)
	assertDecimal(t, "80", order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, product.ID, order.Items[0].ProductID)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assertDecimal(t, "80", order.Items[0].Price)

	assert.Equal(t, 3, f.stock(t, product.ID))

	var stored models.Cart
	require.NoError(t, f.db.First(&stored, cart.ID).Error)
	assert.Equal(t, models.CartStatusCompleted, stored.Status)
	assert.EqualValues(t, 0, f.count(t, &models.CartItem{}, "cart_id = ?", cart.ID))

	// The next cart is a fresh one.
	next, err := f.carts.GetActiveCart(bg, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, cart.ID, next.ID)
	assert.Empty(t, next.Items)

	// A completed cart cannot be checked out twice.
	_, err = f.orders.PlaceOrder(bg, user.ID, cart.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.EqualError(t, err, "cart not found")
	assert.Equal(t, 3, f.stock(t, product.ID))
}

func TestOrderService_PlaceOrder_AllOrNothing(t *testing.T) {
	f := newOrderFixture(t, nil)
	user := f.seedUser(t, "alice")
	plenty := f.seedProduct(t, "Pen", "1", 10)
	scarce := f.seedProduct(t, "Lamp", "30", 2)

	_, err := f.carts.AddItem(bg, user.ID, plenty.ID, 4)
	require.NoError(t, err)
	cart, err := f.carts.AddItem(bg, user.ID, scarce.ID, 2)
	require.NoError(t, err)

	// Someone else buys one lamp after it was carted.
	require.NoError(t, f.db.Model(scarce).Update("stock", 1).Error)

	_, err = f.orders.PlaceOrder(bg, user.ID, cart.ID)
	assert.ErrorIs(t, err, services.ErrInsufficientStock)
	assert.EqualError(t, err, "product stock is not enough")

	assert.Equal(t, 10, f.stock(t, plenty.ID))
	assert.Equal(t, 1, f.stock(t, scarce.ID))
	assert.EqualValues(t, 0, f.count(t, &models.Order{}, "user_id = ?", user.ID))
	assert.EqualValues(t, 0, f.count(t, &models.OrderItem{}, "1 = 1"))

	active, err := f.carts.GetActiveCart(bg, user.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, active.ID)
	assert.Len(t, active.Items, 2)
}

func TestOrderService_PlaceOrder_CartNotFound(t *testing.T) {
	f := newOrderFixture(t, nil)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	product := f.seedProduct(t, "Pen", "1", 10)

	_, err := f.orders.PlaceOrder(bg, alice.ID, 12345)
	assert.ErrorIs(t, err, services.ErrNotFound)

	// Bob cannot check out Alice's cart.
	cart, err := f.carts.AddItem(bg, alice.ID, product.ID, 1)
	require.NoError(t, err)
	_, err = f.orders.PlaceOrder(bg, bob.ID, cart.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.EqualError(t, err, "cart not found")
	assert.Equal(t, 10, f.stock(t, product.ID))
}

func TestOrderService_PlaceOrder_EmptyCart(t *testing.T) {
	f := newOrderFixture(t, nil)
	user := f.seedUser(t, "alice")

	cart, err := f.carts.GetActiveCart(bg, user.ID)
	require.NoError(t, err)

	_, err = f.orders.PlaceOrder(bg, user.ID, cart.ID)
	assert.ErrorIs(t, err, services.ErrEmptyCart)
	assert.EqualValues(t, 0, f.count(t, &models.Order{}, "user_id = ?", user.ID))

	active, err := f.carts.GetActiveCart(bg, user.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, active.ID)
}

func TestOrderService_PlaceOrder_Concurrent(t *testing.T) {
	f := newOrderFixture(t, nil)
	product := f.seedProduct(t, "Last One", "99", 1)

	const buyers = 5
	cartIDs := make([]uint, buyers)
	userIDs := make([]uint, buyers)
	for i := 0; i < buyers; i++ {
		user := f.seedUser(t, string(rune('a'+i))+"-buyer")
		cart, err := f.carts.AddItem(bg, user.ID, product.ID, 1)
		require.NoError(t, err)
		userIDs[i], cartIDs[i] = user.ID, cart.ID
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		outOfStock int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.orders.PlaceOrder(bg, userIDs[i], cartIDs[i])
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, services.ErrInsufficientStock):
				outOfStock++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, outOfStock)
	assert.Equal(t, 0, f.stock(t, product.ID))
	assert.EqualValues(t, 1, f.count(t, &models.Order{}, "1 = 1"))
}

// conflictStore behaves like the GORM store except that stock decrements inside a
// transaction lose the race.
type conflictStore struct {
	*repositories.GORMStore
}

func (s conflictStore) Transaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	return s.GORMStore.Transaction(ctx, func(tx repositories.Store) error {
		return fn(conflictStore{GORMStore: tx.(*repositories.GORMStore)})
	})
}

func (s conflictStore) Products() repositories.ProductRepository {
	return conflictProducts{ProductRepository: s.GORMStore.Products()}
}

type conflictProducts struct {
	repositories.ProductRepository
}

func (conflictProducts) DecrementStock(ctx context.Context, id uint, quantity int) error {
	return fmt.Errorf("product %d: %w", id, repositories.ErrStockConflict)
}

func TestOrderService_PlaceOrder_StockConflictRollsBack(t *testing.T) {
	d := newTestDB(t)
	user := d.seedUser(t, "alice")
	product := d.seedProduct(t, "Lamp", "30", 5)
	carts := services.NewCartService(d.store, services.DefaultCartOptions(), zap.NewNop())
	orders := services.NewOrderService(conflictStore{GORMStore: d.store}, nil, zap.NewNop())

	cart, err := carts.AddItem(bg, user.ID, product.ID, 2)
	require.NoError(t, err)

	_, err = orders.PlaceOrder(bg, user.ID, cart.ID)
	assert.ErrorIs(t, err, services.ErrInsufficientStock)
	assert.EqualError(t, err, "product stock is not enough")

	assert.EqualValues(t, 0, d.count(t, &models.Order{}, "1 = 1"))
	assert.EqualValues(t, 0, d.count(t, &models.OrderItem{}, "1 = 1"))
	assert.Equal(t, 5, d.stock(t, product.ID))

	var stored models.Cart
	require.NoError(t, d.db.First(&stored, cart.ID).Error)
	assert.Equal(t, models.CartStatusActive, stored.Status)
	assert.EqualValues(t, 1, d.count(t, &models.CartItem{}, "cart_id = ?", cart.ID))
}

func TestOrderService_ListAndGetOrders(t *testing.T) {
	f := newOrderFixture(t, nil)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	pen := f.seedProduct(t, "Pen", "1.50", 10)
	ink := f.seedProduct(t, "Ink", "4", 10)

	_, err := f.carts.AddItem(bg, alice.ID, pen.ID, 2)
	require.NoError(t, err)
	cart, err := f.carts.AddItem(bg, alice.ID, ink.ID, 1)
	require.NoError(t, err)
	first, err := f.orders.PlaceOrder(bg, alice.ID, cart.ID)
	require.NoError(t, err)

	cart, err = f.carts.AddItem(bg, alice.ID, pen.ID, 1)
	require.NoError(t, err)
	_, err = f.orders.PlaceOrder(bg, alice.ID, cart.ID)
	require.NoError(t, err)

	orders, err := f.orders.ListOrders(bg, alice.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Len(t, orders[0].Items, 2)
	assert.Len(t, orders[1].Items, 1)

	order, err := f.orders.GetOrder(bg, alice.ID, first.ID)
	require.NoError(t, err)
	assertDecimal(t, "5.50", order.TotalAmount)
	assert.Len(t, order.Items, 2)

	none, err := f.orders.ListOrders(bg, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.orders.GetOrder(bg, bob.ID, first.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.EqualError(t, err, "order not found")
}

func TestOrderService_PublishesOrderPlaced(t *testing.T) {
	publisher := new(MockPublisher)
	f := newOrderFixture(t, publisher)
	user := f.seedUser(t, "alice")
	product := f.seedProduct(t, "Pen", "2", 10)

	var event services.OrderEvent
	publisher.On("Publish", mock.Anything, services.EventOrderPlaced, mock.Anything).
		Run(func(args mock.Arguments) {
			require.NoError(t, json.Unmarshal(args.Get(2).([]byte), &event))
		}).
		Return(nil).Once()

	cart, err := f.carts.AddItem(bg, user.ID, product.ID, 3)
	require.NoError(t, err)
	order, err := f.orders.PlaceOrder(bg, user.ID, cart.ID)
	require.NoError(t, err)

	publisher.AssertExpectations(t)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, services.EventOrderPlaced, event.Type)
	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, user.ID, event.UserID)
	assertDecimal(t, "2", event.TotalAmount)
	assert.Len(t, event.Items, 1)
}

func TestOrderService_PublishFailureKeepsOrder(t *testing.T) {
	publisher := new(MockPublisher)
	f := newOrderFixture(t, publisher)
	user := f.seedUser(t, "alice")
	product := f.seedProduct(t, "Pen", "2", 10)

	publisher.On("Publish", mock.Anything, services.EventOrderPlaced, mock.Anything).
		Return(errors.New("broker unavailable")).Once()

	cart, err := f.carts.AddItem(bg, user.ID, product.ID, 1)
	require.NoError(t, err)
	order, err := f.orders.PlaceOrder(bg, user.ID, cart.ID)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, 9, f.stock(t, product.ID))
	publisher.AssertExpectations(t)
}

func TestOrderService_FailedOrderPublishesNothing(t *testing.T) {
	publisher := new(MockPublisher)
	f := newOrderFixture(t, publisher)
	user := f.seedUser(t, "alice")

	cart, err := f.carts.GetActiveCart(bg, user.ID)
	require.NoError(t, err)
	_, err = f.orders.PlaceOrder(bg, user.ID, cart.ID)
	assert.ErrorIs(t, err, services.ErrEmptyCart)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}
