package services

import (
	"context"
	"errors"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"go.uber.org/zap"
)

// OrderService turns active carts into orders and serves a user's order history.
type OrderService struct {
	store     repositories.Store
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(store repositories.Store, publisher EventPublisher, logger *zap.Logger) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// PlaceOrder checks out the user's active cart cartID. Stock check, order insert, stock
// decrement and cart completion run in one transaction holding row locks on the cart and
// every product involved; any failure leaves all rows untouched.
func (s *OrderService) PlaceOrder(ctx context.Context, userID, cartID uint) (*models.Order, error) {
	var order *models.Order
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		cart, err := tx.Carts().GetOwnedActiveForUpdate(ctx, cartID, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return newError(ErrNotFound, "cart not found")
			}
			return err
		}
		if len(cart.Items) == 0 {
			return newError(ErrEmptyCart, "cart is empty")
		}

		// Lines come back sorted by product id, so concurrent checkouts lock products
		// in the same order.
		for _, item := range cart.Items {
			product, err := tx.Products().GetByIDForUpdate(ctx, item.ProductID)
			if err != nil {
				return productError(err)
			}
			if item.Quantity < 1 {
				return newError(ErrInvalidQuantity, "invalid quantity for product %d", item.ProductID)
			}
			if !product.HasStock(item.Quantity) {
				return stockNotEnough()
			}
		}

		order = &models.Order{
			UserID:      userID,
			CartID:      cart.ID,
			TotalAmount: models.SumPrices(cart.Items),
			Status:      models.OrderStatusOrdered,
			Items:       snapshotItems(cart.Items),
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		for _, item := range cart.Items {
			if err := tx.Products().DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, repositories.ErrStockConflict) {
					return stockNotEnough()
				}
				return err
			}
		}
		return tx.Carts().Complete(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.Uint("order_id", order.ID),
		zap.Uint("user_id", userID),
		zap.Uint("cart_id", cartID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)))
	publishOrderEvent(ctx, s.publisher, s.logger, EventOrderPlaced, order)
	return order, nil
}

// ListOrders returns every order of the user with its items.
func (s *OrderService) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.store.Orders().ListByUser(ctx, userID)
}

// GetOrder returns one of the user's orders.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	order, err := s.store.Orders().GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, orderError(err)
	}
	return order, nil
}

func snapshotItems(lines []models.CartItem) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}
	return items
}

func stockNotEnough() error {
	return newError(ErrInsufficientStock, "product stock is not enough")
}

func orderError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(ErrNotFound, "order not found")
	}
	return err
}
