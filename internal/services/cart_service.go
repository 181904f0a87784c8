package services

import (
	"context"
	"errors"
	"math"

	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"go.uber.org/zap"
)

// CartOptions selects how AddItem prices merged lines and whether it checks stock.
type CartOptions struct {
	// MergePricing is config.MergePricingSnapshot or config.MergePricingAdditive.
	MergePricing string
	// EnforceStockOnAdd rejects adds whose resulting line quantity exceeds stock. When
	// false, only the merge path checks, and only the requested amount.
	EnforceStockOnAdd bool
}

// DefaultCartOptions returns the options used when none are configured.
func DefaultCartOptions() CartOptions {
	return CartOptions{MergePricing: config.MergePricingSnapshot, EnforceStockOnAdd: true}
}

// CartService manages a user's active cart and its lines.
type CartService struct {
	store  repositories.Store
	opts   CartOptions
	logger *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(store repositories.Store, opts CartOptions, logger *zap.Logger) *CartService {
	return &CartService{
		store:  store,
		opts:   opts,
		logger: logger,
	}
}

// GetActiveCart returns the user's active cart, creating an empty one when there is none.
func (s *CartService) GetActiveCart(ctx context.Context, userID uint) (*models.Cart, error) {
	return activeCart(ctx, s.store, userID, false)
}

// activeCart loads the user's active cart and creates it first if it does not exist yet.
// With lock set the cart row stays locked until the surrounding transaction ends.
func activeCart(ctx context.Context, store repositories.Store, userID uint, lock bool) (*models.Cart, error) {
	carts := store.Carts()
	get := carts.GetActive
	if lock {
		get = carts.GetActiveForUpdate
	}

	cart, err := get(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	if err := carts.CreateActive(ctx, userID); err != nil {
		return nil, err
	}
	return get(ctx, userID)
}

// AddItem puts quantity units of a product into the user's active cart, merging with an
// existing line for the same product.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, newError(ErrInvalidQuantity, "quantity must be at least 1")
	}

	var cart *models.Cart
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		current, err := activeCart(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		product, err := tx.Products().GetByID(ctx, productID)
		if err != nil {
			return productError(err)
		}

		item, err := tx.Carts().GetItem(ctx, current.ID, productID)
		switch {
		case err == nil:
			err = s.mergeItem(ctx, tx, item, product, quantity)
		case errors.Is(err, repositories.ErrNotFound):
			err = s.insertItem(ctx, tx, current.ID, product, quantity)
		}
		if err != nil {
			return err
		}

		cart, err = tx.Carts().GetActive(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Added product to cart",
		zap.Uint("user_id", userID),
		zap.Uint("cart_id", cart.ID),
		zap.Uint("product_id", productID),
		zap.Int("quantity", quantity))
	return cart, nil
}

func (s *CartService) mergeItem(ctx context.Context, tx repositories.Store, item *models.CartItem, product *models.Product, quantity int) error {
	// Compared by subtraction so a huge quantity cannot wrap the line total.
	if quantity > math.MaxInt-item.Quantity {
		return quantityExceeded()
	}
	if s.opts.EnforceStockOnAdd {
		if quantity > product.Stock-item.Quantity {
			return quantityExceeded()
		}
	} else if !product.HasStock(quantity) {
		return quantityExceeded()
	}

	item.Quantity += quantity
	if s.opts.MergePricing == config.MergePricingAdditive {
		item.Price = item.Price.Add(product.Price)
	} else {
		item.Price = product.Price
	}
	return tx.Carts().SaveItem(ctx, item)
}

func (s *CartService) insertItem(ctx context.Context, tx repositories.Store, cartID uint, product *models.Product, quantity int) error {
	if s.opts.EnforceStockOnAdd && !product.HasStock(quantity) {
		return quantityExceeded()
	}
	return tx.Carts().SaveItem(ctx, &models.CartItem{
		CartID:    cartID,
		ProductID: product.ID,
		Quantity:  quantity,
		Price:     product.Price,
	})
}

// UpdateItem sets the quantity of a line already in the cart and resets its price to the
// current catalog price.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID uint, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, newError(ErrInvalidQuantity, "quantity must be at least 1")
	}

	var cart *models.Cart
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		current, err := activeCart(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		item, err := tx.Carts().GetItem(ctx, current.ID, productID)
		if err != nil {
			return notInCart(err)
		}
		product, err := tx.Products().GetByID(ctx, productID)
		if err != nil {
			return productError(err)
		}
		if !product.HasStock(quantity) {
			return quantityExceeded()
		}

		item.Quantity = quantity
		item.Price = product.Price
		if err := tx.Carts().SaveItem(ctx, item); err != nil {
			return err
		}

		cart, err = tx.Carts().GetActive(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem deletes a product's line from the user's active cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) (*models.Cart, error) {
	var cart *models.Cart
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		current, err := activeCart(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		if err := tx.Carts().DeleteItem(ctx, current.ID, productID); err != nil {
			return notInCart(err)
		}

		cart, err = tx.Carts().GetActive(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func quantityExceeded() error {
	return newError(ErrInsufficientStock, "product quantity exceeded")
}

func notInCart(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(ErrNotFound, "product not found in cart")
	}
	return err
}
