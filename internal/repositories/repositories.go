package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	// GetByIDForUpdate reads the product and holds a row lock until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error
	// DecrementStock subtracts quantity only if enough stock remains; otherwise ErrStockConflict.
	DecrementStock(ctx context.Context, id uint, quantity int) error
}

// CartRepository defines the interface for cart and cart-line data access.
type CartRepository interface {
	// GetActive returns the user's active cart with its lines, or ErrNotFound.
	GetActive(ctx context.Context, userID uint) (*models.Cart, error)
	// GetActiveForUpdate is GetActive with a row lock on the cart.
	GetActiveForUpdate(ctx context.Context, userID uint) (*models.Cart, error)
	// GetOwnedActiveForUpdate locks the cart identified by cartID if it belongs to
	// userID and is still active.
	GetOwnedActiveForUpdate(ctx context.Context, cartID, userID uint) (*models.Cart, error)
	// CreateActive inserts an empty active cart unless one already exists.
	CreateActive(ctx context.Context, userID uint) error
	GetItem(ctx context.Context, cartID, productID uint) (*models.CartItem, error)
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID, productID uint) error
	// Complete flips the cart to completed and drops its lines.
	Complete(ctx context.Context, cartID uint) error
	DeleteByUser(ctx context.Context, userID uint) error
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	GetAll(ctx context.Context) ([]models.Order, error)
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	GetByIDForUser(ctx context.Context, id, userID uint) (*models.Order, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Order, error)
	// Create persists the order together with its items.
	Create(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	DeleteByUser(ctx context.Context, userID uint) error
}

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	ListByRole(ctx context.Context, role string) ([]models.User, error)
	Delete(ctx context.Context, id uint) error
}

// Store groups the repositories and owns the transaction boundary. Repositories obtained
// from the Store passed to fn all run inside the same transaction.
type Store interface {
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	Users() UserRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
