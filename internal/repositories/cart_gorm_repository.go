package repositories

import (
	"context"
	"fmt"

	"storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db: db,
	}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("product_id")
}

// GetActive returns the user's active cart with its lines.
func (r *GORMCartRepository) GetActive(ctx context.Context, userID uint) (*models.Cart, error) {
	return r.findActive(r.db.WithContext(ctx), "user_id = ?", userID)
}

// GetActiveForUpdate returns the user's active cart and locks the cart row.
func (r *GORMCartRepository) GetActiveForUpdate(ctx context.Context, userID uint) (*models.Cart, error) {
	return r.findActive(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "user_id = ?", userID)
}

// GetOwnedActiveForUpdate locks cart cartID when it is active and owned by userID.
func (r *GORMCartRepository) GetOwnedActiveForUpdate(ctx context.Context, cartID, userID uint) (*models.Cart, error) {
	return r.findActive(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}),
		"id = ? AND user_id = ?", cartID, userID)
}

func (r *GORMCartRepository) findActive(db *gorm.DB, query string, args ...interface{}) (*models.Cart, error) {
	var cart models.Cart
	err := db.Preload("Items", orderedItems).
		Where(query, args...).
		Where("status = ?", models.CartStatusActive).
		First(&cart).Error
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("active cart: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get active cart: %w", err)
	}
	cart.Recalculate()
	return &cart, nil
}

// CreateActive inserts an empty active cart. A concurrent insert for the same user loses
// against the partial unique index and is silently dropped.
func (r *GORMCartRepository) CreateActive(ctx context.Context, userID uint) error {
	cart := models.Cart{UserID: userID, Status: models.CartStatusActive}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&cart).Error
	if err != nil {
		return fmt.Errorf("failed to create cart for user %d: %w", userID, err)
	}
	return nil
}

// GetItem returns the line for productID in cart cartID.
func (r *GORMCartRepository) GetItem(ctx context.Context, cartID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		First(&item, "cart_id = ? AND product_id = ?", cartID, productID).Error
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("cart %d product %d: %w", cartID, productID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return &item, nil
}

// SaveItem inserts the line or overwrites quantity and price of the existing one.
func (r *GORMCartRepository) SaveItem(ctx context.Context, item *models.CartItem) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "price", "updated_at"}),
	}).Create(item).Error
	if err != nil {
		return fmt.Errorf("failed to save cart item: %w", err)
	}
	return nil
}

// DeleteItem removes a single line.
func (r *GORMCartRepository) DeleteItem(ctx context.Context, cartID, productID uint) error {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart %d product %d: %w", cartID, productID, ErrNotFound)
	}
	return nil
}

// Complete moves an active cart to completed and deletes its lines.
func (r *GORMCartRepository) Complete(ctx context.Context, cartID uint) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, models.CartStatusActive).
		Update("status", models.CartStatusCompleted)
	if res.Error != nil {
		return fmt.Errorf("failed to complete cart %d: %w", cartID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("active cart %d: %w", cartID, ErrNotFound)
	}
	if err := db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart %d: %w", cartID, err)
	}
	return nil
}

// DeleteByUser removes every cart of the user together with their lines.
func (r *GORMCartRepository) DeleteByUser(ctx context.Context, userID uint) error {
	db := r.db.WithContext(ctx)
	carts := db.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)
	if err := db.Where("cart_id IN (?)", carts).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete cart items of user %d: %w", userID, err)
	}
	if err := db.Where("user_id = ?", userID).Delete(&models.Cart{}).Error; err != nil {
		return fmt.Errorf("failed to delete carts of user %d: %w", userID, err)
	}
	return nil
}
