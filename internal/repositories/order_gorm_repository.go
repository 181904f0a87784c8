package repositories

import (
	"context"
	"fmt"

	"storefront/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

func (r *GORMOrderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	})
}

// GetAll returns every order with its items.
func (r *GORMOrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.withItems(ctx).Order("id").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}
	return orders, nil
}

// GetByID returns an order by its ID regardless of owner.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.withItems(ctx).First(&order, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("order with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %d: %w", id, err)
	}
	return &order, nil
}

// GetByIDForUser returns the order only if it belongs to userID.
func (r *GORMOrderRepository) GetByIDForUser(ctx context.Context, id, userID uint) (*models.Order, error) {
	var order models.Order
	err := r.withItems(ctx).First(&order, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("order with ID %d for user %d: %w", id, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %d: %w", id, err)
	}
	return &order, nil
}

// ListByUser returns all orders of a user, oldest first.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	if err := r.withItems(ctx).Where("user_id = ?", userID).Order("id").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders of user %d: %w", userID, err)
	}
	return orders, nil
}

// Create inserts the order and its items.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// UpdateStatus sets the status of an order.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update status of order %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %d for status update: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteByUser removes every order of the user together with their items.
func (r *GORMOrderRepository) DeleteByUser(ctx context.Context, userID uint) error {
	db := r.db.WithContext(ctx)
	orders := db.Model(&models.Order{}).Select("id").Where("user_id = ?", userID)
	if err := db.Where("order_id IN (?)", orders).Delete(&models.OrderItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete order items of user %d: %w", userID, err)
	}
	if err := db.Where("user_id = ?", userID).Delete(&models.Order{}).Error; err != nil {
		return fmt.Errorf("failed to delete orders of user %d: %w", userID, err)
	}
	return nil
}
