package services

import (
	"context"
	"errors"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"go.uber.org/zap"
)

// AdminService serves the admin-only views over orders and users.
type AdminService struct {
	store     repositories.Store
	publisher EventPublisher
	logger    *zap.Logger
}

// NewAdminService creates a new AdminService. publisher may be nil.
func NewAdminService(store repositories.Store, publisher EventPublisher, logger *zap.Logger) *AdminService {
	return &AdminService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// GetAllOrders returns the orders of every user.
func (s *AdminService) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.store.Orders().GetAll(ctx)
}

// GetOrder returns any order by id.
func (s *AdminService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, orderError(err)
	}
	return order, nil
}

// UpdateOrderStatus moves an order to ordered, completed or cancelled.
func (s *AdminService) UpdateOrderStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, newError(ErrInvalidStatus, "invalid order status: %s", status)
	}
	if err := s.store.Orders().UpdateStatus(ctx, id, status); err != nil {
		return nil, orderError(err)
	}
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated", zap.Uint("order_id", id), zap.String("status", status))
	publishOrderEvent(ctx, s.publisher, s.logger, EventOrderStatusUpdated, order)
	return order, nil
}

// ListUsers returns every customer account.
func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.Users().ListByRole(ctx, models.RoleUser)
}

// GetUserOrders returns the orders of one user.
func (s *AdminService) GetUserOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, userError(err)
	}
	return s.store.Orders().ListByUser(ctx, userID)
}

// DeleteUser removes a user together with its carts and orders.
func (s *AdminService) DeleteUser(ctx context.Context, userID uint) error {
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		if _, err := tx.Users().GetByID(ctx, userID); err != nil {
			return userError(err)
		}
		if err := tx.Orders().DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.Carts().DeleteByUser(ctx, userID); err != nil {
			return err
		}
		return tx.Users().Delete(ctx, userID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("User deleted", zap.Uint("user_id", userID))
	return nil
}

func userError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(ErrNotFound, "user not found")
	}
	return err
}
