package services

import (
	"context"
	"encoding/json"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Routing keys of the events published after a state change has committed.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusUpdated = "order.status_updated"
)

// EventPublisher delivers a serialized event under a routing key.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// OrderEvent is the payload of every order event.
type OrderEvent struct {
	EventID     string             `json:"event_id"`
	Type        string             `json:"type"`
	OrderID     uint               `json:"order_id"`
	UserID      uint               `json:"user_id"`
	CartID      uint               `json:"cart_id"`
	Status      string             `json:"status"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Items       []models.OrderItem `json:"items,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// publishOrderEvent sends an event for order. Failures are logged and swallowed: the
// order has already committed.
func publishOrderEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, eventType string, order *models.Order) {
	if publisher == nil {
		logger.Debug("No event publisher configured, skipping order event",
			zap.String("type", eventType), zap.Uint("order_id", order.ID))
		return
	}

	body, err := json.Marshal(OrderEvent{
		EventID:     uuid.New().String(),
		Type:        eventType,
		OrderID:     order.ID,
		UserID:      order.UserID,
		CartID:      order.CartID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Items:       order.Items,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to marshal order event", zap.Uint("order_id", order.ID), zap.Error(err))
		return
	}
	if err := publisher.Publish(ctx, eventType, body); err != nil {
		logger.Warn("Failed to publish order event",
			zap.String("type", eventType),
			zap.Uint("order_id", order.ID),
			zap.Error(err))
		return
	}
	logger.Info("Published order event", zap.String("type", eventType), zap.Uint("order_id", order.ID))
}
