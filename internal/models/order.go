package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Orders are created as ordered; only admins move them on.
const (
	OrderStatusOrdered   = "ordered"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// OrderItem represents a single item within an order.
type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"not null;index"`
	ProductID uint            `json:"product_id" gorm:"not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"` // Price at the time of order
}

// Order represents a customer order placed from a cart.
type Order struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	UserID      uint            `json:"user_id" gorm:"not null;index"`
	CartID      uint            `json:"cart_id" gorm:"not null;index"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	Status      string          `json:"status" gorm:"type:varchar(20);not null;default:ordered"`
	Items       []OrderItem     `json:"order_items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ValidOrderStatus reports whether status is one an admin may set.
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusOrdered, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}
