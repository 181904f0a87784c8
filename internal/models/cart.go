package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart statuses. A cart moves from active to completed exactly once, when it is checked out.
const (
	CartStatusActive    = "active"
	CartStatusCompleted = "completed"
)

// Cart is a user's shopping cart. The partial unique index keeps a single active cart per user.
type Cart struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	UserID     uint            `json:"user_id" gorm:"not null;uniqueIndex:idx_carts_user_active,where:status = 'active'"`
	Status     string          `json:"status" gorm:"type:varchar(20);not null;default:active;index"`
	Items      []CartItem      `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	TotalPrice decimal.Decimal `json:"total_price" gorm:"-"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// IsActive reports whether the cart still accepts line-item changes.
func (c *Cart) IsActive() bool {
	return c.Status == CartStatusActive
}

// Recalculate sets TotalPrice to the sum of the line prices.
func (c *Cart) Recalculate() {
	c.TotalPrice = SumPrices(c.Items)
}

// CartItem is the cart/product pivot row. Price is a snapshot taken when the line was written.
type CartItem struct {
	CartID    uint            `json:"cart_id" gorm:"primaryKey;autoIncrement:false"`
	ProductID uint            `json:"product_id" gorm:"primaryKey;autoIncrement:false"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SumPrices adds up the price column of a set of cart lines.
func SumPrices(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return total
}
