package models

import "time"

// Roles recognised by the role middleware.
const (
	RoleUser  = "usr"
	RoleAdmin = "adm"
)

// User represents a user of the store.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash, never serialised
	Role      string    `json:"role" gorm:"type:varchar(10);not null;default:usr"`
	Carts     []Cart    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Orders    []Order   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
