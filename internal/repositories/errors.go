package repositories

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrStockConflict is returned when a guarded stock decrement matches no row.
	ErrStockConflict = errors.New("stock changed concurrently or is insufficient")
)
