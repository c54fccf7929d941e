package stock

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientStock is matched by every *InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrCartNotFound is returned when a cart does not exist or belongs to
	// another user.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartConverted is returned when a checked-out cart is modified.
	ErrCartConverted = errors.New("cart already checked out")
)

// InsufficientStockError reports a reservation that asked for more units
// than the product has left.
type InsufficientStockError struct {
	ProductID uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Is makes errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
