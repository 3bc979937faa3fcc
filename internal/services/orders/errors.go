package orders

import "errors"

// Guard failures. Their text is returned to callers unchanged.
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrAlreadyPaid       = errors.New("order is already paid")
	ErrAlreadyDelivered  = errors.New("order is already delivered")
	ErrAlreadyCancelled  = errors.New("order is already cancelled")
	ErrNotPaid           = errors.New("order is not paid yet")
	ErrEmptyOrder        = errors.New("order must have at least one item")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrProductNotFound   = errors.New("product not found")
	ErrProductNotForSale = errors.New("product is not available")
	ErrInsufficientStock = errors.New("not enough stock")
)
