package order

import "errors"

var (
	// ErrProductNotFound means a requested product id does not resolve
	ErrProductNotFound = errors.New("product not found")
	// ErrProductUnavailable means the product exists but is not active
	ErrProductUnavailable = errors.New("product is not available")
	// ErrInsufficientStock means the requested quantity exceeds current inventory
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrBelowMinimumOrder means the requested quantity is below the supplier's floor
	ErrBelowMinimumOrder = errors.New("below minimum order quantity")
	// ErrEmptyOrder means the request contained no line items
	ErrEmptyOrder = errors.New("order must contain at least one item")
	// ErrOrderNotFound means the order id does not resolve
	ErrOrderNotFound = errors.New("order not found")
	// ErrNotAuthorized means the caller has no right to perform the operation
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInvalidStatus means the requested status is outside the enumerated set
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrIllegalTransition means the requested status is enumerated but not
	// reachable from the order's current status
	ErrIllegalTransition = errors.New("illegal status transition")
)
