package order

import "errors"

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrDuplicateOrderCode  = errors.New("duplicate order code")
	ErrInvalidStatusChange = errors.New("invalid order status change")
)
