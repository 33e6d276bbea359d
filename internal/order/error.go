package order

import "errors"

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrDuplicateOrder          = errors.New("order already recorded for this payment")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("order status transition not allowed")
)
