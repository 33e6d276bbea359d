package cart

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidQuantity = errors.New("invalid cart quantity")
	ErrInvalidVariant  = errors.New("selected color or size is not available for this product")

	// -- Resource State --
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrNotEnoughStock   = errors.New("requested quantity exceeds available stock")
)
