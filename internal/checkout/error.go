package checkout

import "errors"

var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrShippingAddressRequired = errors.New("shipping address is required; restart checkout")
	ErrReferenceOwnership      = errors.New("payment reference belongs to another customer")
	ErrInvalidAmount           = errors.New("amount must be a positive whole number")
	ErrInvalidReference        = errors.New("payment reference is required")
	ErrInvalidShippingCookie   = errors.New("invalid shipping cookie")
)
