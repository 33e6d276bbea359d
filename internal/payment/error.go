package payment

import "errors"

var (
	// -- Gateway --
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrRefundFailed       = errors.New("refund failed")

	// -- Ledger --
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrDuplicateReference = errors.New("payment reference already recorded")
)
