package payment

import "context"

// Gateway talks to the external payment provider. It keeps no local state.
type Gateway interface {
	InitializeTransaction(ctx context.Context, email string, amountMinor int64, callbackURL string) (*InitializeResult, error)
	// VerifyTransaction returns ErrVerificationFailed unless the provider
	// reports the transaction as successful.
	VerifyTransaction(ctx context.Context, reference string) (*Verification, error)
	Refund(ctx context.Context, reference string, amountMinor int64, note string) (*Refund, error)
}
