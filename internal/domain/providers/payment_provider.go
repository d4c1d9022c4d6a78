package providers

import (
	"context"
)

// InitializeParams describes a checkout session to create with the payment
// provider. Amount is in subunits of the currency (kobo for NGN).
type InitializeParams struct {
	Reference   string
	Amount      int64
	Currency    string
	Email       string
	CallbackURL string
	Metadata    map[string]string
}

// CheckoutAuthorization is the provider's redirect handle for a created
// session.
type CheckoutAuthorization struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifiedTransaction is the provider's view of a settled transaction
type VerifiedTransaction struct {
	Reference string
	Status    string
	Amount    int64
}

// PaymentProvider abstracts the external payment gateway
type PaymentProvider interface {
	// InitializeTransaction creates a payment session carrying the reference
	// and amount, returning the client-facing authorization handle.
	InitializeTransaction(ctx context.Context, params InitializeParams) (*CheckoutAuthorization, error)
	// VerifyTransaction fetches the provider-side state of a reference.
	VerifyTransaction(ctx context.Context, reference string) (*VerifiedTransaction, error)
}
