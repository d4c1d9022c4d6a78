package payment

import (
	"context"
	"fmt"

	"github.com/tourbase/backend/internal/domain/providers"
)

// MockAdapter provides deterministic checkout sessions for local development.
type MockAdapter struct {
	checkoutBaseURL string
}

// NewMockAdapter creates a mock payment provider.
func NewMockAdapter() providers.PaymentProvider {
	return &MockAdapter{
		checkoutBaseURL: "https://checkout.example.com",
	}
}

// InitializeTransaction returns a fake authorization for the reference.
func (m *MockAdapter) InitializeTransaction(ctx context.Context, params providers.InitializeParams) (*providers.CheckoutAuthorization, error) {
	if params.Reference == "" {
		return nil, fmt.Errorf("reference is required")
	}
	return &providers.CheckoutAuthorization{
		AuthorizationURL: fmt.Sprintf("%s/%s", m.checkoutBaseURL, params.Reference),
		AccessCode:       fmt.Sprintf("mock_%s", params.Reference),
		Reference:        params.Reference,
	}, nil
}

// VerifyTransaction always reports the reference as successful.
func (m *MockAdapter) VerifyTransaction(ctx context.Context, reference string) (*providers.VerifiedTransaction, error) {
	return &providers.VerifiedTransaction{
		Reference: reference,
		Status:    "success",
		Amount:    0,
	}, nil
}
