package payment

import (
	"github.com/tourbase/backend/internal/domain/providers"
	"github.com/tourbase/backend/pkg/config"
)

// NewPaymentProvider selects the payment gateway from configuration. Without
// a secret key the mock provider serves local development.
func NewPaymentProvider(cfg *config.PaystackConfig) providers.PaymentProvider {
	if cfg.Provider == "mock" || cfg.SecretKey == "" {
		return NewMockAdapter()
	}
	return NewPaystackAdapter(cfg.SecretKey)
}
