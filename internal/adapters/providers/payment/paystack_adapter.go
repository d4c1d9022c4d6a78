package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tourbase/backend/internal/domain/providers"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

// PaystackAdapter implements PaymentProvider against the Paystack REST API
type PaystackAdapter struct {
	secretKey string
	client    *http.Client
	baseURL   string
}

// NewPaystackAdapter creates a new Paystack adapter
func NewPaystackAdapter(secretKey string) providers.PaymentProvider {
	return &PaystackAdapter{
		secretKey: secretKey,
		client:    &http.Client{Timeout: 10 * time.Second},
		baseURL:   "https://api.paystack.co",
	}
}

type paystackInitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paystackInitializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

// InitializeTransaction creates a checkout session carrying our reference
func (a *PaystackAdapter) InitializeTransaction(ctx context.Context, params providers.InitializeParams) (*providers.CheckoutAuthorization, error) {
	payload := paystackInitializeRequest{
		Email:       params.Email,
		Amount:      params.Amount,
		Currency:    params.Currency,
		Reference:   params.Reference,
		CallbackURL: params.CallbackURL,
		Metadata:    params.Metadata,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal initialize request", err)
	}

	url := fmt.Sprintf("%s/transaction/initialize", a.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build initialize request", err)
	}
	a.addHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError("payment provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewExternalError(
			fmt.Sprintf("paystack initialize returned status %d", resp.StatusCode), nil)
	}

	var result paystackInitializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.NewExternalError("failed to decode initialize response", err)
	}
	if !result.Status {
		return nil, apperrors.NewExternalError(
			fmt.Sprintf("paystack initialize rejected: %s", result.Message), nil)
	}

	return &providers.CheckoutAuthorization{
		AuthorizationURL: result.Data.AuthorizationURL,
		AccessCode:       result.Data.AccessCode,
		Reference:        result.Data.Reference,
	}, nil
}

// VerifyTransaction fetches the provider-side state of a reference
func (a *PaystackAdapter) VerifyTransaction(ctx context.Context, reference string) (*providers.VerifiedTransaction, error) {
	url := fmt.Sprintf("%s/transaction/verify/%s", a.baseURL, reference)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build verify request", err)
	}
	a.addHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError("payment provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found", reference))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewExternalError(
			fmt.Sprintf("paystack verify returned status %d", resp.StatusCode), nil)
	}

	var result paystackVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.NewExternalError("failed to decode verify response", err)
	}
	if !result.Status {
		return nil, apperrors.NewExternalError(
			fmt.Sprintf("paystack verify rejected: %s", result.Message), nil)
	}

	return &providers.VerifiedTransaction{
		Reference: result.Data.Reference,
		Status:    result.Data.Status,
		Amount:    result.Data.Amount,
	}, nil
}

func (a *PaystackAdapter) addHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.secretKey))
	req.Header.Set("Content-Type", "application/json")
}
