package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tourbase/backend/internal/application/services"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/repositories"
	"github.com/tourbase/backend/pkg/config"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	db := sqlx.NewDb(mockDB, "postgres")
	return db, mock
}

// stubBookingRepo implements repositories.BookingRepository with only the
// Transition path wired; the webhook flow touches nothing else.
type stubBookingRepo struct {
	transitionFn    func(reference string, to entities.BookingStatus, paidAmount *float64) (bool, error)
	transitionCalls int
}

func (s *stubBookingRepo) Create(ctx context.Context, booking *entities.Booking) error {
	return errors.New("not implemented")
}

func (s *stubBookingRepo) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBookingRepo) GetByReference(ctx context.Context, reference string) (*entities.Booking, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBookingRepo) GetActiveByTourAndUser(ctx context.Context, tourID, userID string) (*entities.Booking, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBookingRepo) List(ctx context.Context, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBookingRepo) Update(ctx context.Context, id string, update repositories.BookingUpdate) (*entities.Booking, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBookingRepo) Delete(ctx context.Context, id string) error {
	return errors.New("not implemented")
}

func (s *stubBookingRepo) Transition(ctx context.Context, reference string, to entities.BookingStatus, paidAmount *float64) (bool, error) {
	s.transitionCalls++
	if s.transitionFn == nil {
		return false, nil
	}
	return s.transitionFn(reference, to, paidAmount)
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaystackWebhookHandler_HandleWebhook(t *testing.T) {
	secret := "test_secret"

	tests := []struct {
		name               string
		body               []byte
		signature          string
		transitionFn       func(reference string, to entities.BookingStatus, paidAmount *float64) (bool, error)
		setupMocks         func(sqlmock.Sqlmock)
		expectedStatusCode int
		expectedAck        string
		expectTransitions  int
	}{
		{
			name: "Valid charge.success applies the transition",
			body: mustMarshal(t, entities.PaymentEvent{
				Event: entities.PaymentEventChargeSuccess,
				Data: entities.PaymentEventData{
					Reference: "ref_123",
					Amount:    49700,
					Status:    "success",
				},
			}),
			signature: "", // computed from body below
			transitionFn: func(reference string, to entities.BookingStatus, paidAmount *float64) (bool, error) {
				if reference != "ref_123" {
					t.Errorf("Transition reference = %v, want ref_123", reference)
				}
				if to != entities.BookingStatusPaid {
					t.Errorf("Transition status = %v, want paid", to)
				}
				if paidAmount == nil || *paidAmount != 497 {
					t.Errorf("Transition paidAmount = %v, want 497", paidAmount)
				}
				return true, nil
			},
			setupMocks: func(m sqlmock.Sqlmock) {
				m.ExpectExec("INSERT INTO webhook_events").
					WillReturnResult(sqlmock.NewResult(1, 1))
				m.ExpectExec("UPDATE webhook_events SET processed").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			expectedStatusCode: http.StatusOK,
			expectedAck:        "processed",
			expectTransitions:  1,
		},
		{
			name: "Invalid signature is rejected before any processing",
			body: mustMarshal(t, entities.PaymentEvent{
				Event: entities.PaymentEventChargeSuccess,
				Data:  entities.PaymentEventData{Reference: "ref_123"},
			}),
			signature:          "deadbeef",
			setupMocks:         func(m sqlmock.Sqlmock) {},
			expectedStatusCode: http.StatusUnauthorized,
			expectTransitions:  0,
		},
		{
			name: "Redundant delivery acknowledges without effect",
			body: mustMarshal(t, entities.PaymentEvent{
				Event: entities.PaymentEventChargeSuccess,
				Data: entities.PaymentEventData{
					Reference: "ref_123",
					Amount:    49700,
					Status:    "success",
				},
			}),
			transitionFn: func(reference string, to entities.BookingStatus, paidAmount *float64) (bool, error) {
				return false, nil // already settled
			},
			setupMocks: func(m sqlmock.Sqlmock) {
				m.ExpectExec("INSERT INTO webhook_events").
					WillReturnResult(sqlmock.NewResult(1, 1))
				m.ExpectExec("UPDATE webhook_events SET processed").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			expectedStatusCode: http.StatusOK,
			expectedAck:        "ignored",
			expectTransitions:  1,
		},
		{
			name: "Unhandled event type is acknowledged without a transition",
			body: []byte(`{"event":"transfer.success","data":{"reference":"ref_999"}}`),
			setupMocks: func(m sqlmock.Sqlmock) {
				m.ExpectExec("INSERT INTO webhook_events").
					WillReturnResult(sqlmock.NewResult(1, 1))
				m.ExpectExec("UPDATE webhook_events SET processed").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			expectedStatusCode: http.StatusOK,
			expectedAck:        "ignored",
			expectTransitions:  0,
		},
		{
			name: "Reconcile failure still returns 200",
			body: mustMarshal(t, entities.PaymentEvent{
				Event: entities.PaymentEventChargeFailed,
				Data:  entities.PaymentEventData{Reference: "ref_123", Status: "failed"},
			}),
			transitionFn: func(reference string, to entities.BookingStatus, paidAmount *float64) (bool, error) {
				return false, errors.New("database unavailable")
			},
			setupMocks: func(m sqlmock.Sqlmock) {
				m.ExpectExec("INSERT INTO webhook_events").
					WillReturnResult(sqlmock.NewResult(1, 1))
				m.ExpectExec("UPDATE webhook_events SET error_message").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			expectedStatusCode: http.StatusOK,
			expectedAck:        "ignored",
			expectTransitions:  1,
		},
		{
			name:               "Signed garbage body is acknowledged and ignored",
			body:               []byte(`not json at all`),
			setupMocks:         func(m sqlmock.Sqlmock) {},
			expectedStatusCode: http.StatusOK,
			expectedAck:        "ignored",
			expectTransitions:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			defer db.Close()
			tt.setupMocks(mock)

			repo := &stubBookingRepo{transitionFn: tt.transitionFn}
			bookingService := services.NewBookingService(repo, nil, nil, nil, nil, &config.PaystackConfig{})

			handler := NewPaystackWebhookHandler(db, bookingService, secret, nil)

			signature := tt.signature
			if signature == "" {
				signature = signBody(secret, tt.body)
			}

			req := httptest.NewRequest("POST", "/webhooks/paystack", bytes.NewBuffer(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("x-paystack-signature", signature)

			rr := httptest.NewRecorder()
			handler.HandleWebhook(rr, req)

			if rr.Code != tt.expectedStatusCode {
				t.Errorf("HandleWebhook() status = %v, want %v", rr.Code, tt.expectedStatusCode)
			}

			if tt.expectedAck != "" {
				var ack map[string]string
				if err := json.Unmarshal(rr.Body.Bytes(), &ack); err != nil {
					t.Fatalf("Failed to decode acknowledgement: %v", err)
				}
				if ack["status"] != tt.expectedAck {
					t.Errorf("Acknowledgement = %v, want %v", ack["status"], tt.expectedAck)
				}
			}

			if repo.transitionCalls != tt.expectTransitions {
				t.Errorf("Transition calls = %v, want %v", repo.transitionCalls, tt.expectTransitions)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestPaystackWebhookHandler_HandleWebhook_RetriedDeliverySharesAuditRow(t *testing.T) {
	secret := "test_secret"
	body := mustMarshal(t, entities.PaymentEvent{
		Event: entities.PaymentEventChargeSuccess,
		Data: entities.PaymentEventData{
			Reference: "ref_123",
			Amount:    49700,
			Status:    "success",
		},
	})
	eventID := uuid.NewSHA1(uuid.NameSpaceOID, body).String()

	db, mock := setupMockDB(t)
	defer db.Close()

	// Both deliveries insert under the same payload-derived ID; the second
	// insert hits the conflict clause and changes nothing.
	for i := 0; i < 2; i++ {
		mock.ExpectExec(`(?s)INSERT INTO webhook_events .+ ON CONFLICT \(id\) DO NOTHING`).
			WithArgs(eventID, "paystack", entities.PaymentEventChargeSuccess, "ref_123", body, false, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE webhook_events SET processed").
			WithArgs(sqlmock.AnyArg(), eventID).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	applied := false
	repo := &stubBookingRepo{transitionFn: func(reference string, to entities.BookingStatus, paidAmount *float64) (bool, error) {
		if applied {
			return false, nil
		}
		applied = true
		return true, nil
	}}
	bookingService := services.NewBookingService(repo, nil, nil, nil, nil, &config.PaystackConfig{})
	handler := NewPaystackWebhookHandler(db, bookingService, secret, nil)

	for delivery, wantAck := range []string{"processed", "ignored"} {
		req := httptest.NewRequest("POST", "/webhooks/paystack", bytes.NewBuffer(body))
		req.Header.Set("x-paystack-signature", signBody(secret, body))

		rr := httptest.NewRecorder()
		handler.HandleWebhook(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("delivery %d status = %v, want 200", delivery, rr.Code)
		}
		var ack map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &ack); err != nil {
			t.Fatalf("Failed to decode acknowledgement: %v", err)
		}
		if ack["status"] != wantAck {
			t.Errorf("delivery %d acknowledgement = %v, want %v", delivery, ack["status"], wantAck)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestPaystackWebhookHandler_VerifySignature(t *testing.T) {
	secret := "test_secret"
	handler := &PaystackWebhookHandler{webhookSecret: secret}

	body := []byte(`{"event":"charge.success"}`)
	validSignature := signBody(secret, body)

	tests := []struct {
		name      string
		secret    string
		signature string
		want      bool
	}{
		{
			name:      "Valid signature",
			secret:    secret,
			signature: validSignature,
			want:      true,
		},
		{
			name:      "Invalid signature",
			secret:    secret,
			signature: "invalid_signature",
			want:      false,
		},
		{
			name:      "Missing signature",
			secret:    secret,
			signature: "",
			want:      false,
		},
		{
			name:      "Unconfigured secret rejects everything",
			secret:    "",
			signature: validSignature,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler.webhookSecret = tt.secret
			if got := handler.verifySignature(body, tt.signature); got != tt.want {
				t.Errorf("verifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	return body
}
