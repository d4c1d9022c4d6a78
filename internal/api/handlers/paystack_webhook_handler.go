package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tourbase/backend/internal/application/services"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/infrastructure/observability"
)

// PaystackWebhookHandler handles payment provider webhook deliveries
type PaystackWebhookHandler struct {
	db             *sqlx.DB
	bookingService *services.BookingService
	webhookSecret  string
	metrics        *observability.Metrics
}

// NewPaystackWebhookHandler creates a new webhook handler
func NewPaystackWebhookHandler(db *sqlx.DB, bookingService *services.BookingService, webhookSecret string, metrics *observability.Metrics) *PaystackWebhookHandler {
	return &PaystackWebhookHandler{
		db:             db,
		bookingService: bookingService,
		webhookSecret:  webhookSecret,
		metrics:        metrics,
	}
}

// HandleWebhook processes incoming Paystack webhooks. Once the signature
// checks out the response is always 200: Paystack retries non-2xx
// deliveries, and reconciliation is idempotent, so retrying cannot help.
func (h *PaystackWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !h.verifySignature(body, r.Header.Get("x-paystack-signature")) {
		logger.Warn().Msg("rejected webhook with invalid signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var event entities.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Warn().Err(err).Msg("webhook payload is not valid JSON")
		h.acknowledge(w, false)
		return
	}

	eventID := h.storeWebhookEvent(ctx, &event, body)

	applied, err := h.bookingService.ReconcilePayment(ctx, &event)
	if err != nil {
		logger.Error().Err(err).
			Str("reference", event.Data.Reference).
			Str("event", event.Event).
			Msg("failed to reconcile payment event")
		h.markEventFailed(ctx, eventID, err)
		h.acknowledge(w, false)
		return
	}

	h.markEventProcessed(ctx, eventID)

	if h.metrics != nil {
		observability.RecordWebhookMetric(ctx, h.metrics, event.Event, applied)
	}

	h.acknowledge(w, applied)
}

// verifySignature checks the HMAC-SHA512 of the raw body against the
// x-paystack-signature header in constant time
func (h *PaystackWebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.webhookSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}

func (h *PaystackWebhookHandler) acknowledge(w http.ResponseWriter, applied bool) {
	status := "ignored"
	if applied {
		status = "processed"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// Database operations: every verified delivery is kept for audit.

func (h *PaystackWebhookHandler) storeWebhookEvent(ctx context.Context, event *entities.PaymentEvent, payload []byte) string {
	// The ID is derived from the payload, so a retried delivery lands on the
	// row the first delivery created instead of duplicating it.
	eventID := uuid.NewSHA1(uuid.NameSpaceOID, payload).String()
	query := `
		INSERT INTO webhook_events (id, provider, event_type, reference, payload, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := h.db.ExecContext(ctx, query,
		eventID, "paystack", event.Event, event.Data.Reference, payload, false, time.Now(),
	); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to store webhook event")
	}
	return eventID
}

func (h *PaystackWebhookHandler) markEventProcessed(ctx context.Context, eventID string) {
	query := `UPDATE webhook_events SET processed = true, processed_at = $1 WHERE id = $2 AND provider = 'paystack'`
	if _, err := h.db.ExecContext(ctx, query, time.Now(), eventID); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to mark webhook event processed")
	}
}

func (h *PaystackWebhookHandler) markEventFailed(ctx context.Context, eventID string, failure error) {
	query := `UPDATE webhook_events SET error_message = $1 WHERE id = $2 AND provider = 'paystack'`
	if _, err := h.db.ExecContext(ctx, query, failure.Error(), eventID); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to mark webhook event failed")
	}
}
