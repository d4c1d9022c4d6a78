package entities

import (
	"encoding/json"
	"time"
)

// Payment provider webhook event types we act on. Anything else is
// acknowledged without effect.
const (
	PaymentEventChargeSuccess = "charge.success"
	PaymentEventChargeFailed  = "charge.failed"
)

// PaymentEvent is the decoded provider webhook payload
type PaymentEvent struct {
	Event string           `json:"event"`
	Data  PaymentEventData `json:"data"`
}

// PaymentEventData carries the settlement details of a webhook event.
// Amount is in subunits (kobo).
type PaymentEventData struct {
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Status    string          `json:"status"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}
