package entities

import "time"

// BookingStatus represents the payment state of a booking
type BookingStatus string

const (
	BookingStatusPending BookingStatus = "pending"
	BookingStatusPaid    BookingStatus = "paid"
	BookingStatusFailed  BookingStatus = "failed"
)

// Terminal reports whether the status is a terminal state
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusPaid || s == BookingStatusFailed
}

// Booking links one user to one tour. It is created pending at checkout
// initiation and transitioned to paid or failed only by the payment
// provider's callback matched on Reference.
type Booking struct {
	ID         string        `json:"id" db:"id"`
	TourID     string        `json:"tour_id" db:"tour_id"`
	UserID     string        `json:"user_id" db:"user_id"`
	Price      float64       `json:"price" db:"price"`
	Reference  string        `json:"reference" db:"reference"`
	Status     BookingStatus `json:"status" db:"status"`
	PaidAmount *float64      `json:"paid_amount,omitempty" db:"paid_amount"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

// CheckoutSession is what the client needs to complete payment with the
// provider.
type CheckoutSession struct {
	PaymentLink string  `json:"payment_link"`
	Reference   string  `json:"reference"`
	AccessCode  string  `json:"access_code,omitempty"`
	Amount      float64 `json:"amount"`
	Email       string  `json:"email"`
}
