package repositories

import (
	"context"

	"github.com/tourbase/backend/internal/domain/entities"
)

// BookingFilter narrows booking listings
type BookingFilter struct {
	TourID string
	UserID string
	Status entities.BookingStatus
	Limit  int
	Offset int
}

// BookingUpdate carries the admin-mutable fields. Nil means unchanged.
type BookingUpdate struct {
	Price  *float64
	Status *entities.BookingStatus
}

// BookingRepository defines the interface for booking persistence.
//
// Create must map a violation of the active-booking unique index
// (one pending/paid booking per (tour, user)) to a conflict error, so two
// concurrent checkouts cannot both persist.
type BookingRepository interface {
	Create(ctx context.Context, booking *entities.Booking) error
	GetByID(ctx context.Context, id string) (*entities.Booking, error)
	// GetByReference looks a booking up by its payment reference.
	GetByReference(ctx context.Context, reference string) (*entities.Booking, error)
	// GetActiveByTourAndUser returns the pending or paid booking for the
	// pair, or a not-found error.
	GetActiveByTourAndUser(ctx context.Context, tourID, userID string) (*entities.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]*entities.Booking, error)
	Update(ctx context.Context, id string, update BookingUpdate) (*entities.Booking, error)
	Delete(ctx context.Context, id string) error

	// Transition atomically moves the booking with the given payment
	// reference from pending to the target status, recording the settled
	// amount when provided. It reports whether a row changed: false means
	// the reference is unknown or the booking already left pending, which
	// callers treat as an idempotent no-op.
	Transition(ctx context.Context, reference string, to entities.BookingStatus, paidAmount *float64) (bool, error)
}
