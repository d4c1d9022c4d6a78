package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/providers"
	"github.com/tourbase/backend/internal/domain/repositories"
	"github.com/tourbase/backend/internal/infrastructure/observability"
	"github.com/tourbase/backend/pkg/config"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

const checkoutCurrency = "NGN"

// BookingService handles checkout initiation and payment reconciliation
type BookingService struct {
	repo          repositories.BookingRepository
	tourRepo      repositories.TourRepository
	userRepo      repositories.UserRepository
	provider      providers.PaymentProvider
	notifications *NotificationService
	callbackURL   string
}

// NewBookingService creates a new booking service
func NewBookingService(
	repo repositories.BookingRepository,
	tourRepo repositories.TourRepository,
	userRepo repositories.UserRepository,
	provider providers.PaymentProvider,
	notifications *NotificationService,
	paystackCfg *config.PaystackConfig,
) *BookingService {
	return &BookingService{
		repo:          repo,
		tourRepo:      tourRepo,
		userRepo:      userRepo,
		provider:      provider,
		notifications: notifications,
		callbackURL:   paystackCfg.CallbackURL,
	}
}

// InitiateCheckout opens a payment session for the tour and persists the
// pending booking. The pre-check gives a friendly conflict for the common
// case; the unique index on active bookings is what actually prevents a
// double booking under concurrency.
func (s *BookingService) InitiateCheckout(ctx context.Context, tourID string, user *entities.User) (*entities.CheckoutSession, error) {
	if tourID == "" {
		return nil, apperrors.NewValidationError("tour id is required")
	}

	if existing, err := s.repo.GetActiveByTourAndUser(ctx, tourID, user.ID); err == nil && existing != nil {
		return nil, apperrors.NewConflictError("you already have an active booking for this tour")
	} else if err != nil && apperrors.TypeOf(err) != apperrors.ErrorTypeNotFound {
		return nil, err
	}

	tour, err := s.tourRepo.GetByID(ctx, tourID)
	if err != nil {
		return nil, err
	}

	price := tour.Price
	if tour.PriceDiscount != nil && *tour.PriceDiscount > 0 && *tour.PriceDiscount < price {
		price = *tour.PriceDiscount
	}

	reference := uuid.New().String()
	authorization, err := s.provider.InitializeTransaction(ctx, providers.InitializeParams{
		Reference:   reference,
		Amount:      toSubunits(price),
		Currency:    checkoutCurrency,
		Email:       user.Email,
		CallbackURL: s.callbackURL,
		Metadata: map[string]string{
			"tour_id": tour.ID,
			"user_id": user.ID,
		},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	booking := &entities.Booking{
		ID:        uuid.New().String(),
		TourID:    tour.ID,
		UserID:    user.ID,
		Price:     price,
		Reference: reference,
		Status:    entities.BookingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("booking_id", booking.ID).
		Str("reference", reference).
		Str("tour_id", tour.ID).
		Msg("checkout session created")

	return &entities.CheckoutSession{
		PaymentLink: authorization.AuthorizationURL,
		Reference:   reference,
		AccessCode:  authorization.AccessCode,
		Amount:      price,
		Email:       user.Email,
	}, nil
}

// ReconcilePayment applies a verified provider event to the referenced
// booking. It reports whether the event changed anything: redundant
// deliveries and events for bookings already out of pending are no-ops.
func (s *BookingService) ReconcilePayment(ctx context.Context, event *entities.PaymentEvent) (bool, error) {
	logger := observability.LoggerFromContext(ctx)

	var target entities.BookingStatus
	switch event.Event {
	case entities.PaymentEventChargeSuccess:
		target = entities.BookingStatusPaid
	case entities.PaymentEventChargeFailed:
		target = entities.BookingStatusFailed
	default:
		logger.Debug().Str("event", event.Event).Msg("ignoring unhandled payment event")
		return false, nil
	}

	var paidAmount *float64
	if target == entities.BookingStatusPaid {
		amount := fromSubunits(event.Data.Amount)
		paidAmount = &amount
	}

	applied, err := s.repo.Transition(ctx, event.Data.Reference, target, paidAmount)
	if err != nil {
		return false, err
	}

	if !applied {
		logger.Info().
			Str("reference", event.Data.Reference).
			Str("event", event.Event).
			Msg("payment event did not apply, booking unknown or already settled")
		return false, nil
	}

	logger.Info().
		Str("reference", event.Data.Reference).
		Str("status", string(target)).
		Msg("booking transitioned")

	if target == entities.BookingStatusPaid && s.notifications != nil {
		s.sendConfirmation(ctx, event.Data.Reference)
	}

	return true, nil
}

// VerifyCheckout asks the provider for the state of a reference and applies
// the result, covering webhooks that never arrived. Restricted to the
// booking's owner unless the caller is an admin.
func (s *BookingService) VerifyCheckout(ctx context.Context, reference string, caller *entities.User) (*entities.Booking, error) {
	booking, err := s.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if booking.UserID != caller.ID && caller.Role != entities.RoleAdmin {
		return nil, apperrors.NewForbiddenError("you do not have access to this booking")
	}
	if booking.Status.Terminal() {
		return booking, nil
	}

	tx, err := s.provider.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}

	event := &entities.PaymentEvent{
		Data: entities.PaymentEventData{
			Reference: reference,
			Amount:    tx.Amount,
			Status:    tx.Status,
		},
	}
	switch tx.Status {
	case "success":
		event.Event = entities.PaymentEventChargeSuccess
	case "failed", "abandoned":
		event.Event = entities.PaymentEventChargeFailed
	default:
		return booking, nil
	}

	if _, err := s.ReconcilePayment(ctx, event); err != nil {
		return nil, err
	}
	return s.GetByReference(ctx, reference)
}

// GetByReference looks a booking up by its payment reference
func (s *BookingService) GetByReference(ctx context.Context, reference string) (*entities.Booking, error) {
	return s.repo.GetByReference(ctx, reference)
}

// GetBooking returns a booking, restricted to its owner unless the caller is
// an admin
func (s *BookingService) GetBooking(ctx context.Context, id string, caller *entities.User) (*entities.Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != caller.ID && caller.Role != entities.RoleAdmin {
		return nil, apperrors.NewForbiddenError("you do not have access to this booking")
	}
	return booking, nil
}

// ListMyBookings returns the caller's bookings
func (s *BookingService) ListMyBookings(ctx context.Context, userID string) ([]*entities.Booking, error) {
	return s.repo.List(ctx, repositories.BookingFilter{UserID: userID})
}

// ListBookings returns bookings matching the filter (admin)
func (s *BookingService) ListBookings(ctx context.Context, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	return s.repo.List(ctx, filter)
}

// UpdateBooking applies an admin override
func (s *BookingService) UpdateBooking(ctx context.Context, id string, update repositories.BookingUpdate) (*entities.Booking, error) {
	if update.Status != nil {
		switch *update.Status {
		case entities.BookingStatusPending, entities.BookingStatusPaid, entities.BookingStatusFailed:
		default:
			return nil, apperrors.NewValidationError("invalid booking status")
		}
	}
	if update.Price != nil && *update.Price <= 0 {
		return nil, apperrors.NewValidationError("price must be positive")
	}
	return s.repo.Update(ctx, id, update)
}

// DeleteBooking removes a booking (admin)
func (s *BookingService) DeleteBooking(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *BookingService) sendConfirmation(ctx context.Context, reference string) {
	booking, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return
	}
	tour, err := s.tourRepo.GetByID(ctx, booking.TourID)
	if err != nil {
		return
	}
	user, err := s.userRepo.GetByID(ctx, booking.UserID)
	if err != nil {
		return
	}
	amount := booking.Price
	if booking.PaidAmount != nil {
		amount = *booking.PaidAmount
	}
	s.notifications.SendBookingConfirmation(ctx, user.Email, tour.Name, amount)
}

// toSubunits converts a major-unit price to the provider's integer subunits
// (kobo)
func toSubunits(price float64) int64 {
	return int64(math.Round(price * 100))
}

func fromSubunits(amount int64) float64 {
	return float64(amount) / 100
}
