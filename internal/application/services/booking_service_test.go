package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tourbase/backend/internal/application/services"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/providers"
	"github.com/tourbase/backend/pkg/config"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

func newBookingService(repo *MockBookingRepository, tourRepo *MockTourRepository, userRepo *MockUserRepository, provider *MockPaymentProvider) *services.BookingService {
	return services.NewBookingService(repo, tourRepo, userRepo, provider, nil, &config.PaystackConfig{
		CallbackURL: "http://localhost:8080/",
	})
}

func TestBookingService_InitiateCheckout(t *testing.T) {
	user := &entities.User{ID: "user-1", Email: "traveler@example.com", Role: entities.RoleUser}
	tour := &entities.Tour{ID: "tour-1", Name: "The Forest Hiker", Price: 497}

	t.Run("creates a pending booking with the provider's payment link", func(t *testing.T) {
		repo := new(MockBookingRepository)
		tourRepo := new(MockTourRepository)
		userRepo := new(MockUserRepository)
		provider := new(MockPaymentProvider)
		service := newBookingService(repo, tourRepo, userRepo, provider)

		repo.On("GetActiveByTourAndUser", mock.Anything, "tour-1", "user-1").
			Return(nil, apperrors.NewNotFoundError("no active booking"))
		tourRepo.On("GetByID", mock.Anything, "tour-1").Return(tour, nil)
		provider.On("InitializeTransaction", mock.Anything, mock.MatchedBy(func(p providers.InitializeParams) bool {
			return p.Amount == 49700 && p.Email == "traveler@example.com" && p.Reference != ""
		})).Return(&providers.CheckoutAuthorization{
			AuthorizationURL: "https://checkout.paystack.com/abc",
			AccessCode:       "abc",
			Reference:        "ref-1",
		}, nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(b *entities.Booking) bool {
			return b.Status == entities.BookingStatusPending && b.TourID == "tour-1" && b.UserID == "user-1" && b.Price == 497
		})).Return(nil)

		session, err := service.InitiateCheckout(context.Background(), "tour-1", user)

		require.NoError(t, err)
		assert.Equal(t, "https://checkout.paystack.com/abc", session.PaymentLink)
		assert.Equal(t, 497.0, session.Amount)
		repo.AssertExpectations(t)
		provider.AssertExpectations(t)
	})

	t.Run("rejects a second checkout while one is active", func(t *testing.T) {
		repo := new(MockBookingRepository)
		tourRepo := new(MockTourRepository)
		userRepo := new(MockUserRepository)
		provider := new(MockPaymentProvider)
		service := newBookingService(repo, tourRepo, userRepo, provider)

		repo.On("GetActiveByTourAndUser", mock.Anything, "tour-1", "user-1").
			Return(&entities.Booking{ID: "booking-1", Status: entities.BookingStatusPending}, nil)

		session, err := service.InitiateCheckout(context.Background(), "tour-1", user)

		require.Error(t, err)
		assert.Nil(t, session)
		assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.TypeOf(err))
		provider.AssertNotCalled(t, "InitializeTransaction")
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("does not persist a booking when the provider fails", func(t *testing.T) {
		repo := new(MockBookingRepository)
		tourRepo := new(MockTourRepository)
		userRepo := new(MockUserRepository)
		provider := new(MockPaymentProvider)
		service := newBookingService(repo, tourRepo, userRepo, provider)

		repo.On("GetActiveByTourAndUser", mock.Anything, "tour-1", "user-1").
			Return(nil, apperrors.NewNotFoundError("no active booking"))
		tourRepo.On("GetByID", mock.Anything, "tour-1").Return(tour, nil)
		provider.On("InitializeTransaction", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewExternalError("payment provider unreachable", errors.New("timeout")))

		session, err := service.InitiateCheckout(context.Background(), "tour-1", user)

		require.Error(t, err)
		assert.Nil(t, session)
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("charges the discounted price when one applies", func(t *testing.T) {
		repo := new(MockBookingRepository)
		tourRepo := new(MockTourRepository)
		userRepo := new(MockUserRepository)
		provider := new(MockPaymentProvider)
		service := newBookingService(repo, tourRepo, userRepo, provider)

		discount := 397.0
		discounted := &entities.Tour{ID: "tour-1", Name: "The Forest Hiker", Price: 497, PriceDiscount: &discount}

		repo.On("GetActiveByTourAndUser", mock.Anything, "tour-1", "user-1").
			Return(nil, apperrors.NewNotFoundError("no active booking"))
		tourRepo.On("GetByID", mock.Anything, "tour-1").Return(discounted, nil)
		provider.On("InitializeTransaction", mock.Anything, mock.MatchedBy(func(p providers.InitializeParams) bool {
			return p.Amount == 39700
		})).Return(&providers.CheckoutAuthorization{AuthorizationURL: "https://checkout.paystack.com/abc"}, nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(b *entities.Booking) bool {
			return b.Price == 397
		})).Return(nil)

		session, err := service.InitiateCheckout(context.Background(), "tour-1", user)

		require.NoError(t, err)
		assert.Equal(t, 397.0, session.Amount)
	})
}

func TestBookingService_ReconcilePayment(t *testing.T) {
	t.Run("marks the booking paid on charge.success", func(t *testing.T) {
		repo := new(MockBookingRepository)
		service := newBookingService(repo, new(MockTourRepository), new(MockUserRepository), new(MockPaymentProvider))

		repo.On("Transition", mock.Anything, "ref-1", entities.BookingStatusPaid, mock.MatchedBy(func(amount *float64) bool {
			return amount != nil && *amount == 497
		})).Return(true, nil)

		applied, err := service.ReconcilePayment(context.Background(), &entities.PaymentEvent{
			Event: entities.PaymentEventChargeSuccess,
			Data:  entities.PaymentEventData{Reference: "ref-1", Amount: 49700, Status: "success"},
		})

		require.NoError(t, err)
		assert.True(t, applied)
		repo.AssertExpectations(t)
	})

	t.Run("marks the booking failed on charge.failed without an amount", func(t *testing.T) {
		repo := new(MockBookingRepository)
		service := newBookingService(repo, new(MockTourRepository), new(MockUserRepository), new(MockPaymentProvider))

		repo.On("Transition", mock.Anything, "ref-1", entities.BookingStatusFailed, (*float64)(nil)).
			Return(true, nil)

		applied, err := service.ReconcilePayment(context.Background(), &entities.PaymentEvent{
			Event: entities.PaymentEventChargeFailed,
			Data:  entities.PaymentEventData{Reference: "ref-1", Status: "failed"},
		})

		require.NoError(t, err)
		assert.True(t, applied)
	})

	t.Run("redundant delivery is a no-op", func(t *testing.T) {
		repo := new(MockBookingRepository)
		service := newBookingService(repo, new(MockTourRepository), new(MockUserRepository), new(MockPaymentProvider))

		repo.On("Transition", mock.Anything, "ref-1", entities.BookingStatusPaid, mock.Anything).
			Return(false, nil)

		applied, err := service.ReconcilePayment(context.Background(), &entities.PaymentEvent{
			Event: entities.PaymentEventChargeSuccess,
			Data:  entities.PaymentEventData{Reference: "ref-1", Amount: 49700},
		})

		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("ignores unhandled event types", func(t *testing.T) {
		repo := new(MockBookingRepository)
		service := newBookingService(repo, new(MockTourRepository), new(MockUserRepository), new(MockPaymentProvider))

		applied, err := service.ReconcilePayment(context.Background(), &entities.PaymentEvent{
			Event: "transfer.success",
			Data:  entities.PaymentEventData{Reference: "ref-1"},
		})

		require.NoError(t, err)
		assert.False(t, applied)
		repo.AssertNotCalled(t, "Transition")
	})
}

func TestBookingService_VerifyCheckout(t *testing.T) {
	owner := &entities.User{ID: "user-1", Role: entities.RoleUser}

	t.Run("applies the provider result for the booking's owner", func(t *testing.T) {
		repo := new(MockBookingRepository)
		provider := new(MockPaymentProvider)
		service := newBookingService(repo, new(MockTourRepository), new(MockUserRepository), provider)

		pending := &entities.Booking{ID: "booking-1", UserID: "user-1", Reference: "ref-1", Status: entities.BookingStatusPending}
		paid := &entities.Booking{ID: "booking-1", UserID: "user-1", Reference: "ref-1", Status: entities.BookingStatusPaid}

		repo.On("GetByReference", mock.Anything, "ref-1").Return(pending, nil).Once()
		provider.On("VerifyTransaction", mock.Anything, "ref-1").
			Return(&providers.VerifiedTransaction{Reference: "ref-1", Status: "success", Amount: 49700}, nil)
		repo.On("Transition", mock.Anything, "ref-1", entities.BookingStatusPaid, mock.MatchedBy(func(amount *float64) bool {
			return amount != nil && *amount == 497
		})).Return(true, nil)
		repo.On("GetByReference", mock.Anything, "ref-1").Return(paid, nil)

		got, err := service.VerifyCheckout(context.Background(), "ref-1", owner)

		require.NoError(t, err)
		assert.Equal(t, entities.BookingStatusPaid, got.Status)
		repo.AssertExpectations(t)
		provider.AssertExpectations(t)
	})

	t.Run("another user cannot verify the reference", func(t *testing.T) {
		repo := new(MockBookingRepository)
		provider := new(MockPaymentProvider)
		service := newBookingService(repo, new(MockTourRepository), new(MockUserRepository), provider)

		repo.On("GetByReference", mock.Anything, "ref-1").
			Return(&entities.Booking{ID: "booking-1", UserID: "user-1", Reference: "ref-1", Status: entities.BookingStatusPending}, nil)

		_, err := service.VerifyCheckout(context.Background(), "ref-1", &entities.User{ID: "user-2", Role: entities.RoleUser})

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeForbidden, apperrors.TypeOf(err))
		provider.AssertNotCalled(t, "VerifyTransaction")
		repo.AssertNotCalled(t, "Transition")
	})

	t.Run("admin can verify any booking", func(t *testing.T) {
		repo := new(MockBookingRepository)
		provider := new(MockPaymentProvider)
		service := newBookingService(repo, new(MockTourRepository), new(MockUserRepository), provider)

		repo.On("GetByReference", mock.Anything, "ref-1").
			Return(&entities.Booking{ID: "booking-1", UserID: "user-1", Reference: "ref-1", Status: entities.BookingStatusPaid}, nil)

		got, err := service.VerifyCheckout(context.Background(), "ref-1", &entities.User{ID: "admin-1", Role: entities.RoleAdmin})

		require.NoError(t, err)
		assert.Equal(t, entities.BookingStatusPaid, got.Status)
	})

	t.Run("settled bookings return without a provider round trip", func(t *testing.T) {
		repo := new(MockBookingRepository)
		provider := new(MockPaymentProvider)
		service := newBookingService(repo, new(MockTourRepository), new(MockUserRepository), provider)

		repo.On("GetByReference", mock.Anything, "ref-1").
			Return(&entities.Booking{ID: "booking-1", UserID: "user-1", Reference: "ref-1", Status: entities.BookingStatusFailed}, nil)

		got, err := service.VerifyCheckout(context.Background(), "ref-1", owner)

		require.NoError(t, err)
		assert.Equal(t, entities.BookingStatusFailed, got.Status)
		provider.AssertNotCalled(t, "VerifyTransaction")
	})
}

func TestBookingService_GetBooking(t *testing.T) {
	booking := &entities.Booking{ID: "booking-1", UserID: "user-1"}

	t.Run("owner can read their booking", func(t *testing.T) {
		repo := new(MockBookingRepository)
		service := newBookingService(repo, new(MockTourRepository), new(MockUserRepository), new(MockPaymentProvider))

		repo.On("GetByID", mock.Anything, "booking-1").Return(booking, nil)

		got, err := service.GetBooking(context.Background(), "booking-1", &entities.User{ID: "user-1", Role: entities.RoleUser})

		require.NoError(t, err)
		assert.Equal(t, booking, got)
	})

	t.Run("another user is forbidden", func(t *testing.T) {
		repo := new(MockBookingRepository)
		service := newBookingService(repo, new(MockTourRepository), new(MockUserRepository), new(MockPaymentProvider))

		repo.On("GetByID", mock.Anything, "booking-1").Return(booking, nil)

		_, err := service.GetBooking(context.Background(), "booking-1", &entities.User{ID: "user-2", Role: entities.RoleUser})

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeForbidden, apperrors.TypeOf(err))
	})

	t.Run("admin can read any booking", func(t *testing.T) {
		repo := new(MockBookingRepository)
		service := newBookingService(repo, new(MockTourRepository), new(MockUserRepository), new(MockPaymentProvider))

		repo.On("GetByID", mock.Anything, "booking-1").Return(booking, nil)

		_, err := service.GetBooking(context.Background(), "booking-1", &entities.User{ID: "admin-1", Role: entities.RoleAdmin})

		require.NoError(t, err)
	})
}
