package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/providers"
	"github.com/tourbase/backend/internal/domain/repositories"
)

// Mocks

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, hashedToken string) (*entities.User, error) {
	args := m.Called(ctx, hashedToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, filter repositories.UserFilter) ([]*entities.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, update repositories.UserUpdate) (*entities.User, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id string, hashedToken *string, expires *time.Time) error {
	args := m.Called(ctx, id, hashedToken, expires)
	return args.Error(0)
}

func (m *MockUserRepository) Deactivate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockTourRepository struct {
	mock.Mock
}

func (m *MockTourRepository) Create(ctx context.Context, tour *entities.Tour) error {
	args := m.Called(ctx, tour)
	return args.Error(0)
}

func (m *MockTourRepository) GetByID(ctx context.Context, id string) (*entities.Tour, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Tour), args.Error(1)
}

func (m *MockTourRepository) List(ctx context.Context, filter repositories.TourFilter) ([]*entities.Tour, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Tour), args.Error(1)
}

func (m *MockTourRepository) Update(ctx context.Context, tour *entities.Tour) error {
	args := m.Called(ctx, tour)
	return args.Error(0)
}

func (m *MockTourRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTourRepository) UpdateRatingStats(ctx context.Context, tourID string, stats entities.RatingStats) error {
	args := m.Called(ctx, tourID, stats)
	return args.Error(0)
}

func (m *MockTourRepository) Within(ctx context.Context, q repositories.GeoQuery) ([]*entities.Tour, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Tour), args.Error(1)
}

func (m *MockTourRepository) Distances(ctx context.Context, q repositories.GeoQuery) ([]*entities.TourDistance, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TourDistance), args.Error(1)
}

func (m *MockTourRepository) Stats(ctx context.Context) ([]*entities.TourStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TourStats), args.Error(1)
}

func (m *MockTourRepository) MonthlyPlan(ctx context.Context, year int) ([]*entities.MonthlyPlanEntry, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.MonthlyPlanEntry), args.Error(1)
}

type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *entities.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id string) (*entities.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Review), args.Error(1)
}

func (m *MockReviewRepository) List(ctx context.Context, filter repositories.ReviewFilter) ([]*entities.Review, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Review), args.Error(1)
}

func (m *MockReviewRepository) Update(ctx context.Context, review *entities.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReviewRepository) AggregateByTour(ctx context.Context, tourID string) (entities.RatingStats, bool, error) {
	args := m.Called(ctx, tourID)
	return args.Get(0).(entities.RatingStats), args.Bool(1), args.Error(2)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *entities.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByReference(ctx context.Context, reference string) (*entities.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetActiveByTourAndUser(ctx context.Context, tourID, userID string) (*entities.Booking, error) {
	args := m.Called(ctx, tourID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingRepository) List(ctx context.Context, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Booking), args.Error(1)
}

func (m *MockBookingRepository) Update(ctx context.Context, id string, update repositories.BookingUpdate) (*entities.Booking, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingRepository) Transition(ctx context.Context, reference string, to entities.BookingStatus, paidAmount *float64) (bool, error) {
	args := m.Called(ctx, reference, to, paidAmount)
	return args.Bool(0), args.Error(1)
}

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) InitializeTransaction(ctx context.Context, params providers.InitializeParams) (*providers.CheckoutAuthorization, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.CheckoutAuthorization), args.Error(1)
}

func (m *MockPaymentProvider) VerifyTransaction(ctx context.Context, reference string) (*providers.VerifiedTransaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.VerifiedTransaction), args.Error(1)
}

type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) Send(to, subject, body string) error {
	args := m.Called(to, subject, body)
	return args.Error(0)
}
