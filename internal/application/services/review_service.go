package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/repositories"
	"github.com/tourbase/backend/internal/infrastructure/observability"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

// ReviewInput carries the writable fields of a review
type ReviewInput struct {
	Review string
	Rating float64
}

// ReviewService handles reviews and keeps the tour rating aggregate current
type ReviewService struct {
	repo     repositories.ReviewRepository
	tourRepo repositories.TourRepository
}

// NewReviewService creates a new review service
func NewReviewService(repo repositories.ReviewRepository, tourRepo repositories.TourRepository) *ReviewService {
	return &ReviewService{
		repo:     repo,
		tourRepo: tourRepo,
	}
}

// CreateReview creates a review for a tour by the given user
func (s *ReviewService) CreateReview(ctx context.Context, tourID string, user *entities.User, input ReviewInput) (*entities.Review, error) {
	if err := validateReviewInput(input); err != nil {
		return nil, err
	}

	// Confirm the tour exists before accepting the review.
	if _, err := s.tourRepo.GetByID(ctx, tourID); err != nil {
		return nil, err
	}

	now := time.Now()
	review := &entities.Review{
		ID:        uuid.New().String(),
		Review:    input.Review,
		Rating:    input.Rating,
		TourID:    tourID,
		UserID:    user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, err
	}

	s.recomputeRating(ctx, tourID)
	return review, nil
}

// GetReview returns a single review
func (s *ReviewService) GetReview(ctx context.Context, id string) (*entities.Review, error) {
	return s.repo.GetByID(ctx, id)
}

// ListReviews returns reviews matching the filter
func (s *ReviewService) ListReviews(ctx context.Context, filter repositories.ReviewFilter) ([]*entities.Review, error) {
	return s.repo.List(ctx, filter)
}

// UpdateReview updates a review. Only the author or an admin may update it.
func (s *ReviewService) UpdateReview(ctx context.Context, id string, caller *entities.User, input ReviewInput) (*entities.Review, error) {
	if err := validateReviewInput(input); err != nil {
		return nil, err
	}

	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.UserID != caller.ID && caller.Role != entities.RoleAdmin {
		return nil, apperrors.NewForbiddenError("you can only update your own reviews")
	}

	review.Review = input.Review
	review.Rating = input.Rating
	review.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, review); err != nil {
		return nil, err
	}

	s.recomputeRating(ctx, review.TourID)
	return review, nil
}

// DeleteReview deletes a review. Only the author or an admin may delete it.
func (s *ReviewService) DeleteReview(ctx context.Context, id string, caller *entities.User) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if review.UserID != caller.ID && caller.Role != entities.RoleAdmin {
		return apperrors.NewForbiddenError("you can only delete your own reviews")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.recomputeRating(ctx, review.TourID)
	return nil
}

// recomputeRating re-aggregates the tour's reviews and writes the result
// back. The review write has already committed, so a failure here leaves the
// aggregate stale rather than failing the request; the next write heals it.
func (s *ReviewService) recomputeRating(ctx context.Context, tourID string) {
	stats, ok, err := s.repo.AggregateByTour(ctx, tourID)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).
			Str("tour_id", tourID).
			Msg("failed to aggregate reviews")
		return
	}
	if !ok {
		stats = entities.RatingStats{Quantity: 0, Average: entities.DefaultRatingsAverage}
	}

	if err := s.tourRepo.UpdateRatingStats(ctx, tourID, stats); err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).
			Str("tour_id", tourID).
			Msg("failed to update tour rating stats")
	}
}

func validateReviewInput(input ReviewInput) error {
	if input.Review == "" {
		return apperrors.NewValidationError("review text is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return apperrors.NewValidationError("rating must be between 1 and 5")
	}
	return nil
}
