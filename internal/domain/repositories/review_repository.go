package repositories

import (
	"context"

	"github.com/tourbase/backend/internal/domain/entities"
)

// ReviewFilter narrows review listings
type ReviewFilter struct {
	TourID string
	UserID string
	Limit  int
	Offset int
}

// ReviewRepository defines the interface for review persistence
type ReviewRepository interface {
	Create(ctx context.Context, review *entities.Review) error
	GetByID(ctx context.Context, id string) (*entities.Review, error)
	List(ctx context.Context, filter ReviewFilter) ([]*entities.Review, error)
	Update(ctx context.Context, review *entities.Review) error
	Delete(ctx context.Context, id string) error

	// AggregateByTour recomputes count and mean rating over all reviews of
	// the tour. ok is false when the tour has no reviews.
	AggregateByTour(ctx context.Context, tourID string) (stats entities.RatingStats, ok bool, err error)
}
