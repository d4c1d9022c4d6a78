package repositories

import (
	"context"

	"github.com/tourbase/backend/internal/domain/entities"
)

// TourFilter narrows, sorts and paginates tour listings
type TourFilter struct {
	Difficulty  entities.Difficulty
	PriceGte    *float64
	PriceLte    *float64
	DurationGte *int
	DurationLte *int
	// Sort is a comma-separated field list; a leading '-' means descending.
	Sort   string
	Limit  int
	Offset int
}

// GeoQuery is a point plus radius in the unit's own measure
type GeoQuery struct {
	Latitude  float64
	Longitude float64
	// Radius only applies to Within queries.
	Radius float64
	// Miles selects miles instead of kilometers.
	Miles bool
}

// TourRepository defines the interface for catalog persistence
type TourRepository interface {
	Create(ctx context.Context, tour *entities.Tour) error
	GetByID(ctx context.Context, id string) (*entities.Tour, error)
	List(ctx context.Context, filter TourFilter) ([]*entities.Tour, error)
	Update(ctx context.Context, tour *entities.Tour) error
	Delete(ctx context.Context, id string) error

	// UpdateRatingStats writes the recomputed review aggregate onto the tour.
	// Only the review aggregation routine may call this.
	UpdateRatingStats(ctx context.Context, tourID string, stats entities.RatingStats) error

	// Within returns tours whose start point lies inside the query radius.
	Within(ctx context.Context, q GeoQuery) ([]*entities.Tour, error)
	// Distances returns the distance from the query point to every tour.
	Distances(ctx context.Context, q GeoQuery) ([]*entities.TourDistance, error)

	Stats(ctx context.Context) ([]*entities.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]*entities.MonthlyPlanEntry, error)
}
