package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/repositories"
	"github.com/tourbase/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

// ReviewAdapter implements the ReviewRepository interface
type ReviewAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReviewAdapter creates a new review adapter
func NewReviewAdapter(client *postgres.Client) repositories.ReviewRepository {
	return &ReviewAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var reviewColumns = []interface{}{
	"id", "review", "rating", "tour_id", "user_id", "created_at", "updated_at",
}

// Create inserts a review. The (tour_id, user_id) unique index enforces one
// review per user per tour.
func (a *ReviewAdapter) Create(ctx context.Context, review *entities.Review) error {
	record := goqu.Record{
		"id":         review.ID,
		"review":     review.Review,
		"rating":     review.Rating,
		"tour_id":    review.TourID,
		"user_id":    review.UserID,
		"created_at": review.CreatedAt,
		"updated_at": review.UpdatedAt,
	}

	query, args, err := a.db.Insert("reviews").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build review insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("you have already reviewed this tour")
		}
		return apperrors.NewInternalError("failed to create review", err)
	}

	return nil
}

// GetByID retrieves a review by ID
func (a *ReviewAdapter) GetByID(ctx context.Context, id string) (*entities.Review, error) {
	query, args, err := a.db.Select(reviewColumns...).From("reviews").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build review query", err)
	}

	review := &entities.Review{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&review.ID, &review.Review, &review.Rating,
		&review.TourID, &review.UserID,
		&review.CreatedAt, &review.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("review with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get review", err)
	}

	return review, nil
}

// List retrieves reviews matching the filter
func (a *ReviewAdapter) List(ctx context.Context, filter repositories.ReviewFilter) ([]*entities.Review, error) {
	ds := a.db.Select(reviewColumns...).From("reviews")

	if filter.TourID != "" {
		ds = ds.Where(goqu.Ex{"tour_id": filter.TourID})
	}
	if filter.UserID != "" {
		ds = ds.Where(goqu.Ex{"user_id": filter.UserID})
	}

	ds = ds.Order(goqu.I("created_at").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build review list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list reviews", err)
	}
	defer rows.Close()

	var reviews []*entities.Review
	for rows.Next() {
		review := &entities.Review{}
		err := rows.Scan(
			&review.ID, &review.Review, &review.Rating,
			&review.TourID, &review.UserID,
			&review.CreatedAt, &review.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan review", err)
		}
		reviews = append(reviews, review)
	}

	return reviews, nil
}

// Update updates the text and rating of a review
func (a *ReviewAdapter) Update(ctx context.Context, review *entities.Review) error {
	query, args, err := a.db.Update("reviews").Set(goqu.Record{
		"review":     review.Review,
		"rating":     review.Rating,
		"updated_at": time.Now(),
	}).Where(goqu.Ex{"id": review.ID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build review update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update review", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("review with id %s not found", review.ID))
	}

	return nil
}

// Delete removes a review
func (a *ReviewAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("reviews").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build review delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete review", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("review with id %s not found", id))
	}

	return nil
}

// AggregateByTour recomputes count and mean rating over all reviews of the
// tour. This is a full re-aggregation per write, not an incremental update.
func (a *ReviewAdapter) AggregateByTour(ctx context.Context, tourID string) (entities.RatingStats, bool, error) {
	query := `SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews WHERE tour_id = $1`

	var stats entities.RatingStats
	err := a.client.DB().QueryRowContext(ctx, query, tourID).Scan(&stats.Quantity, &stats.Average)
	if err != nil {
		return entities.RatingStats{}, false, apperrors.NewInternalError("failed to aggregate reviews", err)
	}

	return stats, stats.Quantity > 0, nil
}
