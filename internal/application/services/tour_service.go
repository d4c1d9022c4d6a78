package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/repositories"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

// TourService handles the tour catalog
type TourService struct {
	repo repositories.TourRepository
}

// NewTourService creates a new tour service
func NewTourService(repo repositories.TourRepository) *TourService {
	return &TourService{repo: repo}
}

// CreateTour validates and creates a tour
func (s *TourService) CreateTour(ctx context.Context, tour *entities.Tour) error {
	if err := validateTour(tour); err != nil {
		return err
	}

	now := time.Now()
	if tour.ID == "" {
		tour.ID = uuid.New().String()
	}
	if tour.Slug == "" {
		tour.Slug = slugify(tour.Name)
	}
	if tour.RatingsAverage == 0 {
		tour.RatingsAverage = entities.DefaultRatingsAverage
	}
	tour.CreatedAt = now
	tour.UpdatedAt = now

	return s.repo.Create(ctx, tour)
}

// GetTour returns a single tour
func (s *TourService) GetTour(ctx context.Context, id string) (*entities.Tour, error) {
	return s.repo.GetByID(ctx, id)
}

// ListTours returns tours matching the filter
func (s *TourService) ListTours(ctx context.Context, filter repositories.TourFilter) ([]*entities.Tour, error) {
	if filter.Difficulty != "" && !validDifficulty(filter.Difficulty) {
		return nil, apperrors.NewValidationError("difficulty must be easy, medium or difficult")
	}
	return s.repo.List(ctx, filter)
}

// UpdateTour validates and updates a tour
func (s *TourService) UpdateTour(ctx context.Context, tour *entities.Tour) error {
	if err := validateTour(tour); err != nil {
		return err
	}
	tour.UpdatedAt = time.Now()
	return s.repo.Update(ctx, tour)
}

// DeleteTour removes a tour
func (s *TourService) DeleteTour(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ToursWithin returns tours whose start point lies inside the radius
func (s *TourService) ToursWithin(ctx context.Context, q repositories.GeoQuery) ([]*entities.Tour, error) {
	if err := validateGeoQuery(q, true); err != nil {
		return nil, err
	}
	return s.repo.Within(ctx, q)
}

// TourDistances returns the distance from the query point to every tour
func (s *TourService) TourDistances(ctx context.Context, q repositories.GeoQuery) ([]*entities.TourDistance, error) {
	if err := validateGeoQuery(q, false); err != nil {
		return nil, err
	}
	return s.repo.Distances(ctx, q)
}

// TourStats returns per-difficulty aggregates of the catalog
func (s *TourService) TourStats(ctx context.Context) ([]*entities.TourStats, error) {
	return s.repo.Stats(ctx)
}

// MonthlyPlan counts tour starts per month of the given year
func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]*entities.MonthlyPlanEntry, error) {
	if year < 1900 || year > 2200 {
		return nil, apperrors.NewValidationError("year is out of range")
	}
	return s.repo.MonthlyPlan(ctx, year)
}

func validateTour(tour *entities.Tour) error {
	if tour.Name == "" {
		return apperrors.NewValidationError("tour name is required")
	}
	if tour.Duration <= 0 {
		return apperrors.NewValidationError("duration must be positive")
	}
	if tour.MaxGroupSize <= 0 {
		return apperrors.NewValidationError("max group size must be positive")
	}
	if !validDifficulty(tour.Difficulty) {
		return apperrors.NewValidationError("difficulty must be easy, medium or difficult")
	}
	if tour.Price <= 0 {
		return apperrors.NewValidationError("price must be positive")
	}
	if tour.PriceDiscount != nil && *tour.PriceDiscount >= tour.Price {
		return apperrors.NewValidationError("discount price must be below the regular price")
	}
	return nil
}

func validDifficulty(d entities.Difficulty) bool {
	switch d {
	case entities.DifficultyEasy, entities.DifficultyMedium, entities.DifficultyDifficult:
		return true
	}
	return false
}

func validateGeoQuery(q repositories.GeoQuery, needRadius bool) error {
	if q.Latitude < -90 || q.Latitude > 90 {
		return apperrors.NewValidationError("latitude must be between -90 and 90")
	}
	if q.Longitude < -180 || q.Longitude > 180 {
		return apperrors.NewValidationError("longitude must be between -180 and 180")
	}
	if needRadius && q.Radius <= 0 {
		return apperrors.NewValidationError("distance must be positive")
	}
	return nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		}
		return -1
	}, slug)
	return strings.Trim(slug, "-")
}
