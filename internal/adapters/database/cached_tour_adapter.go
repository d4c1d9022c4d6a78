package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/providers"
	"github.com/tourbase/backend/internal/domain/repositories"
	"github.com/tourbase/backend/internal/infrastructure/observability"
)

// CachedTourAdapter wraps a TourRepository with read-through caching
type CachedTourAdapter struct {
	adapter repositories.TourRepository
	cache   providers.CacheProvider
}

// NewCachedTourAdapter creates a new cached tour adapter
func NewCachedTourAdapter(adapter repositories.TourRepository, cache providers.CacheProvider) repositories.TourRepository {
	return &CachedTourAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

// Cache TTLs (in seconds)
const (
	tourByIDTTL    = 300 // 5 minutes for single tour
	tourListTTL    = 180 // 3 minutes for lists
	tourGeoTTL     = 120 // 2 minutes for geo queries
	tourReportsTTL = 600 // 10 minutes for stats and monthly plan
)

// Cache key generators
func tourCacheKey(id string) string {
	return fmt.Sprintf("tour:%s", id)
}

func tourListCacheKey(filter repositories.TourFilter) string {
	filterJSON, _ := json.Marshal(filter)
	return fmt.Sprintf("tours:list:%s", filterJSON)
}

func tourGeoCacheKey(kind string, q repositories.GeoQuery) string {
	return fmt.Sprintf("tours:geo:%s:%f:%f:%f:%t", kind, q.Latitude, q.Longitude, q.Radius, q.Miles)
}

// GetByID retrieves a tour by ID with caching
func (a *CachedTourAdapter) GetByID(ctx context.Context, id string) (*entities.Tour, error) {
	cacheKey := tourCacheKey(id)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var tour entities.Tour
		if err := json.Unmarshal(cached, &tour); err == nil {
			return &tour, nil
		}
		observability.GetLogger().Warn().Str("key", cacheKey).Msg("failed to unmarshal cached tour")
	}

	tour, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.setAsync(cacheKey, tour, tourByIDTTL)
	return tour, nil
}

// List retrieves tours with caching
func (a *CachedTourAdapter) List(ctx context.Context, filter repositories.TourFilter) ([]*entities.Tour, error) {
	cacheKey := tourListCacheKey(filter)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var tours []*entities.Tour
		if err := json.Unmarshal(cached, &tours); err == nil {
			return tours, nil
		}
		observability.GetLogger().Warn().Str("key", cacheKey).Msg("failed to unmarshal cached tour list")
	}

	tours, err := a.adapter.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	a.setAsync(cacheKey, tours, tourListTTL)
	return tours, nil
}

// Within returns tours inside the query radius, with caching
func (a *CachedTourAdapter) Within(ctx context.Context, q repositories.GeoQuery) ([]*entities.Tour, error) {
	cacheKey := tourGeoCacheKey("within", q)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var tours []*entities.Tour
		if err := json.Unmarshal(cached, &tours); err == nil {
			return tours, nil
		}
	}

	tours, err := a.adapter.Within(ctx, q)
	if err != nil {
		return nil, err
	}

	a.setAsync(cacheKey, tours, tourGeoTTL)
	return tours, nil
}

// Distances returns per-tour distances from the query point, with caching
func (a *CachedTourAdapter) Distances(ctx context.Context, q repositories.GeoQuery) ([]*entities.TourDistance, error) {
	cacheKey := tourGeoCacheKey("distances", q)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var distances []*entities.TourDistance
		if err := json.Unmarshal(cached, &distances); err == nil {
			return distances, nil
		}
	}

	distances, err := a.adapter.Distances(ctx, q)
	if err != nil {
		return nil, err
	}

	a.setAsync(cacheKey, distances, tourGeoTTL)
	return distances, nil
}

// Stats returns per-difficulty aggregates with caching
func (a *CachedTourAdapter) Stats(ctx context.Context) ([]*entities.TourStats, error) {
	cacheKey := "tours:stats"

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var stats []*entities.TourStats
		if err := json.Unmarshal(cached, &stats); err == nil {
			return stats, nil
		}
	}

	stats, err := a.adapter.Stats(ctx)
	if err != nil {
		return nil, err
	}

	a.setAsync(cacheKey, stats, tourReportsTTL)
	return stats, nil
}

// MonthlyPlan returns the per-month start schedule with caching
func (a *CachedTourAdapter) MonthlyPlan(ctx context.Context, year int) ([]*entities.MonthlyPlanEntry, error) {
	cacheKey := fmt.Sprintf("tours:monthly-plan:%d", year)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var plan []*entities.MonthlyPlanEntry
		if err := json.Unmarshal(cached, &plan); err == nil {
			return plan, nil
		}
	}

	plan, err := a.adapter.MonthlyPlan(ctx, year)
	if err != nil {
		return nil, err
	}

	a.setAsync(cacheKey, plan, tourReportsTTL)
	return plan, nil
}

// Create creates a tour and invalidates list caches
func (a *CachedTourAdapter) Create(ctx context.Context, tour *entities.Tour) error {
	if err := a.adapter.Create(ctx, tour); err != nil {
		return err
	}
	a.invalidateLists()
	return nil
}

// Update updates a tour and invalidates its caches
func (a *CachedTourAdapter) Update(ctx context.Context, tour *entities.Tour) error {
	if err := a.adapter.Update(ctx, tour); err != nil {
		return err
	}
	a.invalidateTour(tour.ID)
	return nil
}

// Delete deletes a tour and invalidates its caches
func (a *CachedTourAdapter) Delete(ctx context.Context, id string) error {
	if err := a.adapter.Delete(ctx, id); err != nil {
		return err
	}
	a.invalidateTour(id)
	return nil
}

// UpdateRatingStats writes the review aggregate and invalidates the tour's
// caches so readers see the fresh rating
func (a *CachedTourAdapter) UpdateRatingStats(ctx context.Context, tourID string, stats entities.RatingStats) error {
	if err := a.adapter.UpdateRatingStats(ctx, tourID, stats); err != nil {
		return err
	}
	a.invalidateTour(tourID)
	return nil
}

// setAsync updates the cache off the request path so a slow cache never
// delays a response
func (a *CachedTourAdapter) setAsync(key string, value interface{}, ttl int) {
	go func() {
		bgCtx := context.Background()
		data, err := json.Marshal(value)
		if err != nil {
			return
		}
		if err := a.cache.Set(bgCtx, key, data, ttl); err != nil {
			observability.GetLogger().Warn().Err(err).Str("key", key).Msg("failed to cache tours")
		}
	}()
}

func (a *CachedTourAdapter) invalidateTour(id string) {
	go func() {
		bgCtx := context.Background()
		if err := a.cache.Delete(bgCtx, tourCacheKey(id)); err != nil {
			observability.GetLogger().Warn().Err(err).Str("tour_id", id).Msg("failed to invalidate tour cache")
		}
		if err := a.cache.DeleteByPrefix(bgCtx, "tours:"); err != nil {
			observability.GetLogger().Warn().Err(err).Msg("failed to invalidate tours caches")
		}
	}()
}

func (a *CachedTourAdapter) invalidateLists() {
	go func() {
		bgCtx := context.Background()
		if err := a.cache.DeleteByPrefix(bgCtx, "tours:"); err != nil {
			observability.GetLogger().Warn().Err(err).Msg("failed to invalidate tours caches")
		}
	}()
}
