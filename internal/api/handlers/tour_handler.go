package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tourbase/backend/internal/application/services"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/repositories"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

// TourHandler handles catalog requests
type TourHandler struct {
	tourService *services.TourService
}

// NewTourHandler creates a new tour handler
func NewTourHandler(tourService *services.TourService) *TourHandler {
	return &TourHandler{tourService: tourService}
}

// ListTours handles GET /api/v1/tours
func (h *TourHandler) ListTours(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTourFilter(r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	tours, err := h.tourService.ListTours(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"tours": tours,
		"count": len(tours),
	})
}

// ListTopCheap handles GET /api/v1/tours/top-5-cheap, a fixed alias of the
// list endpoint
func (h *TourHandler) ListTopCheap(w http.ResponseWriter, r *http.Request) {
	tours, err := h.tourService.ListTours(r.Context(), repositories.TourFilter{
		Sort:  "-ratings_average,price",
		Limit: 5,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"tours": tours,
		"count": len(tours),
	})
}

// GetTour handles GET /api/v1/tours/{id}
func (h *TourHandler) GetTour(w http.ResponseWriter, r *http.Request) {
	tour, err := h.tourService.GetTour(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tour)
}

// CreateTour handles POST /api/v1/tours (admin, lead-guide)
func (h *TourHandler) CreateTour(w http.ResponseWriter, r *http.Request) {
	var tour entities.Tour
	if err := decodeJSON(r, &tour); err != nil {
		respondWithAppError(w, err)
		return
	}

	if err := h.tourService.CreateTour(r.Context(), &tour); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, tour)
}

// UpdateTour handles PATCH /api/v1/tours/{id} (admin, lead-guide)
func (h *TourHandler) UpdateTour(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	current, err := h.tourService.GetTour(r.Context(), id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	// Decode over the current state so omitted fields keep their values.
	tour := *current
	if err := decodeJSON(r, &tour); err != nil {
		respondWithAppError(w, err)
		return
	}
	tour.ID = id

	if err := h.tourService.UpdateTour(r.Context(), &tour); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tour)
}

// DeleteTour handles DELETE /api/v1/tours/{id} (admin, lead-guide)
func (h *TourHandler) DeleteTour(w http.ResponseWriter, r *http.Request) {
	if err := h.tourService.DeleteTour(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTourStats handles GET /api/v1/tours/tour-stats
func (h *TourHandler) GetTourStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tourService.TourStats(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// GetMonthlyPlan handles GET /api/v1/tours/monthly-plan/{year}
func (h *TourHandler) GetMonthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "year must be a number")
		return
	}

	plan, planErr := h.tourService.MonthlyPlan(r.Context(), year)
	if planErr != nil {
		respondWithAppError(w, planErr)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"plan": plan})
}

// GetToursWithin handles
// GET /api/v1/tours/within/{distance}/center/{latlng}/unit/{unit}
func (h *TourHandler) GetToursWithin(w http.ResponseWriter, r *http.Request) {
	q, err := parseGeoQuery(r, true)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	tours, err := h.tourService.ToursWithin(r.Context(), q)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"tours": tours,
		"count": len(tours),
	})
}

// GetDistances handles GET /api/v1/tours/distances/{latlng}/unit/{unit}
func (h *TourHandler) GetDistances(w http.ResponseWriter, r *http.Request) {
	q, err := parseGeoQuery(r, false)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	distances, err := h.tourService.TourDistances(r.Context(), q)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"distances": distances,
	})
}

func parseTourFilter(r *http.Request) (repositories.TourFilter, error) {
	query := r.URL.Query()
	filter := repositories.TourFilter{
		Difficulty: entities.Difficulty(query.Get("difficulty")),
		Sort:       query.Get("sort"),
		Limit:      parseIntOrDefault(query.Get("limit"), 100),
		Offset:     parseIntOrDefault(query.Get("offset"), 0),
	}

	for param, dst := range map[string]**float64{
		"price[gte]": &filter.PriceGte,
		"price[lte]": &filter.PriceLte,
	} {
		if raw := query.Get(param); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return filter, apperrors.NewValidationError(param + " must be a number")
			}
			*dst = &v
		}
	}

	for param, dst := range map[string]**int{
		"duration[gte]": &filter.DurationGte,
		"duration[lte]": &filter.DurationLte,
	} {
		if raw := query.Get(param); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return filter, apperrors.NewValidationError(param + " must be a number")
			}
			*dst = &v
		}
	}

	return filter, nil
}

// parseGeoQuery reads the {latlng} and {unit} path segments, plus {distance}
// for radius queries. latlng is "lat,lng".
func parseGeoQuery(r *http.Request, withDistance bool) (repositories.GeoQuery, error) {
	var q repositories.GeoQuery

	latlng := r.PathValue("latlng")
	parts := strings.Split(latlng, ",")
	if len(parts) != 2 {
		return q, apperrors.NewValidationError("please provide latitude and longitude in the format lat,lng")
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lngErr != nil {
		return q, apperrors.NewValidationError("please provide latitude and longitude in the format lat,lng")
	}
	q.Latitude = lat
	q.Longitude = lng

	switch unit := r.PathValue("unit"); unit {
	case "km":
	case "mi":
		q.Miles = true
	default:
		return q, apperrors.NewValidationError("unit must be km or mi")
	}

	if withDistance {
		distance, err := strconv.ParseFloat(r.PathValue("distance"), 64)
		if err != nil || distance <= 0 {
			return q, apperrors.NewValidationError("distance must be a positive number")
		}
		q.Radius = distance
	}

	return q, nil
}
