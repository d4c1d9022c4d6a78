package handlers

import (
	"net/http"

	"github.com/tourbase/backend/internal/api/middleware"
	"github.com/tourbase/backend/internal/application/services"
	"github.com/tourbase/backend/internal/domain/repositories"
)

// ReviewHandler handles review requests
type ReviewHandler struct {
	reviewService *services.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

type reviewRequest struct {
	Review string  `json:"review"`
	Rating float64 `json:"rating"`
}

// CreateReview handles POST /api/v1/tours/{tourId}/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	tourID := r.PathValue("tourId")

	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	review, err := h.reviewService.CreateReview(r.Context(), tourID, user, services.ReviewInput{
		Review: req.Review,
		Rating: req.Rating,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, review)
}

// ListTourReviews handles GET /api/v1/tours/{tourId}/reviews
func (h *ReviewHandler) ListTourReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewService.ListReviews(r.Context(), repositories.ReviewFilter{
		TourID: r.PathValue("tourId"),
		Limit:  parseIntOrDefault(r.URL.Query().Get("limit"), 100),
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"reviews": reviews,
		"count":   len(reviews),
	})
}

// GetReview handles GET /api/v1/reviews/{id}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.reviewService.GetReview(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, review)
}

// UpdateReview handles PATCH /api/v1/reviews/{id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	review, err := h.reviewService.UpdateReview(r.Context(), r.PathValue("id"), user, services.ReviewInput{
		Review: req.Review,
		Rating: req.Rating,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	if err := h.reviewService.DeleteReview(r.Context(), r.PathValue("id"), user); err != nil {
		respondWithAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
