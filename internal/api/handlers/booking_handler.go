package handlers

import (
	"net/http"

	"github.com/tourbase/backend/internal/api/middleware"
	"github.com/tourbase/backend/internal/application/services"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/repositories"
)

// BookingHandler handles checkout and booking requests
type BookingHandler struct {
	bookingService *services.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateCheckoutSession handles POST /api/v1/bookings/checkout-session/{tourId}
func (h *BookingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	session, err := h.bookingService.InitiateCheckout(r.Context(), r.PathValue("tourId"), user)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, session)
}

// VerifyCheckout handles GET /api/v1/bookings/verify/{reference}. It covers
// clients returning from the payment page before the webhook lands.
func (h *BookingHandler) VerifyCheckout(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	booking, err := h.bookingService.VerifyCheckout(r.Context(), r.PathValue("reference"), user)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, booking)
}

// GetMyBookings handles GET /api/v1/bookings/my-bookings
func (h *BookingHandler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	bookings, err := h.bookingService.ListMyBookings(r.Context(), user.ID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// GetBooking handles GET /api/v1/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	booking, err := h.bookingService.GetBooking(r.Context(), r.PathValue("id"), user)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, booking)
}

// ListBookings handles GET /api/v1/bookings (admin)
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repositories.BookingFilter{
		TourID: query.Get("tour"),
		UserID: query.Get("user"),
		Status: entities.BookingStatus(query.Get("status")),
		Limit:  parseIntOrDefault(query.Get("limit"), 100),
	}

	bookings, err := h.bookingService.ListBookings(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

type bookingUpdateRequest struct {
	Price  *float64                `json:"price"`
	Status *entities.BookingStatus `json:"status"`
}

// UpdateBooking handles PATCH /api/v1/bookings/{id} (admin)
func (h *BookingHandler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	booking, err := h.bookingService.UpdateBooking(r.Context(), r.PathValue("id"), repositories.BookingUpdate{
		Price:  req.Price,
		Status: req.Status,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, booking)
}

// DeleteBooking handles DELETE /api/v1/bookings/{id} (admin)
func (h *BookingHandler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.bookingService.DeleteBooking(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
