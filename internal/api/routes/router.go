package routes

import (
	"net/http"

	"github.com/tourbase/backend/internal/api/handlers"
	"github.com/tourbase/backend/internal/api/middleware"
	"github.com/tourbase/backend/internal/application/services"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	authHandler    *handlers.AuthHandler
	userHandler    *handlers.UserHandler
	tourHandler    *handlers.TourHandler
	reviewHandler  *handlers.ReviewHandler
	bookingHandler *handlers.BookingHandler

	paystackWebhookHandler *handlers.PaystackWebhookHandler

	authService *services.AuthService
	metrics     *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	tourHandler *handlers.TourHandler,
	reviewHandler *handlers.ReviewHandler,
	bookingHandler *handlers.BookingHandler,
	paystackWebhookHandler *handlers.PaystackWebhookHandler,
	authService *services.AuthService,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                    http.NewServeMux(),
		authHandler:            authHandler,
		userHandler:            userHandler,
		tourHandler:            tourHandler,
		reviewHandler:          reviewHandler,
		bookingHandler:         bookingHandler,
		paystackWebhookHandler: paystackWebhookHandler,
		authService:            authService,
		metrics:                metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	protect := middleware.Protect(r.authService)
	adminOnly := middleware.RestrictTo(entities.RoleAdmin)
	tourManagers := middleware.RestrictTo(entities.RoleAdmin, entities.RoleLeadGuide)
	staff := middleware.RestrictTo(entities.RoleAdmin, entities.RoleLeadGuide, entities.RoleGuide)

	protected := func(h http.HandlerFunc) http.Handler {
		return protect(h)
	}
	restricted := func(h http.HandlerFunc, restrict func(http.Handler) http.Handler) http.Handler {
		return protect(restrict(h))
	}

	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Auth endpoints
	r.mux.HandleFunc("POST /api/v1/users/signup", r.authHandler.SignUp)
	r.mux.HandleFunc("POST /api/v1/users/login", r.authHandler.Login)
	r.mux.HandleFunc("GET /api/v1/users/logout", r.authHandler.Logout)
	r.mux.HandleFunc("POST /api/v1/users/forgot-password", r.authHandler.ForgotPassword)
	r.mux.HandleFunc("PATCH /api/v1/users/reset-password/{token}", r.authHandler.ResetPassword)
	r.mux.Handle("PATCH /api/v1/users/update-password", protected(r.authHandler.UpdatePassword))

	// Account endpoints
	r.mux.Handle("GET /api/v1/users/me", protected(r.userHandler.GetMe))
	r.mux.Handle("PATCH /api/v1/users/me", protected(r.userHandler.UpdateMe))
	r.mux.Handle("DELETE /api/v1/users/me", protected(r.userHandler.DeleteMe))

	// User administration endpoints
	r.mux.Handle("GET /api/v1/users", restricted(r.userHandler.ListUsers, adminOnly))
	r.mux.Handle("GET /api/v1/users/{id}", restricted(r.userHandler.GetUser, adminOnly))
	r.mux.Handle("PATCH /api/v1/users/{id}", restricted(r.userHandler.UpdateUser, adminOnly))
	r.mux.Handle("DELETE /api/v1/users/{id}", restricted(r.userHandler.DeleteUser, adminOnly))

	// Tour catalog endpoints
	r.mux.HandleFunc("GET /api/v1/tours", r.tourHandler.ListTours)
	r.mux.HandleFunc("GET /api/v1/tours/top-5-cheap", r.tourHandler.ListTopCheap)
	r.mux.HandleFunc("GET /api/v1/tours/tour-stats", r.tourHandler.GetTourStats)
	r.mux.Handle("GET /api/v1/tours/monthly-plan/{year}", restricted(r.tourHandler.GetMonthlyPlan, staff))
	r.mux.HandleFunc("GET /api/v1/tours/within/{distance}/center/{latlng}/unit/{unit}", r.tourHandler.GetToursWithin)
	r.mux.HandleFunc("GET /api/v1/tours/distances/{latlng}/unit/{unit}", r.tourHandler.GetDistances)
	r.mux.HandleFunc("GET /api/v1/tours/{id}", r.tourHandler.GetTour)
	r.mux.Handle("POST /api/v1/tours", restricted(r.tourHandler.CreateTour, tourManagers))
	r.mux.Handle("PATCH /api/v1/tours/{id}", restricted(r.tourHandler.UpdateTour, tourManagers))
	r.mux.Handle("DELETE /api/v1/tours/{id}", restricted(r.tourHandler.DeleteTour, tourManagers))

	// Review endpoints
	r.mux.HandleFunc("GET /api/v1/tours/{tourId}/reviews", r.reviewHandler.ListTourReviews)
	r.mux.Handle("POST /api/v1/tours/{tourId}/reviews", protected(r.reviewHandler.CreateReview))
	r.mux.HandleFunc("GET /api/v1/reviews/{id}", r.reviewHandler.GetReview)
	r.mux.Handle("PATCH /api/v1/reviews/{id}", protected(r.reviewHandler.UpdateReview))
	r.mux.Handle("DELETE /api/v1/reviews/{id}", protected(r.reviewHandler.DeleteReview))

	// Booking endpoints
	r.mux.Handle("POST /api/v1/bookings/checkout-session/{tourId}", protected(r.bookingHandler.CreateCheckoutSession))
	r.mux.Handle("GET /api/v1/bookings/verify/{reference}", protected(r.bookingHandler.VerifyCheckout))
	r.mux.Handle("GET /api/v1/bookings/my-bookings", protected(r.bookingHandler.GetMyBookings))
	r.mux.Handle("GET /api/v1/bookings", restricted(r.bookingHandler.ListBookings, adminOnly))
	r.mux.Handle("GET /api/v1/bookings/{id}", protected(r.bookingHandler.GetBooking))
	r.mux.Handle("PATCH /api/v1/bookings/{id}", restricted(r.bookingHandler.UpdateBooking, adminOnly))
	r.mux.Handle("DELETE /api/v1/bookings/{id}", restricted(r.bookingHandler.DeleteBooking, adminOnly))

	// Paystack webhook endpoint. Authenticated by signature, not by session.
	if r.paystackWebhookHandler != nil {
		r.mux.HandleFunc("POST /webhooks/paystack", r.paystackWebhookHandler.HandleWebhook)
	}

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS must be outermost so error responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
