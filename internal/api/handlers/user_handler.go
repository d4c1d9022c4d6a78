package handlers

import (
	"net/http"
	"strconv"

	"github.com/tourbase/backend/internal/api/middleware"
	"github.com/tourbase/backend/internal/application/services"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/repositories"
)

// UserHandler handles account profile requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type userUpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Photo *string `json:"photo"`
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, middleware.CurrentUser(r.Context()))
}

// UpdateMe handles PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	var req userUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	updated, err := h.userService.UpdateMe(r.Context(), user.ID, repositories.UserUpdate{
		Name:  req.Name,
		Email: req.Email,
		Photo: req.Photo,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

// DeleteMe handles DELETE /api/v1/users/me by deactivating the account
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	if err := h.userService.DeactivateMe(r.Context(), user.ID); err != nil {
		respondWithAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsers handles GET /api/v1/users (admin)
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := repositories.UserFilter{
		Role:  entities.Role(r.URL.Query().Get("role")),
		Limit: parseIntOrDefault(r.URL.Query().Get("limit"), 100),
	}

	users, err := h.userService.ListUsers(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// GetUser handles GET /api/v1/users/{id} (admin)
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// UpdateUser handles PATCH /api/v1/users/{id} (admin)
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	user, err := h.userService.UpdateUser(r.Context(), r.PathValue("id"), repositories.UserUpdate{
		Name:  req.Name,
		Email: req.Email,
		Photo: req.Photo,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/v1/users/{id} (admin)
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseIntOrDefault(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	if n, err := strconv.Atoi(value); err == nil && n >= 0 {
		return n
	}
	return defaultValue
}
