package handlers

import (
	"net/http"
	"time"

	"github.com/tourbase/backend/internal/api/middleware"
	"github.com/tourbase/backend/internal/application/services"
	"github.com/tourbase/backend/pkg/config"
)

// AuthHandler handles registration, login and password lifecycle requests
type AuthHandler struct {
	authService  *services.AuthService
	cookieExpiry time.Duration
	secureCookie bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, jwtCfg *config.JWTConfig, env string) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		cookieExpiry: jwtCfg.CookieExpiry,
		secureCookie: env == "production",
	}
}

type signUpRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordResetRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type passwordUpdateRequest struct {
	PasswordCurrent string `json:"password_current"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// SignUp handles POST /api/v1/users/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	user, token, err := h.authService.SignUp(r.Context(), services.SignUpInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Login handles POST /api/v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Logout handles GET /api/v1/users/logout by replacing the session cookie
// with a short-lived dummy
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// ForgotPassword handles POST /api/v1/users/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "if that email exists, a reset token has been sent",
	})
}

// ResetPassword handles PATCH /api/v1/users/reset-password/{token}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "reset token is required")
		return
	}

	var req passwordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	user, sessionToken, err := h.authService.ResetPassword(r.Context(), token, req.Password, req.PasswordConfirm)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	h.setSessionCookie(w, sessionToken)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"token": sessionToken,
		"user":  user,
	})
}

// UpdatePassword handles PATCH /api/v1/users/update-password (protected)
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	var req passwordUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	token, err := h.authService.UpdatePassword(r.Context(), user, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cookieExpiry),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
