package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/tourbase/backend/pkg/errors"
)

// Helper functions shared by all handlers

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps an application error to its HTTP status. Internal
// details never reach the client.
func respondWithAppError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
		case apperrors.ErrorTypeConflict:
			respondWithError(w, http.StatusConflict, appErr.Message)
		case apperrors.ErrorTypeUnauthorized:
			respondWithError(w, http.StatusUnauthorized, appErr.Message)
		case apperrors.ErrorTypeForbidden:
			respondWithError(w, http.StatusForbidden, appErr.Message)
		case apperrors.ErrorTypeExternal:
			respondWithError(w, http.StatusBadGateway, appErr.Message)
		default:
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid JSON body")
	}
	return nil
}
