package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tourbase/backend/internal/application/services"
	"github.com/tourbase/backend/internal/domain/entities"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// CurrentUser returns the authenticated user stored by Protect, or nil
func CurrentUser(ctx context.Context) *entities.User {
	user, _ := ctx.Value(userContextKey).(*entities.User)
	return user
}

// Protect rejects requests without a valid session token and stores the
// authenticated user in the request context. The token comes from the
// Authorization header or the jwt cookie.
func Protect(authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				unauthorized(w, "you are not logged in")
				return
			}

			user, err := authService.VerifyToken(r.Context(), token)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RestrictTo limits a protected route to the given roles. It must run after
// Protect.
func RestrictTo(roles ...entities.Role) func(http.Handler) http.Handler {
	allowed := make(map[entities.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r.Context())
			if user == nil {
				unauthorized(w, "you are not logged in")
				return
			}
			if _, ok := allowed[user.Role]; !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "you do not have permission to perform this action",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := r.Cookie("jwt"); err == nil {
		return cookie.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
