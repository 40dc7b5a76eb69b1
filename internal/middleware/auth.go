package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/services"
)

type contextKey string

const userKey contextKey = "user"

// UserResolver turns an access token into the current user record.
type UserResolver interface {
	UserFromAccessToken(ctx context.Context, token string) (*models.User, error)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Authenticate requires a valid access token for an existing, non-blocked
// user and attaches that user to the request context.
func Authenticate(auth UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Access token required"))
				return
			}
			token, ok := bearerToken(r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid authorization header format"))
				return
			}

			user, err := auth.UserFromAccessToken(r.Context(), token)
			if err != nil {
				switch services.KindOf(err) {
				case services.KindForbidden:
					writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Account blocked"))
				case services.KindInternal:
					// A store outage is not the client's fault; 401 would log them out.
					writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Authentication unavailable"))
				default:
					writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid or expired token"))
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth attaches the user when a usable token is present and
// otherwise continues anonymously.
func OptionalAuth(auth UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if user, err := auth.UserFromAccessToken(r.Context(), token); err == nil {
					r = r.WithContext(WithUser(r.Context(), user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole must run after Authenticate.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Authentication required"))
				return
			}
			if user.Role != role {
				writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// GetUser returns the authenticated user, or nil for anonymous requests.
func GetUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
