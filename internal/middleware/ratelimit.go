package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/eventhub/backend/internal/models"
)

// RateLimit allows limit requests per window for each key and answers the
// rest with a JSON 429.
func RateLimit(limit int, window time.Duration, message string, key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, models.NewErrorResponse(message))
		}),
	)
}

func KeyByIP(r *http.Request) (string, error) {
	return httprate.KeyByIP(r)
}

// KeyByUser keys on the authenticated user and falls back to the client IP.
func KeyByUser(r *http.Request) (string, error) {
	if u := GetUser(r.Context()); u != nil {
		return "user:" + u.ID, nil
	}
	return httprate.KeyByIP(r)
}
