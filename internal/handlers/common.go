package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/services"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation, services.KindConflict:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Errors writes workflow failures. Classified errors keep their message;
// anything else becomes a 500 whose detail is shown only in development.
type Errors struct {
	log *zap.Logger
	dev bool
}

func NewErrors(log *zap.Logger, dev bool) *Errors {
	return &Errors{log: log, dev: dev}
}

func (e *Errors) write(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var se *services.Error
	if errors.As(err, &se) {
		writeJSON(w, statusFor(se.Kind), models.NewErrorResponse(se.Message))
		return
	}

	e.log.Error(fallback,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("requestId", chimw.GetReqID(r.Context())),
	)
	resp := models.NewErrorResponse(fallback)
	if e.dev {
		resp.Detail = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

// decode reads a JSON body into dst and answers 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return false
	}
	return true
}

type validator interface {
	Validate() map[string]string
}

// bind decodes and validates a request body.
func bind(w http.ResponseWriter, r *http.Request, req validator) bool {
	if !decode(w, r, req) {
		return false
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return false
	}
	return true
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func pageFrom(r *http.Request, defaultLimit, maxLimit int) models.Page {
	return models.NewPage(queryInt(r, "page"), queryInt(r, "limit"), defaultLimit, maxLimit)
}

func queryBool(r *http.Request, key string) (bool, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(r *http.Request, key string) *time.Time {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// currentUser returns the authenticated user, or nil on public routes.
func currentUser(r *http.Request) *models.User {
	return middleware.GetUser(r.Context())
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
