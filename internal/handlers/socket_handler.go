package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/realtime"
)

type SocketHandler struct {
	relay *realtime.Relay
}

func NewSocketHandler(relay *realtime.Relay) *SocketHandler {
	return &SocketHandler{relay: relay}
}

func (h *SocketHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(h.relay.Stats(currentUser(r))))
}

func (h *SocketHandler) UserOnline(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{
		"userId":   userID,
		"isOnline": h.relay.IsOnline(userID),
	}))
}
