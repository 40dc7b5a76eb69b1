package handlers

import (
	"net/http"
	"time"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/realtime"
)

type HealthHandler struct {
	version string
	env     string
	relay   *realtime.Relay
}

func NewHealthHandler(version, env string, relay *realtime.Relay) *HealthHandler {
	return &HealthHandler{version: version, env: env, relay: relay}
}

// Plain is the load balancer probe.
func (h *HealthHandler) Plain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) API(w http.ResponseWriter, r *http.Request) {
	rt := map[string]any{"enabled": h.relay != nil, "connectedUsers": 0}
	if h.relay != nil {
		rt["connectedUsers"] = h.relay.Registry().Count()
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("EventHub API is running", map[string]any{
		"version":     h.version,
		"environment": h.env,
		"timestamp":   time.Now().UTC(),
		"realtime":    rt,
	}))
}
