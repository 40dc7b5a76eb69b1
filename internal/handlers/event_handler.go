package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/services"
)

type EventHandler struct {
	events  *services.EventService
	reports *services.ReportService
	errs    *Errors
}

func NewEventHandler(events *services.EventService, reports *services.ReportService, errs *Errors) *EventHandler {
	return &EventHandler{events: events, reports: reports, errs: errs}
}

func eventFilterFrom(r *http.Request) models.EventFilter {
	q := r.URL.Query()
	return models.EventFilter{
		Category: strings.TrimSpace(q.Get("category")),
		City:     strings.TrimSpace(q.Get("city")),
		Search:   strings.TrimSpace(q.Get("search")),
		From:     queryTime(r, "startDate"),
		To:       queryTime(r, "endDate"),
	}
}

// List serves approved events to everyone.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.events.List(r.Context(), eventFilterFrom(r), pageFrom(r, 12, 50), currentUser(r))
	if err != nil {
		h.errs.write(w, r, err, "Failed to load events")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.events.Get(r.Context(), chi.URLParam(r, "id"), currentUser(r))
	if err != nil {
		h.errs.write(w, r, err, "Failed to load event")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"event": view}))
}

func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.events.Stats(r.Context())
	if err != nil {
		h.errs.write(w, r, err, "Failed to load statistics")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(stats))
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if !bind(w, r, &req) {
		return
	}

	ev, err := h.events.Create(r.Context(), currentUser(r), &req)
	if err != nil {
		h.errs.write(w, r, err, "Failed to create event")
		return
	}
	writeJSON(w, http.StatusCreated, models.NewMessageResponse("Event created and awaiting approval", map[string]any{"event": ev}))
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if !bind(w, r, &req) {
		return
	}

	ev, err := h.events.Update(r.Context(), currentUser(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.errs.write(w, r, err, "Failed to update event")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Event updated", map[string]any{"event": ev}))
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.events.Delete(r.Context(), currentUser(r), chi.URLParam(r, "id")); err != nil {
		h.errs.write(w, r, err, "Failed to delete event")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Event deleted", nil))
}

func (h *EventHandler) Join(w http.ResponseWriter, r *http.Request) {
	count, err := h.events.Join(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.write(w, r, err, "Failed to join event")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Joined event", map[string]int{"participantsCount": count}))
}

func (h *EventHandler) Leave(w http.ResponseWriter, r *http.Request) {
	count, err := h.events.Leave(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.write(w, r, err, "Failed to leave event")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Left event", map[string]int{"participantsCount": count}))
}

func (h *EventHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	if !bind(w, r, &req) {
		return
	}

	count, err := h.reports.Report(r.Context(), currentUser(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.errs.write(w, r, err, "Failed to report event")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Report submitted", map[string]int{"reportCount": count}))
}

func (h *EventHandler) Created(w http.ResponseWriter, r *http.Request) {
	list, err := h.events.ListCreated(r.Context(), currentUser(r), pageFrom(r, 10, 50))
	if err != nil {
		h.errs.write(w, r, err, "Failed to load events")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *EventHandler) Joined(w http.ResponseWriter, r *http.Request) {
	list, err := h.events.ListJoined(r.Context(), currentUser(r), pageFrom(r, 10, 50))
	if err != nil {
		h.errs.write(w, r, err, "Failed to load events")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}
