package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	errs          *Errors
}

func NewNotificationHandler(notifications *services.NotificationService, errs *Errors) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, errs: errs}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	var f models.NotificationFilter
	if unread, ok := queryBool(r, "unreadOnly"); ok {
		f.UnreadOnly = unread
	}
	if t := models.NotificationType(r.URL.Query().Get("type")); t.Valid() {
		f.Type = t
	}

	list, err := h.notifications.List(r.Context(), currentUser(r).ID, f, pageFrom(r, 20, 100))
	if err != nil {
		h.errs.write(w, r, err, "Failed to load notifications")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.UnreadCount(r.Context(), currentUser(r).ID)
	if err != nil {
		h.errs.write(w, r, err, "Failed to count notifications")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]int64{"unreadCount": n}))
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.MarkRead(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		h.errs.write(w, r, err, "Failed to update notification")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"notification": n}))
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.MarkAllRead(r.Context(), currentUser(r).ID)
	if err != nil {
		h.errs.write(w, r, err, "Failed to update notifications")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("All notifications marked as read", map[string]int64{"modifiedCount": n}))
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.Delete(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		h.errs.write(w, r, err, "Failed to delete notification")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Notification deleted", nil))
}
