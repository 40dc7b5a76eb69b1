package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
	errs *Errors
}

func NewChatHandler(chat *services.ChatService, errs *Errors) *ChatHandler {
	return &ChatHandler{chat: chat, errs: errs}
}

func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	list, err := h.chat.Messages(r.Context(), currentUser(r), chi.URLParam(r, "eventId"), pageFrom(r, 50, 100))
	if err != nil {
		h.errs.write(w, r, err, "Failed to load messages")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if !bind(w, r, &req) {
		return
	}

	msg, err := h.chat.Send(r.Context(), currentUser(r), chi.URLParam(r, "eventId"), &req)
	if err != nil {
		h.errs.write(w, r, err, "Failed to send message")
		return
	}
	writeJSON(w, http.StatusCreated, models.NewMessageResponse("Message sent", map[string]any{"message": msg}))
}

func (h *ChatHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req models.EditMessageRequest
	if !bind(w, r, &req) {
		return
	}

	msg, err := h.chat.Edit(r.Context(), currentUser(r), chi.URLParam(r, "messageId"), &req)
	if err != nil {
		h.errs.write(w, r, err, "Failed to edit message")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Message edited", map[string]any{"message": msg}))
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.Delete(r.Context(), currentUser(r), chi.URLParam(r, "messageId")); err != nil {
		h.errs.write(w, r, err, "Failed to delete message")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Message deleted", nil))
}

func (h *ChatHandler) Participants(w http.ResponseWriter, r *http.Request) {
	list, err := h.chat.Participants(r.Context(), currentUser(r), chi.URLParam(r, "eventId"))
	if err != nil {
		h.errs.write(w, r, err, "Failed to load participants")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *ChatHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.ChatSettingsRequest
	if !bind(w, r, &req) {
		return
	}

	settings, err := h.chat.UpdateSettings(r.Context(), currentUser(r), chi.URLParam(r, "eventId"), *req.AllowChat)
	if err != nil {
		h.errs.write(w, r, err, "Failed to update chat settings")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Chat settings updated", map[string]any{"settings": settings}))
}
