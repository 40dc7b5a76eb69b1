package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/services"
)

type AdminHandler struct {
	admin   *services.AdminService
	events  *services.EventService
	reports *services.ReportService
	errs    *Errors
}

func NewAdminHandler(admin *services.AdminService, events *services.EventService, reports *services.ReportService, errs *Errors) *AdminHandler {
	return &AdminHandler{admin: admin, events: events, reports: reports, errs: errs}
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.admin.Dashboard(r.Context())
	if err != nil {
		h.errs.write(w, r, err, "Failed to load dashboard")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(d))
}

func (h *AdminHandler) QuickStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.admin.QuickStats(r.Context())
	if err != nil {
		h.errs.write(w, r, err, "Failed to load statistics")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(st))
}

// Events lists events in any status; status=all or no status disables the filter.
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	f := models.EventFilter{Search: strings.TrimSpace(r.URL.Query().Get("search"))}
	if s := models.EventStatus(r.URL.Query().Get("status")); s.Valid() {
		f.Status = s
	}
	h.listEvents(w, r, f)
}

func (h *AdminHandler) PendingEvents(w http.ResponseWriter, r *http.Request) {
	h.listEvents(w, r, models.EventFilter{Status: models.EventPending})
}

func (h *AdminHandler) listEvents(w http.ResponseWriter, r *http.Request, f models.EventFilter) {
	list, err := h.events.ListAll(r.Context(), f, pageFrom(r, 10, 100))
	if err != nil {
		h.errs.write(w, r, err, "Failed to load events")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ev, err := h.events.Approve(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.write(w, r, err, "Failed to approve event")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Event approved", map[string]any{"event": ev}))
}

func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req models.RejectEventRequest
	if !bind(w, r, &req) {
		return
	}

	ev, err := h.events.Reject(r.Context(), currentUser(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.errs.write(w, r, err, "Failed to reject event")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Event rejected", map[string]any{"event": ev}))
}

// Reports defaults to pending reports; status=all lists every report.
func (h *AdminHandler) Reports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.ReportFilter{Status: models.ReportPending, EventID: q.Get("eventId")}
	switch s := q.Get("status"); {
	case s == "all":
		f.Status = ""
	case models.ReportStatus(s).Valid():
		f.Status = models.ReportStatus(s)
	}

	list, err := h.reports.List(r.Context(), f, pageFrom(r, 10, 100))
	if err != nil {
		h.errs.write(w, r, err, "Failed to load reports")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *AdminHandler) ReviewReport(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewReportRequest
	if !bind(w, r, &req) {
		return
	}

	report, err := h.reports.Review(r.Context(), currentUser(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.errs.write(w, r, err, "Failed to review report")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Report reviewed", map[string]any{"report": report}))
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.UserFilter{Search: strings.TrimSpace(q.Get("search"))}
	if role := models.Role(q.Get("role")); role.Valid() {
		f.Role = role
	}
	if blocked, ok := queryBool(r, "isBlocked"); ok {
		f.IsBlocked = &blocked
	}

	list, err := h.admin.Users(r.Context(), f, pageFrom(r, 10, 100))
	if err != nil {
		h.errs.write(w, r, err, "Failed to load users")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *AdminHandler) ToggleRole(w http.ResponseWriter, r *http.Request) {
	user, err := h.admin.ToggleRole(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.write(w, r, err, "Failed to change role")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Role updated", map[string]any{"user": user}))
}

func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	var req models.BlockUserRequest
	if !bind(w, r, &req) {
		return
	}

	if err := h.admin.Block(r.Context(), currentUser(r), chi.URLParam(r, "id"), req.Reason); err != nil {
		h.errs.write(w, r, err, "Failed to block user")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("User blocked", nil))
}

func (h *AdminHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Unblock(r.Context(), currentUser(r), chi.URLParam(r, "id")); err != nil {
		h.errs.write(w, r, err, "Failed to unblock user")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("User unblocked", nil))
}
