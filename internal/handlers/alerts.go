package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/graylake-systems/graylake/internal/middleware"
	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/service"
	"github.com/graylake-systems/graylake/pkg/logging"
)

// AlertHandler serves the analyst-facing alert API.
type AlertHandler struct {
	alerts *service.AlertService
	log    *logging.Logger
}

func NewAlertHandler(alerts *service.AlertService, log *logging.Logger) *AlertHandler {
	if log == nil {
		log = logging.Default()
	}
	return &AlertHandler{alerts: alerts, log: log}
}

// List handles GET /api/alerts.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	q := r.URL.Query()

	page, err := h.alerts.List(r.Context(), id.TenantID, &service.AlertListQuery{
		Status:   q.Get("status"),
		Severity: q.Get("severity"),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Query:    q.Get("q"),
		Limit:    intParam(q.Get("limit")),
		Skip:     intParam(q.Get("skip")),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/alerts/{id}.
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())

	alert, err := h.alerts.Get(r.Context(), id.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// UpdateStatus handles PATCH /api/alerts/{id}.
func (h *AlertHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())

	var req models.UpdateAlertStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	alert, err := h.alerts.SetStatus(r.Context(), id.TenantID, r.PathValue("id"), req.Status, id.UserID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	resp := models.AlertStatusResponse{ID: alert.ID, Status: alert.Status}
	if alert.ClosedAt != nil {
		s := alert.ClosedAt.Format(time.RFC3339Nano)
		resp.ClosedAt = &s
	}
	resp.ClosedBy = alert.ClosedBy

	writeJSON(w, http.StatusOK, resp)
}

func intParam(v string) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
