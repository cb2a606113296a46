package handlers

import (
	"net/http"

	"github.com/graylake-systems/graylake/internal/middleware"
	"github.com/graylake-systems/graylake/internal/service"
	"github.com/graylake-systems/graylake/pkg/logging"
)

// LogHandler serves the analyst-facing log query API.
type LogHandler struct {
	logs *service.LogService
	log  *logging.Logger
}

func NewLogHandler(logs *service.LogService, log *logging.Logger) *LogHandler {
	if log == nil {
		log = logging.Default()
	}
	return &LogHandler{logs: logs, log: log}
}

// List handles GET /api/logs.
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	q := r.URL.Query()

	page, err := h.logs.List(r.Context(), id.TenantID, &service.LogListQuery{
		IDs:       q.Get("ids"),
		From:      q.Get("from"),
		To:        q.Get("to"),
		Level:     q.Get("level"),
		Source:    q.Get("source"),
		EventType: q.Get("eventType"),
		IP:        q.Get("ip"),
		User:      q.Get("user"),
		Query:     q.Get("q"),
		Limit:     intParam(q.Get("limit")),
		Skip:      intParam(q.Get("skip")),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
