package handlers

import (
	"net/http"

	"github.com/graylake-systems/graylake/internal/middleware"
	"github.com/graylake-systems/graylake/internal/service"
	"github.com/graylake-systems/graylake/pkg/logging"
)

// StatsHandler serves dashboard aggregates.
type StatsHandler struct {
	stats *service.StatsService
	log   *logging.Logger
}

func NewStatsHandler(stats *service.StatsService, log *logging.Logger) *StatsHandler {
	if log == nil {
		log = logging.Default()
	}
	return &StatsHandler{stats: stats, log: log}
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	q := r.URL.Query()

	stats, err := h.stats.Get(r.Context(), id.TenantID, q.Get("range"), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
