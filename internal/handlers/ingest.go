package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/graylake-systems/graylake/internal/middleware"
	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/service"
	"github.com/graylake-systems/graylake/pkg/logging"
)

// IngestHandler accepts API-key-authenticated event submissions.
type IngestHandler struct {
	ingest *service.IngestService
	log    *logging.Logger
}

func NewIngestHandler(ingest *service.IngestService, log *logging.Logger) *IngestHandler {
	if log == nil {
		log = logging.Default()
	}
	return &IngestHandler{ingest: ingest, log: log}
}

// Ingest handles POST /api/ingest. The raw body is preserved verbatim on
// the stored event so enrichment fields the schema does not model are
// never lost.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFrom(r.Context())
	if tenantID == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing api key"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
		return
	}

	var req models.IngestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, h.log, models.Invalid("body", "request body must be valid JSON"))
		return
	}

	resp, err := h.ingest.Ingest(r.Context(), tenantID, &req, json.RawMessage(body))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}
