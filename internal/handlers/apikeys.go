package handlers

import (
	"net/http"

	"github.com/graylake-systems/graylake/internal/middleware"
	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/service"
	"github.com/graylake-systems/graylake/pkg/logging"
)

// APIKeyHandler serves admin-only ingest key management.
type APIKeyHandler struct {
	keys *service.APIKeyService
	log  *logging.Logger
}

func NewAPIKeyHandler(keys *service.APIKeyService, log *logging.Logger) *APIKeyHandler {
	if log == nil {
		log = logging.Default()
	}
	return &APIKeyHandler{keys: keys, log: log}
}

// List handles GET /api/apikeys.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())

	keys, err := h.keys.List(r.Context(), id.TenantID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": keys})
}

// Create handles POST /api/apikeys. The raw key appears in this response
// only.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())

	var req models.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	resp, err := h.keys.Create(r.Context(), id.TenantID, &req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Revoke handles DELETE /api/apikeys/{id}.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())

	key, err := h.keys.Revoke(r.Context(), id.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}
