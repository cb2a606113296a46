package handlers

import (
	"net/http"

	"github.com/graylake-systems/graylake/internal/middleware"
	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/service"
	"github.com/graylake-systems/graylake/pkg/logging"
)

// AuthHandler serves registration, login, and session introspection.
type AuthHandler struct {
	auth *service.AuthService
	log  *logging.Logger
}

func NewAuthHandler(auth *service.AuthService, log *logging.Logger) *AuthHandler {
	if log == nil {
		log = logging.Default()
	}
	return &AuthHandler{auth: auth, log: log}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	session, err := h.auth.Register(r.Context(), &req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	session, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())

	user, tenant, err := h.auth.Me(r.Context(), id.TenantID, id.UserID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "tenant": tenant})
}
