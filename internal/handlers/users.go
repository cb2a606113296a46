package handlers

import (
	"net/http"

	"github.com/graylake-systems/graylake/internal/middleware"
	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/service"
	"github.com/graylake-systems/graylake/pkg/logging"
)

// UserHandler serves admin-only member management.
type UserHandler struct {
	users *service.UserService
	log   *logging.Logger
}

func NewUserHandler(users *service.UserService, log *logging.Logger) *UserHandler {
	if log == nil {
		log = logging.Default()
	}
	return &UserHandler{users: users, log: log}
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())

	users, err := h.users.List(r.Context(), id.TenantID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users})
}

// Create handles POST /api/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())

	var req models.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	user, err := h.users.Create(r.Context(), id.TenantID, &req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// UpdateRole handles PATCH /api/users/{id}.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())

	var req models.UpdateUserRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	user, err := h.users.UpdateRole(r.Context(), id.TenantID, r.PathValue("id"), req.Role)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())

	if err := h.users.Delete(r.Context(), id.TenantID, r.PathValue("id"), id.UserID); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
