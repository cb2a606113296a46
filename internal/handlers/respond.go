// Package handlers contains the HTTP layer: request decoding, response
// encoding, and mapping service errors onto status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/repository"
	"github.com/graylake-systems/graylake/internal/service"
	"github.com/graylake-systems/graylake/pkg/logging"
)

// maxBodyBytes caps request bodies before JSON decoding.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain errors to status codes. Not-found errors from
// any tenant-scoped lookup produce the same 404 whether the resource is
// missing or belongs to another tenant. Unknown errors are logged and
// reported as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, log *logging.Logger, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
	case errors.Is(err, service.ErrInvalidAPIKey):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid api key"})
	case errors.Is(err, repository.ErrUserExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: "email already registered"})
	case errors.Is(err, service.ErrLastAdmin):
		writeJSON(w, http.StatusConflict, errorBody{Error: "tenant must keep at least one admin"})
	case errors.Is(err, repository.ErrDuplicateAlert):
		writeJSON(w, http.StatusConflict, errorBody{Error: "an open alert with the same dedupe key already exists"})
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrAlertNotFound),
		errors.Is(err, repository.ErrTenantNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrAPIKeyNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	default:
		log.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// decodeJSON reads the request body into v with a size cap. Unknown
// fields are tolerated so clients can send extra metadata.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.Invalid("body", "request body must be valid JSON")
	}
	return nil
}
