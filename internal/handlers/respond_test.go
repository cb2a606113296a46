package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/repository"
	"github.com/graylake-systems/graylake/internal/service"
	"github.com/graylake-systems/graylake/pkg/logging"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation error", models.Invalid("source", "source is required"), http.StatusBadRequest},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"invalid api key", service.ErrInvalidAPIKey, http.StatusUnauthorized},
		{"duplicate email", repository.ErrUserExists, http.StatusConflict},
		{"last admin", service.ErrLastAdmin, http.StatusConflict},
		{"reopen onto held dedupe key", repository.ErrDuplicateAlert, http.StatusConflict},
		{"alert not found", repository.ErrAlertNotFound, http.StatusNotFound},
		{"user not found", repository.ErrUserNotFound, http.StatusNotFound},
		{"unknown error", errors.New("pool exhausted"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			writeError(rec, req, logging.Default(), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWriteError_OpaqueInternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(rec, req, logging.Default(), errors.New("password=hunter2 leaked detail"))

	assert.NotContains(t, rec.Body.String(), "hunter2", "internal details must not reach clients")
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestWriteError_ValidationIncludesField(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(rec, req, logging.Default(), models.Invalid("status", `status must be either "open" or "closed"`))

	assert.Contains(t, rec.Body.String(), `"field":"status"`)
}
