package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graylake-systems/graylake/internal/handlers"
	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/ratelimit"
	"github.com/graylake-systems/graylake/internal/repository"
	"github.com/graylake-systems/graylake/internal/service"
	"github.com/graylake-systems/graylake/pkg/tokens"
)

// apiHarness runs the full HTTP surface against the in-memory store, with
// detection disabled so tests stay deterministic at the HTTP layer.
type apiHarness struct {
	t      *testing.T
	server *httptest.Server
	repo   *repository.InMemoryRepository
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	repo := repository.NewInMemoryRepository()
	gen := tokens.NewGenerator("test-secret", time.Hour)

	keySvc := service.NewAPIKeyService(repo, nil)
	h := &Handlers{
		Ingest:  handlers.NewIngestHandler(service.NewIngestService(repo, nil, nil), nil),
		Alerts:  handlers.NewAlertHandler(service.NewAlertService(repo, nil, nil), nil),
		Logs:    handlers.NewLogHandler(service.NewLogService(repo), nil),
		Stats:   handlers.NewStatsHandler(service.NewStatsService(repo), nil),
		Auth:    handlers.NewAuthHandler(service.NewAuthService(repo, gen, nil), nil),
		Users:   handlers.NewUserHandler(service.NewUserService(repo), nil),
		APIKeys: handlers.NewAPIKeyHandler(keySvc, nil),
		Health:  handlers.NewHealthHandler(repo),
	}

	router := NewRouter(h, keySvc, gen, ratelimit.NoOpRateLimiter{}, "")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &apiHarness{t: t, server: srv, repo: repo}
}

func (h *apiHarness) do(method, path, token string, body any) (*http.Response, map[string]any) {
	h.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (h *apiHarness) register(company, email string) (token, tenantID, userID string) {
	h.t.Helper()
	resp, body := h.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"companyName": company,
		"email":       email,
		"password":    "correct-horse",
	})
	require.Equal(h.t, http.StatusCreated, resp.StatusCode)
	token = body["token"].(string)
	user := body["user"].(map[string]any)
	tenant := body["tenant"].(map[string]any)
	return token, tenant["id"].(string), user["id"].(string)
}

func (h *apiHarness) createAPIKey(token string) string {
	h.t.Helper()
	resp, body := h.do(http.MethodPost, "/api/apikeys", token, map[string]string{"name": "test key"})
	require.Equal(h.t, http.StatusCreated, resp.StatusCode)
	return body["rawKey"].(string)
}

func (h *apiHarness) ingest(apiKey string, event map[string]any) (*http.Response, map[string]any) {
	h.t.Helper()
	data, err := json.Marshal(event)
	require.NoError(h.t, err)
	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/api/ingest", bytes.NewReader(data))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestAPI_RegisterLoginMe(t *testing.T) {
	h := newAPIHarness(t)

	token, _, _ := h.register("Acme Corp", "admin@acme.com")

	resp, body := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@acme.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	resp, body = h.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]any)
	assert.Equal(t, "admin@acme.com", user["email"])

	resp, _ = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@acme.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_DuplicateRegistrationConflicts(t *testing.T) {
	h := newAPIHarness(t)
	h.register("Acme Corp", "admin@acme.com")

	resp, _ := h.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"companyName": "Clone Corp", "email": "admin@acme.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_IngestFlow(t *testing.T) {
	h := newAPIHarness(t)
	token, _, _ := h.register("Acme Corp", "admin@acme.com")
	apiKey := h.createAPIKey(token)

	resp, body := h.ingest(apiKey, map[string]any{
		"source":    "auth-service",
		"eventType": "LOGIN_FAILED",
		"level":     "warn",
		"ip":        "10.0.0.1",
		"user":      "alice",
		"message":   "Failed password for alice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, body["logId"])
	assert.NotEmpty(t, body["receivedAt"])

	// The stored event is visible through the logs API.
	resp, logs := h.do(http.MethodGet, "/api/logs?eventType=LOGIN_FAILED", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := logs["items"].([]any)
	require.Len(t, items, 1)
	page := logs["page"].(map[string]any)
	assert.Equal(t, float64(1), page["total"])
}

func TestAPI_IngestAuthFailures(t *testing.T) {
	h := newAPIHarness(t)

	resp, _ := h.ingest("", map[string]any{"source": "s", "message": "m"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.ingest("gl_live_unknown", map[string]any{"source": "s", "message": "m"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_IngestValidationFailure(t *testing.T) {
	h := newAPIHarness(t)
	token, _, _ := h.register("Acme Corp", "admin@acme.com")
	apiKey := h.createAPIKey(token)

	resp, body := h.ingest(apiKey, map[string]any{"message": "no source"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "source", body["field"])
}

func TestAPI_AlertLifecycle(t *testing.T) {
	h := newAPIHarness(t)
	token, tenantID, _ := h.register("Acme Corp", "admin@acme.com")

	alert := &models.Alert{
		ID:          "alert-1",
		TenantID:    tenantID,
		Timestamp:   time.Now().UTC(),
		RuleName:    "Brute Force Detection",
		Severity:    models.SeverityHigh,
		Description: "Detected 5 failed login attempts",
		Status:      models.AlertStatusOpen,
		DedupeKey:   "BRUTEFORCE:" + tenantID + ":10.0.0.1",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, h.repo.CreateAlert(context.Background(), alert))

	resp, body := h.do(http.MethodGet, "/api/alerts?status=open", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 1)

	resp, body = h.do(http.MethodPatch, "/api/alerts/alert-1", token, map[string]string{"status": "closed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "closed", body["status"])
	require.NotNil(t, body["closedAt"])
	firstClosedAt := body["closedAt"].(string)

	// Closing again keeps the original stamps.
	resp, body = h.do(http.MethodPatch, "/api/alerts/alert-1", token, map[string]string{"status": "closed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, firstClosedAt, body["closedAt"])

	resp, _ = h.do(http.MethodPatch, "/api/alerts/alert-1", token, map[string]string{"status": "dismissed"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ReopenConflictsWithNewerAlert(t *testing.T) {
	h := newAPIHarness(t)
	token, tenantID, _ := h.register("Acme Corp", "admin@acme.com")

	key := "BRUTEFORCE:" + tenantID + ":10.0.0.1"
	mkAlert := func(id string) *models.Alert {
		return &models.Alert{
			ID:          id,
			TenantID:    tenantID,
			Timestamp:   time.Now().UTC(),
			RuleName:    "Brute Force Detection",
			Severity:    models.SeverityHigh,
			Description: "Detected 5 failed login attempts",
			Status:      models.AlertStatusOpen,
			DedupeKey:   key,
			CreatedAt:   time.Now().UTC(),
		}
	}

	require.NoError(t, h.repo.CreateAlert(context.Background(), mkAlert("alert-1")))
	resp, _ := h.do(http.MethodPatch, "/api/alerts/alert-1", token, map[string]string{"status": "closed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The attack continued after the close, so a newer alert holds the key.
	require.NoError(t, h.repo.CreateAlert(context.Background(), mkAlert("alert-2")))

	resp, _ = h.do(http.MethodPatch, "/api/alerts/alert-1", token, map[string]string{"status": "open"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body := h.do(http.MethodGet, "/api/alerts?status=open", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 1, "the dedupe key must still map to a single open alert")
	first := items[0].(map[string]any)
	assert.Equal(t, "alert-2", first["id"])
}

func TestAPI_TenantIsolation(t *testing.T) {
	h := newAPIHarness(t)
	tokenA, tenantA, _ := h.register("Acme Corp", "admin@acme.com")
	tokenB, _, _ := h.register("Beta Corp", "admin@beta.com")

	keyA := h.createAPIKey(tokenA)
	resp, body := h.ingest(keyA, map[string]any{"source": "s", "message": "acme event"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	logID := body["logId"].(string)
	_ = tenantA

	// Tenant B sees none of tenant A's data.
	resp, logs := h.do(http.MethodGet, "/api/logs", tokenB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := logs["page"].(map[string]any)
	assert.Equal(t, float64(0), page["total"])

	resp, logsByID := h.do(http.MethodGet, "/api/logs?ids="+logID, tokenB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pageByID := logsByID["page"].(map[string]any)
	assert.Equal(t, float64(0), pageByID["total"])
}

func TestAPI_AdminOnlyRoutes(t *testing.T) {
	h := newAPIHarness(t)
	adminToken, _, _ := h.register("Acme Corp", "admin@acme.com")

	// Create a viewer and log in as them.
	resp, _ := h.do(http.MethodPost, "/api/users", adminToken, map[string]string{
		"email": "viewer@acme.com", "password": "correct-horse", "role": "viewer",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, login := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "viewer@acme.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	viewerToken := login["token"].(string)

	resp, _ = h.do(http.MethodGet, "/api/users", viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = h.do(http.MethodPost, "/api/apikeys", viewerToken, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Viewers can still read alerts and logs.
	resp, _ = h.do(http.MethodGet, "/api/alerts", viewerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_LastAdminGuard(t *testing.T) {
	h := newAPIHarness(t)
	adminToken, _, adminID := h.register("Acme Corp", "admin@acme.com")

	resp, _ := h.do(http.MethodPatch, "/api/users/"+adminID, adminToken, map[string]string{"role": "viewer"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_Health(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_Stats(t *testing.T) {
	h := newAPIHarness(t)
	token, _, _ := h.register("Acme Corp", "admin@acme.com")
	apiKey := h.createAPIKey(token)

	for i := 0; i < 3; i++ {
		resp, _ := h.ingest(apiKey, map[string]any{
			"source": "auth-service", "eventType": "LOGIN_FAILED", "level": "warn", "ip": "10.0.0.1",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := h.do(http.MethodGet, "/api/stats?range=24h", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["total_events"])

	resp, _ = h.do(http.MethodGet, "/api/stats?range=90d", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
