// Package server wires handlers, middleware, and the HTTP listener.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/graylake-systems/graylake/internal/handlers"
	"github.com/graylake-systems/graylake/internal/middleware"
	"github.com/graylake-systems/graylake/internal/ratelimit"
	"github.com/graylake-systems/graylake/pkg/tokens"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Ingest  *handlers.IngestHandler
	Alerts  *handlers.AlertHandler
	Logs    *handlers.LogHandler
	Stats   *handlers.StatsHandler
	Auth    *handlers.AuthHandler
	Users   *handlers.UserHandler
	APIKeys *handlers.APIKeyHandler
	Health  *handlers.HealthHandler
}

// NewRouter builds the full route table. Ingest is authenticated by API
// key and rate limited per tenant; everything under the session area is
// authenticated by JWT, with user and key management restricted to
// admins.
func NewRouter(h *Handlers, keyAuth middleware.KeyAuthenticator, validator *tokens.Generator, limiter ratelimit.RateLimiter, corsOrigin string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Ingest plane
	ingestChain := middleware.RequireAPIKey(keyAuth)(
		middleware.RateLimit(limiter)(
			http.HandlerFunc(h.Ingest.Ingest)))
	mux.Handle("POST /api/ingest", ingestChain)

	// Session plane
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)

	authed := middleware.RequireAuth(validator)

	mux.Handle("GET /api/auth/me", authed(http.HandlerFunc(h.Auth.Me)))

	mux.Handle("GET /api/alerts", authed(http.HandlerFunc(h.Alerts.List)))
	mux.Handle("GET /api/alerts/{id}", authed(http.HandlerFunc(h.Alerts.Get)))
	mux.Handle("PATCH /api/alerts/{id}", authed(http.HandlerFunc(h.Alerts.UpdateStatus)))

	mux.Handle("GET /api/logs", authed(http.HandlerFunc(h.Logs.List)))
	mux.Handle("GET /api/stats", authed(http.HandlerFunc(h.Stats.Get)))

	admin := func(next http.HandlerFunc) http.Handler {
		return authed(middleware.RequireAdmin(next))
	}

	mux.Handle("GET /api/users", admin(h.Users.List))
	mux.Handle("POST /api/users", admin(h.Users.Create))
	mux.Handle("PATCH /api/users/{id}", admin(h.Users.UpdateRole))
	mux.Handle("DELETE /api/users/{id}", admin(h.Users.Delete))

	mux.Handle("GET /api/apikeys", admin(h.APIKeys.List))
	mux.Handle("POST /api/apikeys", admin(h.APIKeys.Create))
	mux.Handle("DELETE /api/apikeys/{id}", admin(h.APIKeys.Revoke))

	var root http.Handler = mux
	root = middleware.CORS(corsOrigin)(root)
	root = middleware.RequestID(root)
	return root
}
