package middleware

import (
	"net/http"

	"github.com/graylake-systems/graylake/internal/ratelimit"
)

// RateLimit throttles requests per tenant. It must run after
// RequireAPIKey so the tenant ID is present; requests with no tenant in
// context fall back to the client address. Limiter errors fail open so a
// Redis outage never blocks ingest.
func RateLimit(limiter ratelimit.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := TenantFrom(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
