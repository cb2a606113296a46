package middleware

import (
	"context"
	"net/http"

	"github.com/graylake-systems/graylake/internal/models"
)

// APIKeyHeader carries the raw ingest key.
const APIKeyHeader = "X-API-Key"

type tenantKey struct{}

// KeyAuthenticator resolves a raw API key to its record.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*models.APIKey, error)
}

// RequireAPIKey authenticates the ingest key header and stores the owning
// tenant ID in the request context. Every failure mode returns the same
// 401 so callers cannot probe which keys exist.
func RequireAPIKey(auth KeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(APIKeyHeader)
			if raw == "" {
				unauthorized(w, "missing api key")
				return
			}

			key, err := auth.Authenticate(r.Context(), raw)
			if err != nil {
				unauthorized(w, "invalid api key")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantKey{}, key.TenantID)))
		})
	}
}

// TenantFrom returns the tenant ID placed by RequireAPIKey, or "".
func TenantFrom(ctx context.Context) string {
	if id, ok := ctx.Value(tenantKey{}).(string); ok {
		return id
	}
	return ""
}
