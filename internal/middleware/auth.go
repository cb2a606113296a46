package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/pkg/tokens"
)

type identityKey struct{}

// Identity is the authenticated principal behind a JWT session.
type Identity struct {
	UserID   string
	TenantID string
	Role     string
}

// RequireAuth validates the Bearer token and stores the resulting
// Identity in the request context.
func RequireAuth(validator *tokens.Generator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "missing or malformed authorization header")
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			id := &Identity{
				UserID:   claims.UserID,
				TenantID: claims.TenantID,
				Role:     claims.Role,
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
		})
	}
}

// RequireAdmin rejects non-admin sessions. It must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFrom(r.Context())
		if id == nil {
			unauthorized(w, "authentication required")
			return
		}
		if id.Role != models.RoleAdmin {
			writeJSONError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFrom returns the Identity stored in ctx, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return id
	}
	return nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeJSONError(w, http.StatusUnauthorized, msg)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
