package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chatpilot-hq/console/internal/auth"
)

type tenantContextKey struct{}

// TenantContext copies the tenant ID of the authenticated identity into the
// request context.
func TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := auth.GetIdentity(r.Context())
		if identity != nil && identity.TenantID != "" {
			ctx := context.WithValue(r.Context(), tenantContextKey{}, identity.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireTenant rejects identities that are not bound to a tenant. Platform
// operators (token without tenant_id) have no tenant workspace to render.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetTenantID(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "tenant context required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetTenantID retrieves the tenant ID from the request context.
func GetTenantID(ctx context.Context) string {
	if id, ok := ctx.Value(tenantContextKey{}).(string); ok {
		return id
	}
	return ""
}
