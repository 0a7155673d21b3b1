package middleware

import (
	"net/http"
	"strings"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/reqctx"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/security"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/server/apierror"
)

const bearerPrefix = "bearer "

// AccessDecoder validates access tokens.
type AccessDecoder interface {
	DecodeAccess(token string) (*security.Claims, error)
}

// Bearer validates the access token in the Authorization header and stores the principal in the
// request context. It runs after Tenant: a token issued for another tenant is rejected as invalid.
func Bearer(tokens AccessDecoder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				apierror.FromError(w, r, security.ErrInvalidToken)
				return
			}
			claims, err := tokens.DecodeAccess(raw)
			if err != nil {
				apierror.FromError(w, r, security.ErrInvalidToken)
				return
			}
			if t, ok := reqctx.Tenant(r.Context()); ok && t.ID != claims.TenantID {
				apierror.FromError(w, r, security.ErrInvalidToken)
				return
			}
			ctx := reqctx.WithPrincipal(r.Context(), reqctx.Principal{
				UserID:   claims.UserID(),
				TenantID: claims.TenantID,
				Roles:    claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
