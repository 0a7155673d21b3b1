package middleware

import (
	"context"
	"net/http"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/reqctx"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/server/apierror"
	tenantdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/domain"
)

// TenantResolver maps a request host to its tenant.
type TenantResolver interface {
	Resolve(ctx context.Context, host string) (*tenantdomain.Tenant, error)
}

// Tenant resolves the tenant from the Host header and stores it in the request context.
// Requests whose host does not identify an active tenant stop here.
func Tenant(resolver TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, err := resolver.Resolve(r.Context(), r.Host)
			if err != nil {
				apierror.FromError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(reqctx.WithTenant(r.Context(), t)))
		})
	}
}
