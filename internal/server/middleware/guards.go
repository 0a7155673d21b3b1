package middleware

import (
	"context"
	"net/http"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/audit"
	auditdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/audit/domain"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/reqctx"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/server/apierror"
)

// Guard checks the caller in the request context against a permission or a role set.
type Guard interface {
	RequirePermission(ctx context.Context, permission string) error
	RequireAnyRole(ctx context.Context, roles ...string) error
}

// RequirePermission lets the request through only if the caller's membership holds permission.
func RequirePermission(g Guard, auditLog audit.AuditLogger, permission string) func(http.Handler) http.Handler {
	return guard(auditLog, map[string]any{"permission": permission}, func(ctx context.Context) error {
		return g.RequirePermission(ctx, permission)
	})
}

// RequireAnyRole lets the request through only if the caller's membership holds one of roles.
func RequireAnyRole(g Guard, auditLog audit.AuditLogger, roles ...string) func(http.Handler) http.Handler {
	return guard(auditLog, map[string]any{"roles": roles}, func(ctx context.Context) error {
		return g.RequireAnyRole(ctx, roles...)
	})
}

// guard runs check and records the decision. Audit writes are best-effort.
func guard(auditLog audit.AuditLogger, meta map[string]any, check func(context.Context) error) func(http.Handler) http.Handler {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			err := check(ctx)

			ar := audit.ParseRoute(r.Method, r.URL.Path)
			p, _ := reqctx.GetPrincipal(ctx)
			tenantID := p.TenantID
			if t, ok := reqctx.Tenant(ctx); ok {
				tenantID = t.ID
			}
			entry := map[string]any{"operation": ar.Action, "path": r.URL.Path}
			for k, v := range meta {
				entry[k] = v
			}
			action := auditdomain.ActionAccessGranted
			if err != nil {
				action = auditdomain.ActionAccessDenied
				_, code, _ := apierror.Classify(err)
				entry["reason"] = code
			}
			auditLog.LogEvent(ctx, tenantID, p.UserID, action, ar.Resource, entry)

			if err != nil {
				apierror.FromError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
