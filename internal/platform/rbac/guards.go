package rbac

import (
	"context"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/membership/domain"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/reqctx"
)

// RequirePermission ensures the caller has an active membership in the request tenant and that it
// grants permission. Returns ErrUnauthenticated, ErrNotInTenant, or ErrPermissionDenied on failure.
func (e *Evaluator) RequirePermission(ctx context.Context, permission string) error {
	m, err := e.callerMembership(ctx)
	if err != nil {
		return err
	}
	ok, err := e.HasPermission(ctx, m.ID, permission)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}

// RequireAnyRole ensures the caller has an active membership in the request tenant holding at
// least one of roles. Returns ErrUnauthenticated, ErrNotInTenant, or ErrPermissionDenied on failure.
func (e *Evaluator) RequireAnyRole(ctx context.Context, roles ...string) error {
	m, err := e.callerMembership(ctx)
	if err != nil {
		return err
	}
	held, err := e.RoleNames(ctx, m.ID)
	if err != nil {
		return err
	}
	for _, h := range held {
		for _, want := range roles {
			if h == want {
				return nil
			}
		}
	}
	return ErrPermissionDenied
}

// callerMembership resolves the principal's membership in the resolved tenant.
func (e *Evaluator) callerMembership(ctx context.Context) (*domain.Membership, error) {
	p, ok := reqctx.GetPrincipal(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	tenantID := p.TenantID
	if t, ok := reqctx.Tenant(ctx); ok {
		tenantID = t.ID
	}
	if tenantID == "" {
		return nil, ErrUnauthenticated
	}
	return e.ActiveMembership(ctx, p.UserID, tenantID)
}
