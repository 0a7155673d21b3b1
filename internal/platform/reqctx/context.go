// Package reqctx carries the per-request tenant, principal, and client metadata through context.Context.
package reqctx

import (
	"context"

	tenantdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/domain"
)

type contextKey struct{ name string }

var (
	tenantKey    = contextKey{"tenant"}
	principalKey = contextKey{"principal"}
	clientKey    = contextKey{"client"}
)

// Principal is the authenticated caller decoded from a bearer access token.
type Principal struct {
	UserID   string
	TenantID string
	Roles    []string
}

// ClientMeta is request metadata recorded on refresh tokens and audit rows.
type ClientMeta struct {
	UserAgent string
	IP        string
}

// WithTenant returns a context carrying the resolved tenant for this request.
func WithTenant(ctx context.Context, t *tenantdomain.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// Tenant returns the resolved tenant and true if set; otherwise nil, false.
func Tenant(ctx context.Context) (*tenantdomain.Tenant, bool) {
	t, ok := ctx.Value(tenantKey).(*tenantdomain.Tenant)
	return t, ok && t != nil
}

// WithPrincipal returns a context carrying the authenticated caller.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the authenticated caller and true if set; otherwise zero, false.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.UserID != ""
}

// WithClient returns a context carrying the caller's user agent and IP.
func WithClient(ctx context.Context, m ClientMeta) context.Context {
	return context.WithValue(ctx, clientKey, m)
}

// Client returns the caller's metadata, or zero values if unset.
func Client(ctx context.Context) ClientMeta {
	m, _ := ctx.Value(clientKey).(ClientMeta)
	return m
}
