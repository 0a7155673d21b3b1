// Package server assembles the HTTP router and the gRPC server.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/audit"
	identityhandler "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/identity/handler"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/server/middleware"
	tenanthandler "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/handler"
)

// Role and permission names guarding the demo routes.
const (
	PermissionRead  = "read"
	RoleTenantAdmin = "admin_tenant"
)

// HTTPDeps holds what NewRouter wires into the routes.
type HTTPDeps struct {
	Resolver middleware.TenantResolver
	Tokens   middleware.AccessDecoder
	Guard    middleware.Guard
	// Audit records guard decisions. Nil disables guard auditing.
	Audit audit.AuditLogger
	Auth  identityhandler.AuthService
	// EchoResetToken includes the reset token in forgot-password responses (development).
	EchoResetToken bool
	// Proxies lists the peers whose forwarding headers name the client. Nil trusts none.
	Proxies *middleware.ProxyTrust
	// Limiter throttles credential endpoints per client IP. Nil disables throttling.
	Limiter *middleware.RateLimiter
	// Metrics instruments every route and serves /metrics. Nil disables both.
	Metrics *middleware.Metrics
	// Health serves /healthz. Nil omits the route.
	Health http.Handler
}

// NewRouter builds the HTTP API. Every /api route resolves the tenant from the Host header first.
func NewRouter(d HTTPDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging, middleware.SecurityHeaders, middleware.Client(d.Proxies))
	if d.Metrics != nil {
		r.Use(d.Metrics.Instrument)
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}
	if d.Health != nil {
		r.Handle("/healthz", d.Health).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Tenant(d.Resolver))

	bearer := middleware.Bearer(d.Tokens)
	limit := func(h http.Handler) http.Handler { return h }
	if d.Limiter != nil {
		limit = d.Limiter.Middleware
	}

	identityhandler.NewAuthHandler(d.Auth, d.EchoResetToken).
		Register(api.PathPrefix("/auth").Subrouter(), identityhandler.Routes{Limit: limit, Auth: bearer})

	tenanthandler.Register(api, bearer, tenanthandler.Guards{
		Read:  middleware.RequirePermission(d.Guard, d.Audit, PermissionRead),
		Admin: middleware.RequireAnyRole(d.Guard, d.Audit, RoleTenantAdmin),
	})
	return r
}
