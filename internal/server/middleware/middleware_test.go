package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/audit/domain"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/rbac"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/reqctx"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/security"
	tenantdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/domain"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/resolver"
)

type fakeResolver map[string]*tenantdomain.Tenant

func (f fakeResolver) Resolve(_ context.Context, host string) (*tenantdomain.Tenant, error) {
	if host == "" {
		return nil, resolver.ErrMissingHost
	}
	if t, ok := f[host]; ok {
		return t, nil
	}
	return nil, resolver.ErrTenantNotFound
}

type auditEntry struct {
	tenantID, userID, action, resource string
	metadata                           map[string]any
}

type captureAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (c *captureAudit) LogEvent(_ context.Context, tenantID, userID, action, resource string, metadata map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, auditEntry{tenantID, userID, action, resource, metadata})
}

type fakeGuard struct {
	permErr error
	roleErr error
}

func (g fakeGuard) RequirePermission(context.Context, string) error { return g.permErr }
func (g fakeGuard) RequireAnyRole(context.Context, ...string) error { return g.roleErr }

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func tenants() fakeResolver {
	return fakeResolver{
		"client1.localhost": {ID: "t-client1", Subdomain: "client1", Name: "Client 1", IsActive: true},
		"client2.localhost": {ID: "t-client2", Subdomain: "client2", Name: "Client 2", IsActive: true},
	}
}

func TestClientIP(t *testing.T) {
	trust := NewProxyTrust([]netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")})
	testCases := []struct {
		name    string
		trust   *ProxyTrust
		headers map[string]string
		remote  string
		want    string
	}{
		{"untrusted peer ignores forwarded", trust, map[string]string{"X-Forwarded-For": "203.0.113.1"}, "198.51.100.9:1234", "198.51.100.9"},
		{"untrusted peer ignores real ip", trust, map[string]string{"X-Real-IP": "203.0.113.1"}, "198.51.100.9:1234", "198.51.100.9"},
		{"no trust configured", nil, map[string]string{"X-Forwarded-For": "203.0.113.1"}, "10.0.0.2:1234", "10.0.0.2"},
		{"trusted peer uses nearest untrusted hop", trust, map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.1, 10.0.0.7"}, "10.0.0.2:1234", "203.0.113.1"},
		{"trusted peer falls back to real ip", trust, map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.2:1234", "198.51.100.7"},
		{"trusted peer stops at malformed hop", trust, map[string]string{"X-Forwarded-For": "203.0.113.1, junk, 10.0.0.7"}, "10.0.0.2:1234", "10.0.0.2"},
		{"trusted peer without headers", trust, nil, "10.0.0.2:1234", "10.0.0.2"},
		{"remote without port", nil, nil, "192.0.2.5", "192.0.2.5"},
		{"nothing", nil, nil, "", "unknown"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, tc.trust.ClientIP(r))
		})
	}
}

func TestClient_StoresMeta(t *testing.T) {
	var got reqctx.ClientMeta
	h := Client(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = reqctx.Client(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.7:40000"
	r.Header.Set("User-Agent", "curl/8.0")
	r.Header.Set("X-Real-IP", "203.0.113.66")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, reqctx.ClientMeta{UserAgent: "curl/8.0", IP: "198.51.100.7"}, got)
}

func TestTenant(t *testing.T) {
	var resolved *tenantdomain.Tenant
	h := Tenant(tenants())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved, _ = reqctx.Tenant(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/tenant-data", nil)
	r.Host = "client1.localhost"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resolved)
	assert.Equal(t, "t-client1", resolved.ID)

	r = httptest.NewRequest(http.MethodGet, "/api/tenant-data", nil)
	r.Host = "unknown.localhost"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "TENANT_NOT_FOUND")
}

func TestBearer(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	access, _, err := tokens.IssueAccess("u1", "t-client1", []string{"admin_tenant"})
	require.NoError(t, err)
	refresh, _, _, err := tokens.IssueRefresh("u1", "t-client1")
	require.NoError(t, err)

	var principal reqctx.Principal
	h := Tenant(tenants())(Bearer(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ = reqctx.GetPrincipal(r.Context())
	})))

	testCases := []struct {
		name   string
		host   string
		header string
		want   int
	}{
		{"valid", "client1.localhost", "Bearer " + access, http.StatusOK},
		{"lowercase scheme", "client1.localhost", "bearer " + access, http.StatusOK},
		{"missing header", "client1.localhost", "", http.StatusUnauthorized},
		{"wrong scheme", "client1.localhost", "Basic " + access, http.StatusUnauthorized},
		{"garbage", "client1.localhost", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"refresh token", "client1.localhost", "Bearer " + refresh, http.StatusUnauthorized},
		{"other tenant", "client2.localhost", "Bearer " + access, http.StatusUnauthorized},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			principal = reqctx.Principal{}
			r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			r.Host = tc.host
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, "u1", principal.UserID)
				assert.Equal(t, "t-client1", principal.TenantID)
				assert.Equal(t, []string{"admin_tenant"}, principal.Roles)
			} else {
				assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
			}
		})
	}
}

func TestRequirePermission_AuditsDecision(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantAction string
		wantReason string
	}{
		{"granted", nil, http.StatusOK, auditdomain.ActionAccessGranted, ""},
		{"denied", rbac.ErrPermissionDenied, http.StatusForbidden, auditdomain.ActionAccessDenied, "PERMISSION_DENIED"},
		{"not in tenant", rbac.ErrNotInTenant, http.StatusForbidden, auditdomain.ActionAccessDenied, "NOT_IN_TENANT"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			capture := &captureAudit{}
			h := RequirePermission(fakeGuard{permErr: tc.err}, capture, "read")(okHandler)

			r := httptest.NewRequest(http.MethodGet, "/api/tenant-data", nil)
			ctx := reqctx.WithTenant(r.Context(), &tenantdomain.Tenant{ID: "t-client1"})
			ctx = reqctx.WithPrincipal(ctx, reqctx.Principal{UserID: "u1", TenantID: "t-client1"})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r.WithContext(ctx))

			assert.Equal(t, tc.wantStatus, rec.Code)
			require.Len(t, capture.entries, 1)
			e := capture.entries[0]
			assert.Equal(t, tc.wantAction, e.action)
			assert.Equal(t, "tenant_data", e.resource)
			assert.Equal(t, "t-client1", e.tenantID)
			assert.Equal(t, "u1", e.userID)
			assert.Equal(t, "read", e.metadata["permission"])
			if tc.wantReason != "" {
				assert.Equal(t, tc.wantReason, e.metadata["reason"])
			}
		})
	}
}

func TestRequireAnyRole_Denied(t *testing.T) {
	capture := &captureAudit{}
	h := RequireAnyRole(fakeGuard{roleErr: rbac.ErrPermissionDenied}, capture, "admin_tenant")(okHandler)

	r := httptest.NewRequest(http.MethodGet, "/api/admin-only", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.Len(t, capture.entries, 1)
	assert.Equal(t, auditdomain.ActionAccessDenied, capture.entries[0].action)
	assert.Equal(t, "admin_only", capture.entries[0].resource)
	assert.Equal(t, []string{"admin_tenant"}, capture.entries[0].metadata["roles"])
}

func TestGuard_NilAuditLogger(t *testing.T) {
	h := RequirePermission(fakeGuard{}, nil, "read")(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tenant-data", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuard_InfrastructureError(t *testing.T) {
	h := RequirePermission(fakeGuard{permErr: errors.New("db down")}, &captureAudit{}, "read")(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tenant-data", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
