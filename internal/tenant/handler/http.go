// Package handler serves the tenant-scoped demo routes that exercise the guards.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/reqctx"
)

// Guards are the middleware protecting each demo route.
type Guards struct {
	// Read guards tenant-data (permission "read").
	Read func(http.Handler) http.Handler
	// Admin guards admin-only (role "admin_tenant").
	Admin func(http.Handler) http.Handler
}

type tenantDataResponse struct {
	Tenant  string `json:"tenant"`
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Register mounts GET /tenant/tenant-data and POST /permission-check/admin-only on the /api subrouter.
// Both routes sit behind Bearer and their guard.
func Register(api *mux.Router, auth func(http.Handler) http.Handler, g Guards) {
	api.Handle("/tenant/tenant-data", auth(g.Read(http.HandlerFunc(TenantData)))).Methods(http.MethodGet)
	api.Handle("/permission-check/admin-only", auth(g.Admin(http.HandlerFunc(AdminOnly)))).Methods(http.MethodPost)
}

// TenantData returns data scoped to the request tenant.
func TenantData(w http.ResponseWriter, r *http.Request) {
	p, _ := reqctx.GetPrincipal(r.Context())
	resp := tenantDataResponse{UserID: p.UserID, Message: "Tenant data access granted"}
	if t, ok := reqctx.Tenant(r.Context()); ok {
		resp.Tenant = t.Subdomain
	}
	writeJSON(w, resp)
}

// AdminOnly confirms the caller holds the tenant admin role.
func AdminOnly(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"message": "Admin access granted"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
