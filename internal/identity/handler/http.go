// Package handler exposes the auth service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/identity/domain"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/rbac"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/reqctx"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/server/apierror"
	tenantdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/domain"
)

// maxBodyBytes bounds request bodies on auth endpoints.
const maxBodyBytes = 64 << 10

// AuthService is the subset of the identity service the handlers call.
type AuthService interface {
	Login(ctx context.Context, email, password string, tenant *tenantdomain.Tenant, client reqctx.ClientMeta) (*domain.TokenResult, error)
	Refresh(ctx context.Context, refreshToken string, tenant *tenantdomain.Tenant, client reqctx.ClientMeta) (*domain.TokenResult, error)
	Logout(ctx context.Context, refreshToken string, tenant *tenantdomain.Tenant)
	ForgotPassword(ctx context.Context, email string, tenant *tenantdomain.Tenant) (*domain.ResetIssued, error)
	ResetPassword(ctx context.Context, token, newPassword string, tenant *tenantdomain.Tenant) error
	Me(ctx context.Context, principal reqctx.Principal, tenant *tenantdomain.Tenant) (*domain.Identity, error)
}

// AuthHandler serves the /api/auth routes.
type AuthHandler struct {
	svc AuthService
	// echoResetToken returns the plaintext reset token in the forgot-password response. Development only.
	echoResetToken bool
}

// NewAuthHandler returns handlers backed by svc.
func NewAuthHandler(svc AuthService, echoResetToken bool) *AuthHandler {
	return &AuthHandler{svc: svc, echoResetToken: echoResetToken}
}

// Routes holds the middleware applied per route group.
type Routes struct {
	// Limit wraps the credential endpoints (login, token, forgot, reset).
	Limit func(http.Handler) http.Handler
	// Auth validates the bearer token for /me.
	Auth func(http.Handler) http.Handler
}

// Register mounts the auth routes on r, which is expected to be the /api/auth subrouter.
func (h *AuthHandler) Register(r *mux.Router, mw Routes) {
	limit := orIdentity(mw.Limit)
	auth := orIdentity(mw.Auth)

	r.Handle("/login", limit(http.HandlerFunc(h.Login))).Methods(http.MethodPost)
	r.Handle("/token", limit(http.HandlerFunc(h.Token))).Methods(http.MethodPost)
	r.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	r.Handle("/forgot-password", limit(http.HandlerFunc(h.ForgotPassword))).Methods(http.MethodPost)
	r.Handle("/reset-password", limit(http.HandlerFunc(h.ResetPassword))).Methods(http.MethodPost)
	r.Handle("/me", auth(http.HandlerFunc(h.Me))).Methods(http.MethodGet)
}

func orIdentity(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(h http.Handler) http.Handler { return h }
	}
	return mw
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	Roles        []string  `json:"roles"`
	Tenant       string    `json:"tenant"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type messageResponse struct {
	Message    string     `json:"message"`
	ResetToken string     `json:"reset_token,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type meResponse struct {
	UserName   string   `json:"user_name"`
	UserEmail  string   `json:"user_email"`
	TenantName string   `json:"tenant_name"`
	Roles      []string `json:"roles"`
}

// Login authenticates {email,password} against the request tenant.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	h.login(w, r, req.Email, req.Password)
}

// Token is the form-encoded variant of Login (username/password fields).
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeInvalidRequest, "Invalid form body")
		return
	}
	h.login(w, r, r.PostForm.Get("username"), r.PostForm.Get("password"))
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, email, password string) {
	if strings.TrimSpace(email) == "" || password == "" {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeInvalidRequest, "email and password are required")
		return
	}
	t, _ := reqctx.Tenant(r.Context())
	res, err := h.svc.Login(r.Context(), email, password, t, reqctx.Client(r.Context()))
	if err != nil {
		apierror.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		ExpiresAt:    res.ExpiresAt,
		Roles:        nonNil(res.Roles),
		Tenant:       res.Tenant,
	})
}

// Refresh rotates a refresh token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeInvalidRequest, "refresh_token is required")
		return
	}
	t, _ := reqctx.Tenant(r.Context())
	res, err := h.svc.Refresh(r.Context(), req.RefreshToken, t, reqctx.Client(r.Context()))
	if err != nil {
		apierror.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
	})
}

// Logout revokes a refresh token. It answers 204 whatever the token's state, including a
// malformed body.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
		t, _ := reqctx.Tenant(r.Context())
		h.svc.Logout(r.Context(), req.RefreshToken, t)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ForgotPassword issues a reset token for a user of the request tenant.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeInvalidRequest, "email is required")
		return
	}
	t, _ := reqctx.Tenant(r.Context())
	issued, err := h.svc.ForgotPassword(r.Context(), req.Email, t)
	if err != nil {
		apierror.FromError(w, r, err)
		return
	}
	resp := messageResponse{Message: "Password reset instructions have been sent"}
	if h.echoResetToken {
		resp.ResetToken = issued.Token
		resp.ExpiresAt = &issued.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetPassword redeems a reset token and sets a new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeInvalidRequest, "token is required")
		return
	}
	t, _ := reqctx.Tenant(r.Context())
	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword, t); err != nil {
		apierror.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset"})
}

// Me returns the authenticated caller within the request tenant.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := reqctx.GetPrincipal(r.Context())
	if !ok {
		apierror.FromError(w, r, rbac.ErrUnauthenticated)
		return
	}
	t, _ := reqctx.Tenant(r.Context())
	id, err := h.svc.Me(r.Context(), p, t)
	if err != nil {
		apierror.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		UserName:   id.FullName,
		UserEmail:  id.Email,
		TenantName: id.TenantName,
		Roles:      nonNil(id.Roles),
	})
}

// decode reads a JSON body into v, writing 400 INVALID_REQUEST on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeInvalidRequest, "Invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
