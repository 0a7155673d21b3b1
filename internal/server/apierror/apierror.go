// Package apierror writes JSON error responses and maps domain errors to HTTP status codes.
package apierror

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	identityservice "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/identity/service"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/rbac"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/security"
	sessionservice "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/session/service"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/resolver"
)

// Error codes that are not derived from a domain sentinel.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError is the JSON body of every error response.
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

type mapping struct {
	err     error
	status  int
	code    string
	message string
}

// mappings is checked in order with errors.Is. The credential message is fixed so unknown email
// and wrong password are indistinguishable.
var mappings = []mapping{
	{resolver.ErrMissingHost, http.StatusBadRequest, "MISSING_HOST", "Host header is required"},
	{resolver.ErrInvalidHostFormat, http.StatusBadRequest, "INVALID_HOST_FORMAT", "Host does not identify a tenant"},
	{resolver.ErrTenantNotFound, http.StatusNotFound, "TENANT_NOT_FOUND", "Tenant not found"},
	{identityservice.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"},
	{rbac.ErrNotInTenant, http.StatusForbidden, "NOT_IN_TENANT", "User is not a member of this tenant"},
	{security.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token"},
	{sessionservice.ErrTokenRevokedOrExpired, http.StatusUnauthorized, "TOKEN_REVOKED_OR_EXPIRED", "Refresh token revoked or expired"},
	{rbac.ErrPermissionDenied, http.StatusForbidden, "PERMISSION_DENIED", "Permission denied"},
	{rbac.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated, "Authentication required"},
	{identityservice.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{identityservice.ErrInvalidOrExpiredToken, http.StatusBadRequest, "INVALID_OR_EXPIRED_TOKEN", "Reset token is invalid or expired"},
	{identityservice.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT", ""},
}

// Write writes a JSON error body with the given status.
func Write(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIError{Code: code, Message: message})
}

// Classify returns the status, code and client-safe message for err.
// Unrecognized errors are SERVICE_UNAVAILABLE with a generic message.
func Classify(err error) (int, string, string) {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return m.status, m.code, msg
		}
	}
	return http.StatusServiceUnavailable, CodeServiceUnavailable, "Service temporarily unavailable"
}

// FromError writes the response for err. Unrecognized errors are logged; their text never
// reaches the client.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := Classify(err)
	if code == CodeServiceUnavailable {
		log.Printf("http: %s %s: %v", r.Method, r.URL.Path, err)
	}
	Write(w, status, code, msg)
}
