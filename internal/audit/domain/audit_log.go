package domain

import "time"

// Audit actions recorded by the auth service and the guard middleware.
const (
	ActionLoginSuccess           = "login_success"
	ActionLoginFailure           = "login_failure"
	ActionTokenRefresh           = "token_refresh"
	ActionLogout                 = "logout"
	ActionPasswordResetRequested = "password_reset_requested"
	ActionPasswordReset          = "password_reset"
	ActionAccessGranted          = "access_granted"
	ActionAccessDenied           = "access_denied"
)

// AuditLog represents an audit event. TenantID and UserID are empty when the event has no
// resolved tenant or authenticated user (e.g. a failed login for an unknown email).
type AuditLog struct {
	ID        string
	TenantID  string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
