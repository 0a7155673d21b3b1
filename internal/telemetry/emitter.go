// Package telemetry defines auth events and the best-effort emitter they are sent through.
package telemetry

import (
	"context"
	"time"
)

// Event types emitted by the authentication orchestrator.
const (
	EventLoginSucceeded  = "login_succeeded"
	EventLoginFailed     = "login_failed"
	EventTokenRefreshed  = "token_refreshed"
	EventRefreshRejected = "refresh_rejected"
	EventLogout          = "logout"
	EventResetRequested  = "password_reset_requested"
	EventPasswordReset   = "password_reset"
	EventResetRejected   = "password_reset_rejected"
)

// Event is a single auth event. Reason names the error class on failures and is empty otherwise.
type Event struct {
	Type     string
	TenantID string
	UserID   string
	Reason   string
	At       time.Time
}

// EventEmitter emits auth events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event Event) error
}
