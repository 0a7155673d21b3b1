package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/audit/domain"
	auditrepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/audit/repository"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/reqctx"
)

// unknownIP is recorded when the request carried no client metadata.
const unknownIP = "unknown"

// AuditLogger writes a single audit event with explicit action/resource. Used by the auth service
// and the guard middleware. LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, tenantID, userID, action, resource string, metadata map[string]any)
}

// Logger implements AuditLogger using the audit repository.
type Logger struct {
	repo auditrepo.Repository
	now  func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo. The client IP is taken from the request
// context (reqctx.Client).
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo, now: time.Now}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, tenantID, userID, action, resource string, metadata map[string]any) {
	if l == nil || l.repo == nil {
		return
	}
	ip := reqctx.Client(ctx).IP
	if ip == "" {
		ip = unknownIP
	}
	meta := "{}"
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			log.Printf("audit: encode metadata for %s: %v", action, err)
		} else {
			meta = string(b)
		}
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  meta,
		CreatedAt: l.now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

// Nop is an AuditLogger that records nothing.
type Nop struct{}

func (Nop) LogEvent(context.Context, string, string, string, string, map[string]any) {}
