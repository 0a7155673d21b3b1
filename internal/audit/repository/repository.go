package repository

import (
	"context"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/audit/domain"
)

// Repository defines persistence for audit logs. Rows are append-only.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
}
