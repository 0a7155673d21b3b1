package repository

import (
	"context"
	"database/sql"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/audit/domain"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/db"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the audit log. The audit log must have ID set.
// Empty tenant and user ids are stored as NULL.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	meta := a.Metadata
	if meta == "" {
		meta = "{}"
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, tenant_id, user_id, action, resource, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, db.NullIfEmpty(a.TenantID), db.NullIfEmpty(a.UserID), a.Action, a.Resource, a.IP, meta, a.CreatedAt)
	return err
}
