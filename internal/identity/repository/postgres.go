package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/identity/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetProfile returns the caller's profile in the tenant, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetProfile(ctx context.Context, userID, tenantID string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.full_name, t.id, t.name, m.id
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.user_id = $1 AND m.tenant_id = $2
		  AND m.is_active AND u.is_active AND t.is_active`, userID, tenantID).
		Scan(&p.UserID, &p.Email, &p.FullName, &p.TenantID, &p.TenantName, &p.MembershipID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
