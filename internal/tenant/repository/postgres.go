package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/db"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/domain"
)

const tenantColumns = `id, subdomain, custom_domain, name, is_active, created_at`

type PostgresRepository struct {
	db db.Querier
}

// NewPostgresRepository returns a tenant repository that runs its queries on q, a *sql.DB or a *sql.Tx.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// GetByHost returns the active tenant matching subdomain or the full host as custom domain, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByHost(ctx context.Context, subdomain, host string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE is_active AND (subdomain = $1 OR custom_domain = $2)
		ORDER BY (subdomain = $1) DESC
		LIMIT 1`, subdomain, host)
	return scanTenant(row)
}

// CreateIfAbsent persists the tenant unless one with the same subdomain exists. In that case the
// stored row is left untouched, t.ID is set to its id, and created is false.
func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, t *domain.Tenant) (created bool, err error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, subdomain, custom_domain, name, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subdomain) DO NOTHING`,
		t.ID, t.Subdomain, db.NullIfEmpty(t.CustomDomain), t.Name, t.IsActive, t.CreatedAt)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM tenants WHERE subdomain = $1`, t.Subdomain).Scan(&t.ID); err != nil {
		return false, err
	}
	return false, nil
}

func scanTenant(row *sql.Row) (*domain.Tenant, error) {
	var (
		t      domain.Tenant
		custom sql.NullString
	)
	err := row.Scan(&t.ID, &t.Subdomain, &custom, &t.Name, &t.IsActive, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.CustomDomain = custom.String
	return &t, nil
}
