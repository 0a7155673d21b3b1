package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/db"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/membership/domain"
)

const membershipColumns = `id, user_id, tenant_id, is_active, is_default, created_at`

type PostgresRepository struct {
	db db.Querier
}

// NewPostgresRepository returns a membership repository that runs its queries on q, a *sql.DB or a *sql.Tx.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// GetMembershipByID returns the membership for id, or nil if not found.
func (r *PostgresRepository) GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, id)
	return scanMembership(row)
}

// GetMembershipByUserAndTenant returns the membership for the user in the tenant, or nil if not found.
// Inactive memberships are returned; callers decide how to treat them.
func (r *PostgresRepository) GetMembershipByUserAndTenant(ctx context.Context, userID, tenantID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND tenant_id = $2`, userID, tenantID)
	return scanMembership(row)
}

// CreateMembership persists the membership. The membership must have ID set.
func (r *PostgresRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships (id, user_id, tenant_id, is_active, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.UserID, m.TenantID, m.IsActive, m.IsDefault, m.CreatedAt)
	return err
}

func scanMembership(row *sql.Row) (*domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(&m.ID, &m.UserID, &m.TenantID, &m.IsActive, &m.IsDefault, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
